package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/indieinfra/stash/config"
	"github.com/indieinfra/stash/server/auth"
)

func identityEndpoint(t *testing.T) *config.Config {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth.ExtractBearerToken(r.Header.Get("Authorization")) == "good" {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"owner_id":"alice","is_admin":false}`))
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	return &config.Config{Identity: config.Identity{Endpoint: srv.URL}}
}

func TestRequireIdentity_MissingToken(t *testing.T) {
	cfg := identityEndpoint(t)

	nextCalled := false
	handler := RequireIdentity(cfg, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/media", nil))

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	if nextCalled {
		t.Fatal("next handler must not run without a token")
	}
}

func TestRequireIdentity_InvalidToken(t *testing.T) {
	cfg := identityEndpoint(t)

	handler := RequireIdentity(cfg, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler must not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/media", nil)
	req.Header.Set("Authorization", "Bearer bad")

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestRequireIdentity_ValidToken(t *testing.T) {
	cfg := identityEndpoint(t)

	var gotOwner string
	handler := RequireIdentity(cfg, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ident := auth.GetIdentity(r.Context()); ident != nil {
			gotOwner = ident.OwnerID
		}
	}))

	req := httptest.NewRequest(http.MethodGet, "/media", nil)
	req.Header.Set("Authorization", "Bearer good")

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if gotOwner != "alice" {
		t.Fatalf("expected identity in context, got %q", gotOwner)
	}
}

func TestOptionalIdentity_AnonymousPassesThrough(t *testing.T) {
	cfg := identityEndpoint(t)

	called := false
	handler := OptionalIdentity(cfg, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		if ident := auth.GetIdentity(r.Context()); ident != nil {
			t.Fatalf("expected no identity, got %+v", ident)
		}
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/media/some-id", nil))

	if !called {
		t.Fatal("expected anonymous request to reach the handler")
	}
}

func TestOptionalIdentity_RejectsInvalidToken(t *testing.T) {
	cfg := identityEndpoint(t)

	handler := OptionalIdentity(cfg, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler must not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/media/some-id", nil)
	req.Header.Set("Authorization", "Bearer expired")

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}
