package middleware

import (
	"log"
	"net/http"
	"strings"

	"github.com/indieinfra/stash/config"
	"github.com/indieinfra/stash/server/auth"
	"github.com/indieinfra/stash/server/resp"
	"github.com/indieinfra/stash/server/util"
)

// RequireIdentity wraps a downstream handler. At execution time, it extracts a
// Bearer token from the Authorization header and resolves it against the
// configured identity endpoint. Requests without a valid identity are aborted
// before the handler runs.
func RequireIdentity(cfg *config.Config, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimSpace(auth.ExtractBearerToken(r.Header.Get("Authorization")))
		if token == "" {
			resp.WriteUnauthorized(w, "An access token is required")
			return
		}

		ident, err := auth.VerifyAccessToken(cfg, token)
		if err != nil {
			rl := util.WithRequest(log.Default(), r, "")
			rl.Errorf("identity verification failed: %v", err)
			resp.WriteInternalServerError(w, "Could not verify access token")
			return
		}

		if ident == nil {
			resp.WriteUnauthorized(w, "Token validation failed")
			return
		}

		rl := util.WithRequest(log.Default(), r, ident.OwnerID)
		ctx := util.ContextWithLogger(r.Context(), rl)
		next.ServeHTTP(w, r.WithContext(auth.AddIdentity(ctx, ident)))
	})
}

// OptionalIdentity resolves a Bearer token when one is present but lets
// anonymous requests through. Download and info endpoints use this so that
// public records stay reachable without credentials.
func OptionalIdentity(cfg *config.Config, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimSpace(auth.ExtractBearerToken(r.Header.Get("Authorization")))
		if token == "" {
			rl := util.WithRequest(log.Default(), r, "")
			ctx := util.ContextWithLogger(r.Context(), rl)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		ident, err := auth.VerifyAccessToken(cfg, token)
		if err != nil {
			rl := util.WithRequest(log.Default(), r, "")
			rl.Errorf("identity verification failed: %v", err)
			resp.WriteInternalServerError(w, "Could not verify access token")
			return
		}

		// A presented-but-invalid token is rejected rather than downgraded
		// to anonymous, so callers notice expired credentials.
		if ident == nil {
			resp.WriteUnauthorized(w, "Token validation failed")
			return
		}

		rl := util.WithRequest(log.Default(), r, ident.OwnerID)
		ctx := util.ContextWithLogger(r.Context(), rl)
		next.ServeHTTP(w, r.WithContext(auth.AddIdentity(ctx, ident)))
	})
}
