package get

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/indieinfra/stash/config"
	"github.com/indieinfra/stash/engine"
	"github.com/indieinfra/stash/server/auth"
	"github.com/indieinfra/stash/server/state"
	"github.com/indieinfra/stash/storage/blob/filesystem"
	"github.com/indieinfra/stash/storage/catalog"
)

func newTestState(t *testing.T) *state.StashState {
	t.Helper()

	cfg := &config.Config{
		Server: config.Server{
			Limits: config.ServerLimits{MaxFileSize: 1 << 20, MaxMultipartMem: 1 << 20},
		},
	}

	blobs, err := filesystem.NewFilesystemBlobStore(&config.FilesystemBlobStrategy{Path: t.TempDir()}, 1<<20)
	if err != nil {
		t.Fatalf("could not create blob store: %v", err)
	}

	cat := catalog.NewMemoryCatalogStore()

	return &state.StashState{
		Cfg:     cfg,
		Blobs:   blobs,
		Catalog: cat,
		Engine:  engine.New(cat, blobs, nil),
	}
}

func ingest(t *testing.T, st *state.StashState, owner, title, contentType, privacy, payload string) *catalog.MediaRecord {
	t.Helper()

	rec, err := st.Engine.Ingest(context.Background(), owner, engine.IngestRequest{
		Payload:      strings.NewReader(payload),
		ContentType:  contentType,
		OriginalName: "orig.bin",
		DisplayName:  title,
		Privacy:      privacy,
	})
	if err != nil {
		t.Fatalf("ingest failed: %v", err)
	}

	return rec
}

func asOwner(req *http.Request, owner string) *http.Request {
	return req.WithContext(auth.AddIdentity(req.Context(), &engine.Identity{OwnerID: owner}))
}

func TestHandleList(t *testing.T) {
	st := newTestState(t)
	ingest(t, st, "alice", "First", "image/png", "", "a")
	ingest(t, st, "alice", "Second", "video/mp4", "", "b")
	ingest(t, st, "bob", "Other", "image/png", "", "c")

	req := asOwner(httptest.NewRequest(http.MethodGet, "/media", nil), "alice")
	rr := httptest.NewRecorder()
	HandleList(st)(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var page ListResponse
	if err := json.NewDecoder(rr.Body).Decode(&page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if page.Total != 2 || len(page.Items) != 2 {
		t.Fatalf("expected alice's two records, got %+v", page)
	}

	req = asOwner(httptest.NewRequest(http.MethodGet, "/media?category=video", nil), "alice")
	rr = httptest.NewRecorder()
	HandleList(st)(rr, req)

	page = ListResponse{}
	if err := json.NewDecoder(rr.Body).Decode(&page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if page.Total != 1 || page.Items[0].DisplayName != "Second" {
		t.Fatalf("expected category filter to apply, got %+v", page)
	}
}

func TestHandleList_BadQueryParams(t *testing.T) {
	st := newTestState(t)

	cases := []string{
		"/media?category=gif",
		"/media?page=0",
		"/media?page_size=-3",
		"/media?page=abc",
	}

	for _, target := range cases {
		req := asOwner(httptest.NewRequest(http.MethodGet, target, nil), "alice")
		rr := httptest.NewRecorder()
		HandleList(st)(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", target, rr.Code)
		}
	}
}

func TestHandleSearch(t *testing.T) {
	st := newTestState(t)
	ingest(t, st, "alice", "Beach sunset", "image/png", "", "a")
	ingest(t, st, "alice", "Meeting notes", "application/pdf", "", "b")

	req := asOwner(httptest.NewRequest(http.MethodGet, "/media/search?q=beach", nil), "alice")
	rr := httptest.NewRecorder()
	HandleSearch(st)(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	var page ListResponse
	if err := json.NewDecoder(rr.Body).Decode(&page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if page.Total != 1 || page.Items[0].DisplayName != "Beach sunset" {
		t.Fatalf("unexpected search result: %+v", page)
	}

	// A blank term is a client error, not an empty result.
	req = asOwner(httptest.NewRequest(http.MethodGet, "/media/search?q=++", nil), "alice")
	rr = httptest.NewRecorder()
	HandleSearch(st)(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for blank term, got %d", rr.Code)
	}
}

func TestHandleStats(t *testing.T) {
	st := newTestState(t)
	ingest(t, st, "alice", "Pic", "image/png", "", strings.Repeat("x", 1000))
	ingest(t, st, "alice", "Clip", "video/mp4", "", strings.Repeat("x", 2000))

	req := asOwner(httptest.NewRequest(http.MethodGet, "/media/stats", nil), "alice")
	rr := httptest.NewRecorder()
	HandleStats(st)(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	var stats catalog.UsageStats
	if err := json.NewDecoder(rr.Body).Decode(&stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.TotalCount != 2 || stats.TotalBytes != 3000 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestHandleDownload(t *testing.T) {
	st := newTestState(t)
	rec := ingest(t, st, "alice", "My Photo!", "image/png", "", "png bytes")

	req := asOwner(httptest.NewRequest(http.MethodGet, "/media/"+rec.ID, nil), "alice")
	req.SetPathValue("id", rec.ID)

	rr := httptest.NewRecorder()
	HandleDownload(st)(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if rr.Body.String() != "png bytes" {
		t.Fatalf("unexpected body: %q", rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "image/png" {
		t.Fatalf("expected exact stored content type, got %q", ct)
	}
	if cd := rr.Header().Get("Content-Disposition"); cd != `inline; filename="my-photo.bin"` {
		t.Fatalf("unexpected disposition: %q", cd)
	}
	if cl := rr.Header().Get("Content-Length"); cl != "9" {
		t.Fatalf("unexpected content length: %q", cl)
	}
}

func TestHandleDownload_PrivateHiddenFromStrangers(t *testing.T) {
	st := newTestState(t)
	rec := ingest(t, st, "alice", "Secret", "image/png", "private", "x")

	// Anonymous and non-owner requests both get the not-found shape.
	for _, ident := range []string{"", "bob"} {
		req := httptest.NewRequest(http.MethodGet, "/media/"+rec.ID, nil)
		if ident != "" {
			req = asOwner(req, ident)
		}
		req.SetPathValue("id", rec.ID)

		rr := httptest.NewRecorder()
		HandleDownload(st)(rr, req)

		if rr.Code != http.StatusNotFound {
			t.Errorf("ident %q: expected 404, got %d", ident, rr.Code)
		}
	}
}

func TestHandleDownload_UnlistedHiddenFromStrangers(t *testing.T) {
	st := newTestState(t)
	rec := ingest(t, st, "alice", "Shared link", "image/png", "unlisted", "payload")

	// Anonymous callers get the not-found shape, same as private.
	req := httptest.NewRequest(http.MethodGet, "/media/"+rec.ID, nil)
	req.SetPathValue("id", rec.ID)

	rr := httptest.NewRecorder()
	HandleDownload(st)(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/media/"+rec.ID, nil)
	req = asOwner(req, "alice")
	req.SetPathValue("id", rec.ID)

	rr = httptest.NewRecorder()
	HandleDownload(st)(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("owner: expected 200, got %d", rr.Code)
	}
}

func TestHandleDownload_DanglingBlobReadsAsNotFound(t *testing.T) {
	st := newTestState(t)
	rec := ingest(t, st, "alice", "Dangling", "image/png", "", "payload")

	// Remove the bytes underneath the record; the download must report
	// the record as absent, not as a conflict.
	if err := st.Blobs.Delete(context.Background(), rec.BlobHandle); err != nil {
		t.Fatalf("blob delete failed: %v", err)
	}

	req := asOwner(httptest.NewRequest(http.MethodGet, "/media/"+rec.ID, nil), "alice")
	req.SetPathValue("id", rec.ID)

	rr := httptest.NewRecorder()
	HandleDownload(st)(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestHandleInfo(t *testing.T) {
	st := newTestState(t)
	rec := ingest(t, st, "alice", "Described", "image/png", "", "x")

	req := httptest.NewRequest(http.MethodGet, "/media/"+rec.ID+"/info", nil)
	req.SetPathValue("id", rec.ID)

	rr := httptest.NewRecorder()
	HandleInfo(st)(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	body := rr.Body.String()

	var got catalog.MediaRecord
	if err := json.Unmarshal([]byte(body), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID != rec.ID || got.DisplayName != "Described" {
		t.Fatalf("unexpected record: %+v", got)
	}

	// The blob handle is internal and must not leak.
	if strings.Contains(body, rec.BlobHandle) {
		t.Fatal("blob handle leaked into the response")
	}
}

func TestDownloadFilename(t *testing.T) {
	cases := []struct {
		display  string
		original string
		want     string
	}{
		{"My Photo!", "IMG_0001.JPG", "my-photo.jpg"},
		{"…", "x.png", "download.png"},
		{"plain", "noext", "plain"},
	}

	for _, tc := range cases {
		if got := downloadFilename(tc.display, tc.original); got != tc.want {
			t.Errorf("downloadFilename(%q, %q) = %q, want %q", tc.display, tc.original, got, tc.want)
		}
	}
}
