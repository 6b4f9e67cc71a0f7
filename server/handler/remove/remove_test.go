package remove

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/indieinfra/stash/config"
	"github.com/indieinfra/stash/engine"
	"github.com/indieinfra/stash/server/auth"
	"github.com/indieinfra/stash/server/state"
	"github.com/indieinfra/stash/storage/blob"
	"github.com/indieinfra/stash/storage/blob/filesystem"
	"github.com/indieinfra/stash/storage/catalog"
)

func newTestState(t *testing.T) *state.StashState {
	t.Helper()

	blobs, err := filesystem.NewFilesystemBlobStore(&config.FilesystemBlobStrategy{Path: t.TempDir()}, 1<<20)
	if err != nil {
		t.Fatalf("could not create blob store: %v", err)
	}

	cat := catalog.NewMemoryCatalogStore()

	return &state.StashState{
		Cfg:     &config.Config{},
		Blobs:   blobs,
		Catalog: cat,
		Engine:  engine.New(cat, blobs, nil),
	}
}

func deleteRequest(id, owner string) *http.Request {
	req := httptest.NewRequest(http.MethodDelete, "/media/"+id, nil)
	req.SetPathValue("id", id)
	if owner != "" {
		req = req.WithContext(auth.AddIdentity(req.Context(), &engine.Identity{OwnerID: owner}))
	}
	return req
}

func TestHandleRemove(t *testing.T) {
	st := newTestState(t)

	rec, err := st.Engine.Ingest(context.Background(), "alice", engine.IngestRequest{
		Payload:     strings.NewReader("bytes"),
		DisplayName: "Doomed",
	})
	if err != nil {
		t.Fatalf("ingest failed: %v", err)
	}

	rr := httptest.NewRecorder()
	HandleRemove(st)(rr, deleteRequest(rec.ID, "alice"))

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rr.Code, rr.Body.String())
	}

	if _, err := st.Blobs.Open(context.Background(), rec.BlobHandle); !errors.Is(err, blob.ErrNotFound) {
		t.Fatalf("expected blob removed, got %v", err)
	}

	// Deleting again reports not found.
	rr = httptest.NewRecorder()
	HandleRemove(st)(rr, deleteRequest(rec.ID, "alice"))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on double delete, got %d", rr.Code)
	}
}

func TestHandleRemove_NonOwnerGetsNotFound(t *testing.T) {
	st := newTestState(t)

	rec, err := st.Engine.Ingest(context.Background(), "alice", engine.IngestRequest{
		Payload:     strings.NewReader("bytes"),
		DisplayName: "Protected",
	})
	if err != nil {
		t.Fatalf("ingest failed: %v", err)
	}

	rr := httptest.NewRecorder()
	HandleRemove(st)(rr, deleteRequest(rec.ID, "bob"))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected denial to look like 404, got %d", rr.Code)
	}

	// Record must be untouched.
	if _, err := st.Catalog.Get(context.Background(), rec.ID); err != nil {
		t.Fatalf("expected record to survive, got %v", err)
	}
}

func TestHandleRemove_RequiresIdentity(t *testing.T) {
	st := newTestState(t)

	rr := httptest.NewRecorder()
	HandleRemove(st)(rr, deleteRequest("some-id", ""))

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}
