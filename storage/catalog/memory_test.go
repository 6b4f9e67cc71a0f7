package catalog

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func seedMemory(t *testing.T) *MemoryCatalogStore {
	t.Helper()

	ms := NewMemoryCatalogStore()
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	recs := []*MediaRecord{
		{ID: "a1", OwnerID: "alice", DisplayName: "Beach sunset", Description: "vacation", Tags: []string{"travel"}, Category: CategoryImage, SizeBytes: 100, Privacy: PrivacyPublic, CreatedAt: base.Add(1 * time.Hour)},
		{ID: "a2", OwnerID: "alice", DisplayName: "Meeting notes", Category: CategoryDocument, SizeBytes: 200, Privacy: PrivacyPrivate, CreatedAt: base.Add(2 * time.Hour)},
		{ID: "a3", OwnerID: "alice", DisplayName: "Song demo", Tags: []string{"music", "draft"}, Category: CategoryAudio, SizeBytes: 300, Privacy: PrivacyUnlisted, CreatedAt: base.Add(3 * time.Hour)},
		{ID: "b1", OwnerID: "bob", DisplayName: "Beach ball", Category: CategoryImage, SizeBytes: 400, Privacy: PrivacyPublic, CreatedAt: base.Add(4 * time.Hour)},
	}

	for _, rec := range recs {
		if err := ms.Create(context.Background(), rec); err != nil {
			t.Fatalf("seed create failed: %v", err)
		}
	}

	return ms
}

func TestMemoryCreateRejectsDuplicates(t *testing.T) {
	ms := NewMemoryCatalogStore()
	rec := &MediaRecord{ID: "x"}

	if err := ms.Create(context.Background(), rec); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := ms.Create(context.Background(), rec); err == nil {
		t.Fatal("expected duplicate id to be rejected")
	}
}

func TestMemoryGetReturnsCopy(t *testing.T) {
	ms := seedMemory(t)

	first, err := ms.Get(context.Background(), "a1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}

	first.DisplayName = "mutated"
	first.Tags[0] = "mutated"

	second, err := ms.Get(context.Background(), "a1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if second.DisplayName != "Beach sunset" || second.Tags[0] != "travel" {
		t.Fatalf("store leaked internal state: %+v", second)
	}
}

func TestMemoryListOrderingAndFilters(t *testing.T) {
	ms := seedMemory(t)
	ctx := context.Background()

	items, total, err := ms.List(ctx, ListQuery{OwnerID: "alice"})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 3 {
		t.Fatalf("expected 3 alice records, got %d", total)
	}
	if items[0].ID != "a3" || items[2].ID != "a1" {
		t.Fatalf("expected newest first, got %s..%s", items[0].ID, items[2].ID)
	}

	_, total, err = ms.List(ctx, ListQuery{OwnerID: "alice", Filter: Filter{Category: CategoryImage}})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 1 {
		t.Fatalf("expected 1 image, got %d", total)
	}

	_, total, err = ms.List(ctx, ListQuery{Filter: Filter{Query: "BEACH"}})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 2 {
		t.Fatalf("expected case-insensitive match across owners, got %d", total)
	}

	_, total, err = ms.List(ctx, ListQuery{OwnerID: "alice", Filter: Filter{Query: "music"}})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 1 {
		t.Fatalf("expected tag match, got %d", total)
	}
}

func TestMemoryListPagination(t *testing.T) {
	ms := NewMemoryCatalogStore()
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		err := ms.Create(context.Background(), &MediaRecord{
			ID:        fmt.Sprintf("rec-%d", i),
			OwnerID:   "alice",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("create failed: %v", err)
		}
	}

	items, total, err := ms.List(context.Background(), ListQuery{OwnerID: "alice", Page: 2, PageSize: 2})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 5 || len(items) != 2 {
		t.Fatalf("expected total 5 with 2 items, got %d/%d", total, len(items))
	}
	if items[0].ID != "rec-2" {
		t.Fatalf("unexpected page start: %s", items[0].ID)
	}

	items, total, err = ms.List(context.Background(), ListQuery{OwnerID: "alice", Page: 9, PageSize: 2})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 5 || len(items) != 0 {
		t.Fatalf("expected empty page past the end, got %d items", len(items))
	}
}

func TestMemoryDelete(t *testing.T) {
	ms := seedMemory(t)

	if err := ms.Delete(context.Background(), "a1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if err := ms.Delete(context.Background(), "a1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMemoryStats(t *testing.T) {
	ms := seedMemory(t)

	stats, err := ms.Stats(context.Background(), "alice")
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}

	if stats.TotalCount != 3 || stats.TotalBytes != 600 {
		t.Fatalf("unexpected totals: %+v", stats)
	}
	if stats.ByCategory[CategoryImage] != 1 || stats.ByCategory[CategoryVideo] != 0 {
		t.Fatalf("unexpected breakdown: %v", stats.ByCategory)
	}
}
