package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// MemoryCatalogStore keeps records in process memory. Intended for
// development and tests; nothing survives a restart.
type MemoryCatalogStore struct {
	mu      sync.RWMutex
	records map[string]*MediaRecord
}

func NewMemoryCatalogStore() *MemoryCatalogStore {
	return &MemoryCatalogStore{records: make(map[string]*MediaRecord)}
}

func (ms *MemoryCatalogStore) Create(ctx context.Context, rec *MediaRecord) error {
	if rec == nil || rec.ID == "" {
		return fmt.Errorf("record must have an id")
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, exists := ms.records[rec.ID]; exists {
		return fmt.Errorf("record %q already exists", rec.ID)
	}

	cp := *rec
	cp.Tags = append([]string(nil), rec.Tags...)
	ms.records[rec.ID] = &cp

	return nil
}

func (ms *MemoryCatalogStore) Get(ctx context.Context, id string) (*MediaRecord, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	rec, ok := ms.records[id]
	if !ok {
		return nil, ErrNotFound
	}

	cp := *rec
	cp.Tags = append([]string(nil), rec.Tags...)

	return &cp, nil
}

func (ms *MemoryCatalogStore) Delete(ctx context.Context, id string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, ok := ms.records[id]; !ok {
		return ErrNotFound
	}

	delete(ms.records, id)

	return nil
}

func (ms *MemoryCatalogStore) List(ctx context.Context, q ListQuery) ([]*MediaRecord, int, error) {
	ms.mu.RLock()

	var matched []*MediaRecord
	for _, rec := range ms.records {
		if recordMatches(rec, q) {
			matched = append(matched, rec)
		}
	}
	ms.mu.RUnlock()

	// Newest first; id breaks ties so pagination stays stable.
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	total := len(matched)
	offset, limit := q.Window()

	if offset >= total {
		return []*MediaRecord{}, total, nil
	}

	end := offset + limit
	if end > total {
		end = total
	}

	page := make([]*MediaRecord, 0, end-offset)
	for _, rec := range matched[offset:end] {
		cp := *rec
		cp.Tags = append([]string(nil), rec.Tags...)
		page = append(page, &cp)
	}

	return page, total, nil
}

func (ms *MemoryCatalogStore) Stats(ctx context.Context, ownerID string) (*UsageStats, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	stats := NewUsageStats()
	for _, rec := range ms.records {
		if rec.OwnerID != ownerID {
			continue
		}

		stats.TotalCount++
		stats.TotalBytes += rec.SizeBytes
		stats.ByCategory[rec.Category]++
	}

	return stats, nil
}

func recordMatches(rec *MediaRecord, q ListQuery) bool {
	if q.OwnerID != "" && rec.OwnerID != q.OwnerID {
		return false
	}

	if q.Filter.Category != "" && rec.Category != q.Filter.Category {
		return false
	}

	if q.Filter.Privacy != "" && rec.Privacy != q.Filter.Privacy {
		return false
	}

	if q.Filter.Query != "" {
		needle := strings.ToLower(q.Filter.Query)
		if !strings.Contains(strings.ToLower(rec.DisplayName), needle) &&
			!strings.Contains(strings.ToLower(rec.Description), needle) &&
			!tagsContain(rec.Tags, needle) {
			return false
		}
	}

	return true
}

func tagsContain(tags []string, needle string) bool {
	for _, tag := range tags {
		if strings.Contains(strings.ToLower(tag), needle) {
			return true
		}
	}

	return false
}
