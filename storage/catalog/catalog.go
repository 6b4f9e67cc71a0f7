package catalog

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrNotFound indicates that no media record exists for the given id.
var ErrNotFound = errors.New("media record not found")

// Category buckets media by broad content kind, derived from the declared
// MIME type at ingestion time.
type Category string

const (
	CategoryImage    Category = "image"
	CategoryVideo    Category = "video"
	CategoryAudio    Category = "audio"
	CategoryDocument Category = "document"
)

// Categories lists every valid category.
func Categories() []Category {
	return []Category{CategoryImage, CategoryVideo, CategoryAudio, CategoryDocument}
}

func (c Category) Valid() bool {
	switch c {
	case CategoryImage, CategoryVideo, CategoryAudio, CategoryDocument:
		return true
	}

	return false
}

// Privacy is the visibility policy on a record.
type Privacy string

const (
	PrivacyPublic   Privacy = "public"
	PrivacyPrivate  Privacy = "private"
	PrivacyUnlisted Privacy = "unlisted"
)

// NormalizePrivacy maps user input onto a valid privacy value, falling back
// to public for anything unknown or empty.
func NormalizePrivacy(raw string) Privacy {
	switch Privacy(strings.ToLower(strings.TrimSpace(raw))) {
	case PrivacyPrivate:
		return PrivacyPrivate
	case PrivacyUnlisted:
		return PrivacyUnlisted
	default:
		return PrivacyPublic
	}
}

// MediaRecord is one uploaded item's metadata. A record exists only while
// its blob does: it is created after the blob write is confirmed and removed
// in the same logical operation that removes the blob.
type MediaRecord struct {
	ID               string    `json:"id"`
	OwnerID          string    `json:"owner_id"`
	DisplayName      string    `json:"display_name"`
	OriginalName     string    `json:"original_name"`
	Description      string    `json:"description"`
	Tags             []string  `json:"tags"`
	DeclaredCategory string    `json:"declared_category"`
	Category         Category  `json:"category"`
	ContentType      string    `json:"content_type"`
	SizeBytes        int64     `json:"size_bytes"`
	Privacy          Privacy   `json:"privacy"`
	BlobHandle       string    `json:"-"`
	CreatedAt        time.Time `json:"created_at"`
}

// Filter narrows a listing. Zero values match everything.
type Filter struct {
	Category Category
	Privacy  Privacy
	// Query is matched as a substring against display name, description
	// and tags.
	Query string
}

// ListQuery selects a page of records, newest first.
type ListQuery struct {
	// OwnerID scopes the listing to one owner; empty lists all owners
	// (admin listings only).
	OwnerID  string
	Filter   Filter
	Page     int
	PageSize int
}

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// Window returns the 0-based offset and the page size after applying
// defaults and bounds.
func (q ListQuery) Window() (offset int, limit int) {
	limit = q.PageSize
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	page := q.Page
	if page < 1 {
		page = 1
	}

	return (page - 1) * limit, limit
}

// UsageStats aggregates one owner's live catalog state.
type UsageStats struct {
	TotalCount int64              `json:"total_count"`
	ByCategory map[Category]int64 `json:"by_category"`
	TotalBytes int64              `json:"total_bytes"`
}

// NewUsageStats returns zeroed stats with every category present, so callers
// always see all four buckets.
func NewUsageStats() *UsageStats {
	by := make(map[Category]int64, 4)
	for _, c := range Categories() {
		by[c] = 0
	}

	return &UsageStats{ByCategory: by}
}

// Store is the metadata record store.
//
// Implementations are safe for concurrent use. Delete reports ErrNotFound
// for an absent id. List returns the page plus the total match count.
// Stats is computed from live state, never cached.
type Store interface {
	Create(ctx context.Context, rec *MediaRecord) error
	Get(ctx context.Context, id string) (*MediaRecord, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, q ListQuery) ([]*MediaRecord, int, error)
	Stats(ctx context.Context, ownerID string) (*UsageStats, error)
}
