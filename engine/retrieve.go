package engine

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/indieinfra/stash/storage/blob"
	"github.com/indieinfra/stash/storage/catalog"
)

// Download is an authorized, opened media stream. The body yields bytes
// incrementally; the caller must close it.
type Download struct {
	Record      *catalog.MediaRecord
	Body        io.ReadCloser
	ContentType string
}

// Retrieve authorizes the caller against the record, then opens the blob
// stream. The served content type is the exact MIME type captured at upload;
// the coarse per-category type is only a fallback for records without one.
func (e *Engine) Retrieve(ctx context.Context, id string, ident *Identity) (*Download, error) {
	rec, err := e.describe(ctx, id, ident)
	if err != nil {
		return nil, err
	}

	body, err := e.blobs.Open(ctx, rec.BlobHandle)
	if errors.Is(err, blob.ErrNotFound) {
		e.log.Printf("record %s references missing blob %q", rec.ID, rec.BlobHandle)
		return nil, fmt.Errorf("%w: %w", ErrNotFound, ErrInconsistent)
	}
	if err != nil {
		return nil, fmt.Errorf("blob open failed: %w", err)
	}

	contentType := rec.ContentType
	if contentType == "" {
		contentType = fallbackContentType(rec.Category)
	}

	return &Download{
		Record:      rec,
		Body:        body,
		ContentType: contentType,
	}, nil
}

// Describe returns the record metadata under the same visibility rules as
// Retrieve, without opening the blob.
func (e *Engine) Describe(ctx context.Context, id string, ident *Identity) (*catalog.MediaRecord, error) {
	return e.describe(ctx, id, ident)
}

func (e *Engine) describe(ctx context.Context, id string, ident *Identity) (*catalog.MediaRecord, error) {
	if id == "" {
		return nil, ErrNotFound
	}

	rec, err := e.catalog.Get(ctx, id)
	if errors.Is(err, catalog.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("catalog fetch failed: %w", err)
	}

	if !canRead(rec, ident) {
		return nil, ErrForbidden
	}

	return rec, nil
}

// canRead implements the visibility policy: public records are readable by
// anyone; any non-public record only by its owner or an admin.
func canRead(rec *catalog.MediaRecord, ident *Identity) bool {
	if rec.Privacy == catalog.PrivacyPublic {
		return true
	}

	if ident == nil {
		return false
	}

	return ident.Admin || ident.OwnerID == rec.OwnerID
}

// fallbackContentType collapses a category to a generic MIME type, used
// only for records that predate exact content-type capture.
func fallbackContentType(category catalog.Category) string {
	switch category {
	case catalog.CategoryImage:
		return "image/jpeg"
	case catalog.CategoryVideo:
		return "video/mp4"
	case catalog.CategoryAudio:
		return "audio/mpeg"
	default:
		return "application/octet-stream"
	}
}
