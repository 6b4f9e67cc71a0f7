package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/indieinfra/stash/storage/blob"
	"github.com/indieinfra/stash/storage/catalog"
)

// IngestRequest is one upload: the byte stream plus the metadata that will
// become the catalog record.
type IngestRequest struct {
	Payload      io.Reader
	ContentType  string
	OriginalName string
	// DeclaredSize is the client-declared byte count, or -1 when unknown.
	// It is passed to the blob store as a hint only; the record's size is
	// always the confirmed written length.
	DeclaredSize int64

	DisplayName      string
	Description      string
	Tags             []string
	DeclaredCategory string
	// Privacy falls back to public when empty or invalid.
	Privacy string
}

// Ingest validates the upload, classifies it, writes the blob and then the
// catalog record, in that order, so a record never exists before its bytes
// are durable. If the record write fails, the freshly written blob is
// deleted again; a failed cleanup is logged for out-of-band reconciliation
// rather than silently lost.
func (e *Engine) Ingest(ctx context.Context, ownerID string, req IngestRequest) (*catalog.MediaRecord, error) {
	if ownerID == "" {
		return nil, &ValidationError{Field: "owner", Reason: "missing uploader identity"}
	}

	if req.Payload == nil {
		return nil, &ValidationError{Field: "file", Reason: "no file provided"}
	}

	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		return nil, &ValidationError{Field: "title", Reason: "title must not be empty"}
	}

	category := Classify(req.ContentType)

	res, err := e.blobs.Put(ctx, req.Payload, blob.PutOptions{
		Field:       "file",
		Ext:         filepath.Ext(req.OriginalName),
		ContentType: req.ContentType,
		OwnerID:     ownerID,
		SizeHint:    req.DeclaredSize,
	})
	if err != nil {
		// No cleanup needed here: a failed put leaves nothing referenced.
		return nil, fmt.Errorf("blob write failed: %w", err)
	}

	rec := &catalog.MediaRecord{
		ID:               uuid.New().String(),
		OwnerID:          ownerID,
		DisplayName:      displayName,
		OriginalName:     req.OriginalName,
		Description:      req.Description,
		Tags:             cleanTags(req.Tags),
		DeclaredCategory: strings.TrimSpace(req.DeclaredCategory),
		Category:         category,
		ContentType:      req.ContentType,
		SizeBytes:        res.Size,
		Privacy:          catalog.NormalizePrivacy(req.Privacy),
		BlobHandle:       res.Handle,
		CreatedAt:        time.Now().UTC(),
	}

	if err := e.catalog.Create(ctx, rec); err != nil {
		if delErr := e.blobs.Delete(ctx, res.Handle); delErr != nil && !errors.Is(delErr, blob.ErrNotFound) {
			e.log.Printf("orphaned blob %q left behind after catalog failure: %v", res.Handle, delErr)
		}

		return nil, fmt.Errorf("catalog write failed: %w", err)
	}

	return rec, nil
}

// cleanTags trims whitespace and drops empty entries, preserving order.
func cleanTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}

	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag != "" {
			out = append(out, tag)
		}
	}

	if len(out) == 0 {
		return nil
	}

	return out
}
