package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/indieinfra/stash/storage/blob"
	"github.com/indieinfra/stash/storage/catalog"
)

// Remove deletes a record and its blob: blob first, record second, so a
// record never points at bytes that were removed outside this operation.
// Only the owner or an admin may delete; privacy plays no part here. An
// already-missing blob is tolerated and logged. If the record delete fails
// after the blob is gone, the result is reported as ErrInconsistent, a
// retryable state, never masked as success.
func (e *Engine) Remove(ctx context.Context, id string, ident *Identity) error {
	if id == "" {
		return ErrNotFound
	}

	rec, err := e.catalog.Get(ctx, id)
	if errors.Is(err, catalog.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("catalog fetch failed: %w", err)
	}

	if ident == nil || (!ident.Admin && ident.OwnerID != rec.OwnerID) {
		return ErrForbidden
	}

	if err := e.blobs.Delete(ctx, rec.BlobHandle); err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			e.log.Printf("blob %q already missing while deleting record %s", rec.BlobHandle, rec.ID)
		} else {
			return fmt.Errorf("blob delete failed: %w", err)
		}
	}

	if err := e.catalog.Delete(ctx, id); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			// A concurrent delete won the race; the record is gone.
			return ErrNotFound
		}

		return fmt.Errorf("record %s outlived its blob: %w: %w", rec.ID, ErrInconsistent, err)
	}

	return nil
}
