package engine

import (
	"context"
	"fmt"

	"github.com/indieinfra/stash/storage/catalog"
)

// List returns one owner's records, newest first, plus the total match
// count. Listings are always owner-scoped; cross-owner listings go through
// AdminList.
func (e *Engine) List(ctx context.Context, ownerID string, filter catalog.Filter, page, pageSize int) ([]*catalog.MediaRecord, int, error) {
	if ownerID == "" {
		return nil, 0, &ValidationError{Field: "owner", Reason: "missing identity"}
	}

	items, total, err := e.catalog.List(ctx, catalog.ListQuery{
		OwnerID:  ownerID,
		Filter:   filter,
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("catalog list failed: %w", err)
	}

	return items, total, nil
}

// AdminList returns records across all owners, or one owner's records when
// ownerID is set. Admin only.
func (e *Engine) AdminList(ctx context.Context, ident *Identity, ownerID string, filter catalog.Filter, page, pageSize int) ([]*catalog.MediaRecord, int, error) {
	if ident == nil || !ident.Admin {
		return nil, 0, ErrForbidden
	}

	items, total, err := e.catalog.List(ctx, catalog.ListQuery{
		OwnerID:  ownerID,
		Filter:   filter,
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("catalog list failed: %w", err)
	}

	return items, total, nil
}
