package engine

import (
	"context"
	"fmt"

	"github.com/indieinfra/stash/storage/catalog"
)

// Stats reports one owner's live usage: record count, counts per category
// and total stored bytes. Always computed fresh from the catalog so uploads
// and deletes are reflected on the next call.
func (e *Engine) Stats(ctx context.Context, ownerID string) (*catalog.UsageStats, error) {
	if ownerID == "" {
		return nil, &ValidationError{Field: "owner", Reason: "missing identity"}
	}

	stats, err := e.catalog.Stats(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("usage aggregation failed: %w", err)
	}

	return stats, nil
}
