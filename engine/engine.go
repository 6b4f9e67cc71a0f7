// Package engine coordinates the blob store and the media catalog: it owns
// ingestion, retrieval, deletion and usage accounting, and the ordering that
// keeps the two stores consistent without cross-request locks.
package engine

import (
	"log"

	"github.com/indieinfra/stash/storage/blob"
	"github.com/indieinfra/stash/storage/catalog"
)

// Identity is the authenticated caller as reported by the identity provider.
// The engine trusts it verbatim. A nil *Identity means anonymous.
type Identity struct {
	OwnerID string
	Admin   bool
}

// Logger is a minimal interface allowing substitution (e.g., zap, logrus).
type Logger interface {
	Printf(format string, v ...any)
}

// Engine ties one blob store and one catalog together. It holds no state
// of its own beyond the injected dependencies, so a single instance serves
// all concurrent requests.
type Engine struct {
	catalog catalog.Store
	blobs   blob.Store
	log     Logger
}

func New(cat catalog.Store, blobs blob.Store, logger Logger) *Engine {
	if logger == nil {
		logger = log.Default()
	}

	return &Engine{
		catalog: cat,
		blobs:   blobs,
		log:     logger,
	}
}
