package factory

import (
	"fmt"
	"sync"

	"github.com/indieinfra/stash/config"
	"github.com/indieinfra/stash/storage/blob"
	"github.com/indieinfra/stash/storage/blob/bucket"
	"github.com/indieinfra/stash/storage/blob/filesystem"
	"github.com/indieinfra/stash/storage/blob/s3"
)

// Factory builds a blob store for the provided configuration. The upload
// size limit comes from the server limits section, so factories receive the
// whole config.
type Factory func(*config.Config) (blob.Store, error)

var (
	mu       sync.RWMutex
	registry = map[string]Factory{}
)

// Register adds or replaces a blob store factory for the given strategy name.
func Register(strategy string, factory Factory) {
	mu.Lock()
	registry[strategy] = factory
	mu.Unlock()
}

// Get retrieves a factory for the given strategy.
func Get(strategy string) (Factory, bool) {
	mu.RLock()
	f, ok := registry[strategy]
	mu.RUnlock()
	return f, ok
}

// Create builds a blob store using the registered factory for the configured
// strategy.
func Create(cfg *config.Config) (blob.Store, error) {
	if f, ok := Get(cfg.Blobs.Strategy); ok {
		return f(cfg)
	}

	return nil, fmt.Errorf("unknown blob strategy %q", cfg.Blobs.Strategy)
}

func init() {
	Register("filesystem", func(cfg *config.Config) (blob.Store, error) {
		return filesystem.NewFilesystemBlobStore(cfg.Blobs.Filesystem, int64(cfg.Server.Limits.MaxFileSize))
	})
	Register("bucket", func(cfg *config.Config) (blob.Store, error) {
		return bucket.NewBucketBlobStore(cfg.Blobs.Bucket, int64(cfg.Server.Limits.MaxFileSize))
	})
	Register("s3", func(cfg *config.Config) (blob.Store, error) {
		return s3.NewS3BlobStore(cfg.Blobs.S3, int64(cfg.Server.Limits.MaxFileSize))
	})
}
