package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/indieinfra/stash/config"
	"github.com/indieinfra/stash/storage/blob"
	storageutil "github.com/indieinfra/stash/storage/util"
)

// nameAttempts bounds retries on a generated-name collision before the
// collision is surfaced to the caller as retryable.
const nameAttempts = 3

// Store persists blobs as files under a date-partitioned directory tree.
// Handles are slash-separated paths relative to the base directory; the
// original filename never appears on disk.
type Store struct {
	basePath string
	pattern  *storageutil.PathPattern
	maxBytes int64

	mu        sync.Mutex
	lastStamp int64
}

// NewFilesystemBlobStore creates a new filesystem-backed blob store.
// maxBytes caps a single blob; zero disables the limit.
func NewFilesystemBlobStore(cfg *config.FilesystemBlobStrategy, maxBytes int64) (*Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("filesystem blob config is nil")
	}

	if err := os.MkdirAll(cfg.Path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	pattern := storageutil.DefaultBlobPattern()
	if cfg.PathPattern != "" {
		pattern = storageutil.NewPathPattern(cfg.PathPattern)
	}

	return &Store{
		basePath: cfg.Path,
		pattern:  pattern,
		maxBytes: maxBytes,
	}, nil
}

// Put streams the payload to a freshly named file and fsyncs it before
// returning the handle. A partial file left by a mid-stream failure is
// removed, never handed out.
func (fs *Store) Put(ctx context.Context, r io.Reader, opts blob.PutOptions) (*blob.PutResult, error) {
	if r == nil {
		return nil, fmt.Errorf("nil payload reader")
	}

	field := sanitizeField(opts.Field)
	ext := sanitizeExt(opts.Ext)

	var lastErr error
	for attempt := 0; attempt < nameAttempts; attempt++ {
		now := time.Now()
		name := fmt.Sprintf("%s-%d-%s", field, fs.stamp(now), randomSuffix())

		relPath, err := fs.pattern.Generate(name, now, ext)
		if err != nil {
			return nil, fmt.Errorf("failed to generate path: %w", err)
		}

		absPath := filepath.Join(fs.basePath, filepath.FromSlash(relPath))
		if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}

		out, err := os.OpenFile(absPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if errors.Is(err, iofs.ErrExist) {
			lastErr = fmt.Errorf("path %q already taken: %w", relPath, blob.ErrCollision)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create file: %w", err)
		}

		written, err := io.Copy(out, blob.LimitBytes(r, fs.maxBytes))
		if err == nil {
			err = out.Sync()
		}
		if closeErr := out.Close(); err == nil {
			err = closeErr
		}

		if err != nil {
			_ = os.Remove(absPath)
			if errors.Is(err, blob.ErrQuotaExceeded) {
				return nil, blob.ErrQuotaExceeded
			}
			return nil, fmt.Errorf("failed to write blob: %w", err)
		}

		syncDir(filepath.Dir(absPath))

		return &blob.PutResult{
			Handle: filepath.ToSlash(relPath),
			Size:   written,
		}, nil
	}

	return nil, lastErr
}

// Open returns a lazily read stream over the stored file.
func (fs *Store) Open(ctx context.Context, handle string) (io.ReadCloser, error) {
	absPath, err := fs.resolve(handle)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(absPath)
	if errors.Is(err, iofs.ErrNotExist) {
		return nil, blob.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open blob: %w", err)
	}

	return f, nil
}

// Delete removes the stored file. A missing file reports blob.ErrNotFound,
// distinct from a hard I/O failure.
func (fs *Store) Delete(ctx context.Context, handle string) error {
	absPath, err := fs.resolve(handle)
	if err != nil {
		return err
	}

	err = os.Remove(absPath)
	if errors.Is(err, iofs.ErrNotExist) {
		return blob.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to remove blob: %w", err)
	}

	return nil
}

// resolve maps a handle back to an absolute path, rejecting anything that
// would escape the base directory.
func (fs *Store) resolve(handle string) (string, error) {
	if handle == "" {
		return "", fmt.Errorf("empty blob handle: %w", blob.ErrNotFound)
	}

	rel := filepath.FromSlash(handle)
	if filepath.IsAbs(rel) || !filepath.IsLocal(rel) {
		return "", fmt.Errorf("handle %q escapes storage root: %w", handle, blob.ErrNotFound)
	}

	return filepath.Join(fs.basePath, rel), nil
}

// stamp returns a millisecond timestamp that never repeats or goes backwards
// within this process, so generated names stay unique across a clock step.
func (fs *Store) stamp(now time.Time) int64 {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	ms := now.UnixMilli()
	if ms <= fs.lastStamp {
		ms = fs.lastStamp + 1
	}
	fs.lastStamp = ms

	return ms
}

func randomSuffix() string {
	return uuid.New().String()[:8]
}

func sanitizeField(field string) string {
	field = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return -1
		}
	}, field)

	if field == "" {
		return "file"
	}

	return field
}

func sanitizeExt(ext string) string {
	ext = strings.TrimSpace(ext)
	if ext == "" || ext == "." {
		return ""
	}

	ext = strings.TrimPrefix(ext, ".")
	if strings.ContainsAny(ext, "/\\.") {
		return ""
	}

	return "." + ext
}

// syncDir flushes a directory entry so a crash cannot forget a confirmed
// blob. Failure is ignored: the data itself is already synced.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	defer d.Close()

	_ = d.Sync()
}
