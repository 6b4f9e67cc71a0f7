package blob

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound indicates that no blob exists under the given handle.
var ErrNotFound = errors.New("blob not found")

// ErrQuotaExceeded indicates the backend refused the payload for exceeding
// its storage limit.
var ErrQuotaExceeded = errors.New("blob storage quota exceeded")

// ErrCollision indicates a generated blob name was already taken. The write
// did not happen and may be retried.
var ErrCollision = errors.New("blob name collision")

// PutOptions carries upload metadata alongside the byte stream.
type PutOptions struct {
	// Field is a short discriminator included in generated blob names.
	// Defaults to "file" when empty.
	Field string
	// Ext is the uploaded file's extension including the leading dot.
	// The original filename itself is never used as a stored name.
	Ext string
	// ContentType is the declared MIME type, stored by backends that keep
	// object-level metadata.
	ContentType string
	// OwnerID is the uploading identity, stored by backends that keep
	// object-level metadata.
	OwnerID string
	// SizeHint is the client-declared size in bytes, or -1 when unknown.
	// Backends may use it for allocation but must not trust it.
	SizeHint int64
}

// PutResult reports a confirmed durable write.
type PutResult struct {
	// Handle is the opaque backend-specific key for the stored blob.
	Handle string
	// Size is the exact number of bytes written.
	Size int64
}

// Store persists raw byte payloads under opaque handles.
//
// Put consumes the reader to completion and returns only after the backend
// has confirmed durability; a failed put never leaves bytes reachable through
// a returned handle. Open produces bytes incrementally without buffering the
// whole payload; callers must close the returned stream. Delete reports
// ErrNotFound for an already-absent handle so callers can choose to ignore it.
type Store interface {
	Put(ctx context.Context, r io.Reader, opts PutOptions) (*PutResult, error)
	Open(ctx context.Context, handle string) (io.ReadCloser, error)
	Delete(ctx context.Context, handle string) error
}

// LimitBytes wraps r so that reading more than max bytes fails with
// ErrQuotaExceeded. A max of zero or less disables the limit.
func LimitBytes(r io.Reader, max int64) io.Reader {
	if max <= 0 {
		return r
	}

	return &limitedReader{r: r, remaining: max}
}

type limitedReader struct {
	r         io.Reader
	remaining int64
	exceeded  bool
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if l.exceeded {
		return 0, ErrQuotaExceeded
	}

	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		l.exceeded = true
		return n, ErrQuotaExceeded
	}

	return n, err
}
