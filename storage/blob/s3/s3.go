package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/indieinfra/stash/config"
	"github.com/indieinfra/stash/storage/blob"
)

// s3Client is the subset of the minio client the store needs; tests swap in
// a mock through newMinioClient.
type s3Client interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

var newMinioClient = func(endpoint string, opts *minio.Options) (s3Client, error) {
	c, err := minio.New(endpoint, opts)
	if err != nil {
		return nil, err
	}

	return &minioAdapter{c}, nil
}

// minioAdapter narrows GetObject's return type to io.ReadCloser.
type minioAdapter struct {
	*minio.Client
}

func (a *minioAdapter) GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error) {
	return a.Client.GetObject(ctx, bucketName, objectName, opts)
}

// Store keeps blobs in S3 or any compatible service (R2, Backblaze, MinIO).
// Handles are object keys; owner and content type travel as object metadata.
type Store struct {
	client   s3Client
	bucket   string
	prefix   string
	maxBytes int64
}

// NewS3BlobStore builds a store and verifies the bucket is reachable.
// maxBytes caps a single blob; zero disables the limit.
func NewS3BlobStore(cfg *config.S3BlobStrategy, maxBytes int64) (*Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("s3 blob config is nil")
	}

	region := strings.TrimSpace(cfg.Region)
	if strings.EqualFold(region, "auto") {
		region = ""
	}

	endpointHost := strings.TrimSpace(cfg.Endpoint)
	if endpointHost == "" {
		if region == "" {
			endpointHost = "s3.amazonaws.com"
		} else {
			endpointHost = fmt.Sprintf("s3.%s.amazonaws.com", region)
		}
	} else {
		if parsed, err := url.Parse(endpointHost); err == nil && parsed.Host != "" {
			endpointHost = parsed.Host
		}
	}

	client, err := newMinioClient(endpointHost, &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKeyId, cfg.SecretKeyId, ""),
		Secure:       !cfg.Insecure,
		Region:       region,
		BucketLookup: minio.BucketLookupAuto,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to verify s3 bucket %q: %w", cfg.Bucket, err)
	}

	if !exists {
		return nil, fmt.Errorf("s3 bucket %q does not exist or is not accessible", cfg.Bucket)
	}

	prefix := strings.Trim(cfg.Prefix, "/")
	if prefix != "" {
		prefix += "/"
	}

	return &Store{
		client:   client,
		bucket:   cfg.Bucket,
		prefix:   prefix,
		maxBytes: maxBytes,
	}, nil
}

// Put uploads the payload under a generated, date-partitioned key. The
// service acknowledges the object only once fully stored, so a returned
// handle always refers to a complete blob.
func (s *Store) Put(ctx context.Context, r io.Reader, opts blob.PutOptions) (*blob.PutResult, error) {
	if r == nil {
		return nil, fmt.Errorf("nil payload reader")
	}

	key := s.objectKey(opts)

	putOpts := minio.PutObjectOptions{
		ContentType:  opts.ContentType,
		UserMetadata: map[string]string{"owner-id": opts.OwnerID},
	}

	// Always a streaming upload: a size hint is client-declared and may be
	// short, which would make PutObject stop reading early and silently
	// truncate the blob. The confirmed size comes from the upload itself.
	info, err := s.client.PutObject(ctx, s.bucket, key, blob.LimitBytes(r, s.maxBytes), -1, putOpts)
	if err != nil {
		if errors.Is(err, blob.ErrQuotaExceeded) || isQuotaErr(err) {
			return nil, blob.ErrQuotaExceeded
		}
		return nil, fmt.Errorf("upload to s3 failed: %w", err)
	}

	return &blob.PutResult{Handle: key, Size: info.Size}, nil
}

// Open stats the object first so a missing key surfaces as blob.ErrNotFound
// instead of a lazy mid-stream failure, then returns the object stream.
func (s *Store) Open(ctx context.Context, handle string) (io.ReadCloser, error) {
	if _, err := s.client.StatObject(ctx, s.bucket, handle, minio.StatObjectOptions{}); err != nil {
		return nil, mapS3Error(err, "stat s3 object")
	}

	obj, err := s.client.GetObject(ctx, s.bucket, handle, minio.GetObjectOptions{})
	if err != nil {
		return nil, mapS3Error(err, "get s3 object")
	}

	return obj, nil
}

// Delete removes the object, reporting blob.ErrNotFound for an absent key.
// S3 removals are idempotent, so the key is checked first to keep the
// distinction the contract requires.
func (s *Store) Delete(ctx context.Context, handle string) error {
	if _, err := s.client.StatObject(ctx, s.bucket, handle, minio.StatObjectOptions{}); err != nil {
		return mapS3Error(err, "stat s3 object")
	}

	if err := s.client.RemoveObject(ctx, s.bucket, handle, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete from s3 failed: %w", err)
	}

	return nil
}

func (s *Store) objectKey(opts blob.PutOptions) string {
	field := opts.Field
	if field == "" {
		field = "file"
	}

	ext := opts.Ext
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	now := time.Now()

	return fmt.Sprintf("%s%s/%s-%d-%s%s", s.prefix, now.Format("2006-01-02"), field, now.UnixMilli(), uuid.New().String()[:8], ext)
}

func mapS3Error(err error, op string) error {
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.StatusCode == 404 {
		return blob.ErrNotFound
	}

	return fmt.Errorf("%s failed: %w", op, err)
}

func isQuotaErr(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "QuotaExceeded" || resp.Code == "EntityTooLarge"
}
