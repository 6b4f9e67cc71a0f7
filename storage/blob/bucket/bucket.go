package bucket

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/indieinfra/stash/config"
	"github.com/indieinfra/stash/storage/blob"
	storageutil "github.com/indieinfra/stash/storage/util"
)

type placeholderStyle int

const (
	placeholderQuestion placeholderStyle = iota
	placeholderDollar
)

// DefaultChunkSize is the stored chunk length when the config does not set one.
const DefaultChunkSize = 255 * 1024

// Store keeps blobs chunked inside a SQL database. Handles are the generated
// blob row ids. The blob row carries content type and owner independently of
// any catalog record, so stored bytes stay recoverable even if the catalog
// loses track of them.
type Store struct {
	cfg         *config.BucketBlobStrategy
	db          *sql.DB
	blobTable   string
	chunkTable  string
	placeholder placeholderStyle
	chunkSize   int
	maxBytes    int64
}

// NewBucketBlobStore opens the database and ensures the schema exists.
// maxBytes caps a single blob; zero disables the limit.
func NewBucketBlobStore(cfg *config.BucketBlobStrategy, maxBytes int64) (*Store, error) {
	store, err := newBucketBlobStoreWithDB(cfg, nil, maxBytes)
	if err != nil {
		return nil, err
	}

	driverName, err := resolveSQLDriverName(cfg.Driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driverName, cfg.DSN)
	if err != nil {
		return nil, err
	}

	store.db = db

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := store.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func newBucketBlobStoreWithDB(cfg *config.BucketBlobStrategy, db *sql.DB, maxBytes int64) (*Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bucket blob config is nil")
	}

	prefix := "stash"
	if cfg.TablePrefix != nil {
		prefix = *cfg.TablePrefix
	}

	placeholder, err := detectPlaceholderStyle(cfg.Driver)
	if err != nil {
		return nil, err
	}

	chunkSize := cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	return &Store{
		cfg:         cfg,
		db:          db,
		blobTable:   storageutil.DeriveTableName(prefix, "blobs"),
		chunkTable:  storageutil.DeriveTableName(prefix, "blob_chunks"),
		placeholder: placeholder,
		chunkSize:   chunkSize,
		maxBytes:    maxBytes,
	}, nil
}

// Close releases the underlying database handle.
func (bs *Store) Close() error {
	if bs.db == nil {
		return nil
	}

	return bs.db.Close()
}

func detectPlaceholderStyle(driver string) (placeholderStyle, error) {
	driverName, err := resolveSQLDriverName(driver)
	if err != nil {
		return placeholderQuestion, err
	}

	if driverName == "pgx" {
		return placeholderDollar, nil
	}

	return placeholderQuestion, nil
}

func resolveSQLDriverName(driver string) (string, error) {
	switch strings.ToLower(driver) {
	case "postgres":
		return "pgx", nil
	case "mysql":
		return "mysql", nil
	default:
		return "", fmt.Errorf("unsupported sql driver %q", driver)
	}
}

func (bs *Store) placeholders(n int) string {
	out := make([]string, n)
	for i := range out {
		if bs.placeholder == placeholderDollar {
			out[i] = fmt.Sprintf("$%d", i+1)
		} else {
			out[i] = "?"
		}
	}

	return strings.Join(out, ", ")
}

func (bs *Store) initSchema(ctx context.Context) error {
	for _, q := range bs.schemaQueries() {
		if _, err := bs.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}

	return nil
}

func (bs *Store) schemaQueries() []string {
	binary := "LONGBLOB"
	if bs.placeholder == placeholderDollar {
		binary = "BYTEA"
	}

	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
id VARCHAR(36) PRIMARY KEY,
content_type VARCHAR(255) NOT NULL,
owner_id VARCHAR(64) NOT NULL,
size BIGINT NOT NULL,
chunk_size INT NOT NULL,
chunk_count INT NOT NULL,
created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`, bs.blobTable),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
blob_id VARCHAR(36) NOT NULL,
seq INT NOT NULL,
data %s NOT NULL,
PRIMARY KEY (blob_id, seq)
)`, bs.chunkTable, binary),
	}
}

func (bs *Store) insertChunkQuery() string {
	return fmt.Sprintf("INSERT INTO %s (blob_id, seq, data) VALUES (%s)", bs.chunkTable, bs.placeholders(3))
}

func (bs *Store) insertBlobQuery() string {
	return fmt.Sprintf("INSERT INTO %s (id, content_type, owner_id, size, chunk_size, chunk_count) VALUES (%s)", bs.blobTable, bs.placeholders(6))
}

func (bs *Store) selectBlobQuery() string {
	return fmt.Sprintf("SELECT id FROM %s WHERE id = %s LIMIT 1", bs.blobTable, bs.placeholders(1))
}

func (bs *Store) selectChunksQuery() string {
	return fmt.Sprintf("SELECT data FROM %s WHERE blob_id = %s ORDER BY seq", bs.chunkTable, bs.placeholders(1))
}

func (bs *Store) deleteBlobQuery() string {
	return fmt.Sprintf("DELETE FROM %s WHERE id = %s", bs.blobTable, bs.placeholders(1))
}

func (bs *Store) deleteChunksQuery() string {
	return fmt.Sprintf("DELETE FROM %s WHERE blob_id = %s", bs.chunkTable, bs.placeholders(1))
}

// Put streams the payload into chunk rows inside a single transaction. The
// commit is the durability point; any failure rolls the transaction back, so
// partial bytes are never reachable through a handle.
func (bs *Store) Put(ctx context.Context, r io.Reader, opts blob.PutOptions) (*blob.PutResult, error) {
	if r == nil {
		return nil, fmt.Errorf("nil payload reader")
	}

	id := uuid.New().String()

	tx, err := bs.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin blob transaction: %w", err)
	}

	limited := blob.LimitBytes(r, bs.maxBytes)
	buf := make([]byte, bs.chunkSize)

	var size int64
	seq := 0
	for {
		n, readErr := readChunk(limited, buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])

			if _, err := tx.ExecContext(ctx, bs.insertChunkQuery(), id, seq, chunk); err != nil {
				_ = tx.Rollback()
				return nil, fmt.Errorf("failed to write chunk %d: %w", seq, err)
			}

			seq++
			size += int64(n)
		}

		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			_ = tx.Rollback()
			if errors.Is(readErr, blob.ErrQuotaExceeded) {
				return nil, blob.ErrQuotaExceeded
			}
			return nil, fmt.Errorf("failed to read payload: %w", readErr)
		}
	}

	if _, err := tx.ExecContext(ctx, bs.insertBlobQuery(), id, opts.ContentType, opts.OwnerID, size, bs.chunkSize, seq); err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("failed to write blob row: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit blob: %w", err)
	}

	return &blob.PutResult{Handle: id, Size: size}, nil
}

// readChunk fills buf as far as the reader allows. It reports io.EOF only
// once no bytes remain, folding io.ErrUnexpectedEOF from a short final chunk.
func readChunk(r io.Reader, buf []byte) (int, error) {
	n, err := io.ReadFull(r, buf)
	if err == io.ErrUnexpectedEOF {
		err = io.EOF
	}

	return n, err
}

// Open verifies the blob row exists and returns a reader that walks the
// chunk rows lazily, one database row at a time.
func (bs *Store) Open(ctx context.Context, handle string) (io.ReadCloser, error) {
	var id string
	err := bs.db.QueryRowContext(ctx, bs.selectBlobQuery(), handle).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, blob.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up blob: %w", err)
	}

	rows, err := bs.db.QueryContext(ctx, bs.selectChunksQuery(), handle)
	if err != nil {
		return nil, fmt.Errorf("failed to open chunk stream: %w", err)
	}

	return &chunkReader{rows: rows}, nil
}

// Delete removes the blob row and its chunks in one transaction. An absent
// blob reports blob.ErrNotFound.
func (bs *Store) Delete(ctx context.Context, handle string) error {
	tx, err := bs.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin delete transaction: %w", err)
	}

	res, err := tx.ExecContext(ctx, bs.deleteBlobQuery(), handle)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to delete blob row: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to check delete result: %w", err)
	}

	if affected == 0 {
		_ = tx.Rollback()
		return blob.ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, bs.deleteChunksQuery(), handle); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to delete chunks: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}

	return nil
}

// chunkReader yields blob bytes chunk row by chunk row.
type chunkReader struct {
	rows *sql.Rows
	cur  []byte
	err  error
}

func (cr *chunkReader) Read(p []byte) (int, error) {
	for len(cr.cur) == 0 {
		if cr.err != nil {
			return 0, cr.err
		}

		if !cr.rows.Next() {
			if err := cr.rows.Err(); err != nil {
				cr.err = fmt.Errorf("chunk stream failed: %w", err)
			} else {
				cr.err = io.EOF
			}
			return 0, cr.err
		}

		var data []byte
		if err := cr.rows.Scan(&data); err != nil {
			cr.err = fmt.Errorf("failed to scan chunk: %w", err)
			return 0, cr.err
		}

		cr.cur = data
	}

	n := copy(p, cr.cur)
	cr.cur = cr.cur[n:]

	return n, nil
}

func (cr *chunkReader) Close() error {
	return cr.rows.Close()
}
