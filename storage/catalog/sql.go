package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/indieinfra/stash/config"
	storageutil "github.com/indieinfra/stash/storage/util"
)

type placeholderStyle int

const (
	placeholderQuestion placeholderStyle = iota
	placeholderDollar
)

// SQLCatalogStore keeps media records in a relational database, reachable
// through either the mysql or the pgx driver.
type SQLCatalogStore struct {
	cfg         *config.SQLCatalogStrategy
	db          *sql.DB
	table       string
	placeholder placeholderStyle
}

// NewSQLCatalogStore opens the database and ensures the schema exists.
func NewSQLCatalogStore(cfg *config.SQLCatalogStrategy) (*SQLCatalogStore, error) {
	store, err := newSQLCatalogStoreWithDB(cfg, nil)
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

func newSQLCatalogStoreWithDB(cfg *config.SQLCatalogStrategy, db *sql.DB) (*SQLCatalogStore, error) {
	if cfg == nil {
		return nil, fmt.Errorf("catalog sql config is nil")
	}

	prefix := "stash"
	if cfg.TablePrefix != nil {
		prefix = *cfg.TablePrefix
	}

	placeholder, err := detectPlaceholderStyle(cfg.Driver)
	if err != nil {
		return nil, err
	}

	return &SQLCatalogStore{
		cfg:         cfg,
		db:          db,
		table:       storageutil.DeriveTableName(prefix, "media"),
		placeholder: placeholder,
	}, nil
}

// Close releases the underlying database handle.
func (cs *SQLCatalogStore) Close() error {
	if cs.db == nil {
		return nil
	}

	return cs.db.Close()
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

func (cs *SQLCatalogStore) ph(n int) string {
	if cs.placeholder == placeholderDollar {
		return fmt.Sprintf("$%d", n)
	}

	return "?"
}

func (cs *SQLCatalogStore) placeholderList(from, count int) string {
	out := make([]string, count)
	for i := range out {
		out[i] = cs.ph(from + i)
	}

	return strings.Join(out, ", ")
}

func (cs *SQLCatalogStore) initSchema(ctx context.Context) error {
	_, err := cs.db.ExecContext(ctx, cs.schemaQuery())
	return err
}

func (cs *SQLCatalogStore) schemaQuery() string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
id VARCHAR(36) PRIMARY KEY,
owner_id VARCHAR(64) NOT NULL,
display_name VARCHAR(255) NOT NULL,
original_name VARCHAR(255) NOT NULL,
description TEXT NOT NULL,
tags TEXT NOT NULL,
declared_category VARCHAR(64) NOT NULL,
category VARCHAR(16) NOT NULL,
content_type VARCHAR(255) NOT NULL,
size_bytes BIGINT NOT NULL,
privacy VARCHAR(16) NOT NULL,
blob_handle TEXT NOT NULL,
created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`, cs.table)
}

const recordColumns = "id, owner_id, display_name, original_name, description, tags, declared_category, category, content_type, size_bytes, privacy, blob_handle, created_at"

func (cs *SQLCatalogStore) insertQuery() string {
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", cs.table, recordColumns, cs.placeholderList(1, 13))
}

func (cs *SQLCatalogStore) selectQuery() string {
	return fmt.Sprintf("SELECT %s FROM %s WHERE id = %s LIMIT 1", recordColumns, cs.table, cs.ph(1))
}

func (cs *SQLCatalogStore) deleteQuery() string {
	return fmt.Sprintf("DELETE FROM %s WHERE id = %s", cs.table, cs.ph(1))
}

func (cs *SQLCatalogStore) statsQuery() string {
	return fmt.Sprintf("SELECT category, COUNT(*), COALESCE(SUM(size_bytes), 0) FROM %s WHERE owner_id = %s GROUP BY category", cs.table, cs.ph(1))
}

// whereClause builds the listing filter; args line up with the generated
// placeholders.
func (cs *SQLCatalogStore) whereClause(q ListQuery) (string, []any) {
	var conds []string
	var args []any

	next := func() string { return cs.ph(len(args) + 1) }

	if q.OwnerID != "" {
		conds = append(conds, fmt.Sprintf("owner_id = %s", next()))
		args = append(args, q.OwnerID)
	}

	if q.Filter.Category != "" {
		conds = append(conds, fmt.Sprintf("category = %s", next()))
		args = append(args, string(q.Filter.Category))
	}

	if q.Filter.Privacy != "" {
		conds = append(conds, fmt.Sprintf("privacy = %s", next()))
		args = append(args, string(q.Filter.Privacy))
	}

	if q.Filter.Query != "" {
		needle := "%" + escapeLike(q.Filter.Query) + "%"

		var likes []string
		for _, col := range []string{"display_name", "description", "tags"} {
			likes = append(likes, fmt.Sprintf("LOWER(%s) LIKE %s", col, next()))
			args = append(args, strings.ToLower(needle))
		}

		conds = append(conds, "("+strings.Join(likes, " OR ")+")")
	}

	if len(conds) == 0 {
		return "", nil
	}

	return " WHERE " + strings.Join(conds, " AND "), args
}

func (cs *SQLCatalogStore) listQuery(q ListQuery) (string, []any) {
	where, args := cs.whereClause(q)

	offset, limit := q.Window()
	query := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY created_at DESC, id DESC LIMIT %s OFFSET %s",
		recordColumns, cs.table, where, cs.ph(len(args)+1), cs.ph(len(args)+2))
	args = append(args, limit, offset)

	return query, args
}

func (cs *SQLCatalogStore) countQuery(q ListQuery) (string, []any) {
	where, args := cs.whereClause(q)
	return fmt.Sprintf("SELECT COUNT(*) FROM %s%s", cs.table, where), args
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}

func (cs *SQLCatalogStore) Create(ctx context.Context, rec *MediaRecord) error {
	if rec == nil || rec.ID == "" {
		return fmt.Errorf("record must have an id")
	}

	tags, err := json.Marshal(rec.Tags)
	if err != nil {
		return fmt.Errorf("failed to encode tags: %w", err)
	}

	_, err = cs.db.ExecContext(ctx, cs.insertQuery(),
		rec.ID, rec.OwnerID, rec.DisplayName, rec.OriginalName, rec.Description,
		string(tags), rec.DeclaredCategory, string(rec.Category), rec.ContentType,
		rec.SizeBytes, string(rec.Privacy), rec.BlobHandle, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert media record: %w", err)
	}

	return nil
}

func (cs *SQLCatalogStore) Get(ctx context.Context, id string) (*MediaRecord, error) {
	row := cs.db.QueryRowContext(ctx, cs.selectQuery(), id)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch media record: %w", err)
	}

	return rec, nil
}

func (cs *SQLCatalogStore) Delete(ctx context.Context, id string) error {
	res, err := cs.db.ExecContext(ctx, cs.deleteQuery(), id)
	if err != nil {
		return fmt.Errorf("failed to delete media record: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}

	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

func (cs *SQLCatalogStore) List(ctx context.Context, q ListQuery) ([]*MediaRecord, int, error) {
	countQuery, countArgs := cs.countQuery(q)

	var total int
	if err := cs.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count media records: %w", err)
	}

	listQuery, listArgs := cs.listQuery(q)
	rows, err := cs.db.QueryContext(ctx, listQuery, listArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list media records: %w", err)
	}
	defer rows.Close()

	records := make([]*MediaRecord, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan media record: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate media records: %w", err)
	}

	return records, total, nil
}

func (cs *SQLCatalogStore) Stats(ctx context.Context, ownerID string) (*UsageStats, error) {
	rows, err := cs.db.QueryContext(ctx, cs.statsQuery(), ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate usage: %w", err)
	}
	defer rows.Close()

	stats := NewUsageStats()
	for rows.Next() {
		var category string
		var count, bytes int64
		if err := rows.Scan(&category, &count, &bytes); err != nil {
			return nil, fmt.Errorf("failed to scan usage row: %w", err)
		}

		stats.TotalCount += count
		stats.TotalBytes += bytes
		stats.ByCategory[Category(category)] += count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate usage rows: %w", err)
	}

	return stats, nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*MediaRecord, error) {
	rec := &MediaRecord{}
	var tags string
	var category, privacy string

	err := row.Scan(
		&rec.ID, &rec.OwnerID, &rec.DisplayName, &rec.OriginalName, &rec.Description,
		&tags, &rec.DeclaredCategory, &category, &rec.ContentType,
		&rec.SizeBytes, &privacy, &rec.BlobHandle, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}

	rec.Category = Category(category)
	rec.Privacy = Privacy(privacy)

	if err := json.Unmarshal([]byte(tags), &rec.Tags); err != nil {
		rec.Tags = nil
	}

	return rec, nil
}
