package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	cloudflare "github.com/cloudflare/cloudflare-go/v6"
	cfd1 "github.com/cloudflare/cloudflare-go/v6/d1"
	"github.com/cloudflare/cloudflare-go/v6/option"

	"github.com/indieinfra/stash/config"
	storageutil "github.com/indieinfra/stash/storage/util"
)

// D1CatalogStore implements Store over Cloudflare D1 via the HTTP API.
// It mirrors the schema of SQLCatalogStore to keep parity across backends.
type D1CatalogStore struct {
	cfg    *config.D1CatalogStrategy
	client *cloudflare.Client
	table  string
}

// NewD1CatalogStore builds a store and ensures the schema exists.
func NewD1CatalogStore(cfg *config.D1CatalogStrategy) (*D1CatalogStore, error) {
	return newD1CatalogStoreWithClient(cfg, nil)
}

// newD1CatalogStoreWithClient creates a D1 store with a custom HTTP client.
// This is used for testing to inject a mock HTTP client.
func newD1CatalogStoreWithClient(cfg *config.D1CatalogStrategy, client *http.Client) (*D1CatalogStore, error) {
	if cfg == nil {
		return nil, fmt.Errorf("catalog d1 config is nil")
	}

	prefix := "stash"
	if cfg.TablePrefix != nil {
		prefix = *cfg.TablePrefix
	}

	store := &D1CatalogStore{
		cfg:    cfg,
		client: buildD1Client(cfg, client),
		table:  storageutil.DeriveTableName(prefix, "media"),
	}

	if err := store.initSchema(context.Background()); err != nil {
		return nil, err
	}

	return store, nil
}

// buildD1Client creates a Cloudflare client configured with API token and
// optional custom endpoint. The httpClient parameter is used for testing;
// pass nil for production use.
func buildD1Client(cfg *config.D1CatalogStrategy, httpClient *http.Client) *cloudflare.Client {
	opts := []option.RequestOption{option.WithAPIToken(strings.TrimSpace(cfg.APIToken))}

	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}

	if base := strings.TrimSpace(cfg.Endpoint); base != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimSuffix(base, "/")))
	}

	return cloudflare.NewClient(opts...)
}

// initSchema ensures the media table exists. This also serves as a health
// check, validating connectivity and authentication.
func (ds *D1CatalogStore) initSchema(ctx context.Context) error {
	_, err := ds.executeQuery(ctx, ds.schemaQuery(), nil)
	if err != nil {
		return fmt.Errorf("d1 initialization failed (check account_id, database_id, and api_token): %w", err)
	}
	return nil
}

func (ds *D1CatalogStore) schemaQuery() string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
id TEXT PRIMARY KEY,
owner_id TEXT NOT NULL,
display_name TEXT NOT NULL,
original_name TEXT NOT NULL,
description TEXT NOT NULL,
tags TEXT NOT NULL,
declared_category TEXT NOT NULL,
category TEXT NOT NULL,
content_type TEXT NOT NULL,
size_bytes INTEGER NOT NULL,
privacy TEXT NOT NULL,
blob_handle TEXT NOT NULL,
created_at TEXT NOT NULL
)`, ds.table)
}

func (ds *D1CatalogStore) insertQuery() string {
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)", ds.table, recordColumns)
}

func (ds *D1CatalogStore) selectQuery() string {
	return fmt.Sprintf("SELECT %s FROM %s WHERE id = ? LIMIT 1", recordColumns, ds.table)
}

func (ds *D1CatalogStore) deleteQuery() string {
	return fmt.Sprintf("DELETE FROM %s WHERE id = ?", ds.table)
}

func (ds *D1CatalogStore) existsQuery() string {
	return fmt.Sprintf("SELECT 1 FROM %s WHERE id = ? LIMIT 1", ds.table)
}

func (ds *D1CatalogStore) statsQuery() string {
	return fmt.Sprintf("SELECT category, COUNT(*) AS cnt, COALESCE(SUM(size_bytes), 0) AS bytes FROM %s WHERE owner_id = ? GROUP BY category", ds.table)
}

func (ds *D1CatalogStore) Create(ctx context.Context, rec *MediaRecord) error {
	if rec == nil || rec.ID == "" {
		return fmt.Errorf("record must have an id")
	}

	tags, err := json.Marshal(rec.Tags)
	if err != nil {
		return fmt.Errorf("failed to encode tags: %w", err)
	}

	params := []any{
		rec.ID, rec.OwnerID, rec.DisplayName, rec.OriginalName, rec.Description,
		string(tags), rec.DeclaredCategory, string(rec.Category), rec.ContentType,
		rec.SizeBytes, string(rec.Privacy), rec.BlobHandle,
		rec.CreatedAt.UTC().Format(time.RFC3339Nano),
	}

	if _, err := ds.executeQuery(ctx, ds.insertQuery(), params); err != nil {
		return fmt.Errorf("failed to insert media record: %w", err)
	}

	return nil
}

func (ds *D1CatalogStore) Get(ctx context.Context, id string) (*MediaRecord, error) {
	rows, err := ds.executeQuery(ctx, ds.selectQuery(), []any{id})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch media record: %w", err)
	}

	if len(rows) == 0 {
		return nil, ErrNotFound
	}

	return decodeRecord(rows[0])
}

func (ds *D1CatalogStore) Delete(ctx context.Context, id string) error {
	rows, err := ds.executeQuery(ctx, ds.existsQuery(), []any{id})
	if err != nil {
		return fmt.Errorf("failed to check media record: %w", err)
	}

	if len(rows) == 0 {
		return ErrNotFound
	}

	if _, err := ds.executeQuery(ctx, ds.deleteQuery(), []any{id}); err != nil {
		return fmt.Errorf("failed to delete media record: %w", err)
	}

	return nil
}

func (ds *D1CatalogStore) List(ctx context.Context, q ListQuery) ([]*MediaRecord, int, error) {
	where, args := d1WhereClause(q)

	countRows, err := ds.executeQuery(ctx, fmt.Sprintf("SELECT COUNT(*) AS cnt FROM %s%s", ds.table, where), args)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count media records: %w", err)
	}

	total := 0
	if len(countRows) > 0 {
		total = int(numberField(countRows[0], "cnt"))
	}

	offset, limit := q.Window()
	listSQL := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?", recordColumns, ds.table, where)
	rows, err := ds.executeQuery(ctx, listSQL, append(append([]any{}, args...), limit, offset))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list media records: %w", err)
	}

	records := make([]*MediaRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := decodeRecord(row)
		if err != nil {
			return nil, 0, err
		}
		records = append(records, rec)
	}

	return records, total, nil
}

func (ds *D1CatalogStore) Stats(ctx context.Context, ownerID string) (*UsageStats, error) {
	rows, err := ds.executeQuery(ctx, ds.statsQuery(), []any{ownerID})
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate usage: %w", err)
	}

	stats := NewUsageStats()
	for _, row := range rows {
		category, _ := row["category"].(string)
		count := numberField(row, "cnt")
		bytes := numberField(row, "bytes")

		stats.TotalCount += count
		stats.TotalBytes += bytes
		stats.ByCategory[Category(category)] += count
	}

	return stats, nil
}

func d1WhereClause(q ListQuery) (string, []any) {
	var conds []string
	var args []any

	if q.OwnerID != "" {
		conds = append(conds, "owner_id = ?")
		args = append(args, q.OwnerID)
	}

	if q.Filter.Category != "" {
		conds = append(conds, "category = ?")
		args = append(args, string(q.Filter.Category))
	}

	if q.Filter.Privacy != "" {
		conds = append(conds, "privacy = ?")
		args = append(args, string(q.Filter.Privacy))
	}

	if q.Filter.Query != "" {
		needle := "%" + strings.ToLower(escapeLike(q.Filter.Query)) + "%"
		conds = append(conds, `(LOWER(display_name) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\' OR LOWER(tags) LIKE ? ESCAPE '\')`)
		args = append(args, needle, needle, needle)
	}

	if len(conds) == 0 {
		return "", nil
	}

	return " WHERE " + strings.Join(conds, " AND "), args
}

// decodeRecord converts a D1 result row into a MediaRecord. D1 hands back
// JSON-decoded values, so numbers arrive as float64 and everything else as
// strings.
func decodeRecord(row map[string]any) (*MediaRecord, error) {
	rec := &MediaRecord{}

	rec.ID, _ = row["id"].(string)
	rec.OwnerID, _ = row["owner_id"].(string)
	rec.DisplayName, _ = row["display_name"].(string)
	rec.OriginalName, _ = row["original_name"].(string)
	rec.Description, _ = row["description"].(string)
	rec.DeclaredCategory, _ = row["declared_category"].(string)
	rec.ContentType, _ = row["content_type"].(string)
	rec.BlobHandle, _ = row["blob_handle"].(string)

	if category, ok := row["category"].(string); ok {
		rec.Category = Category(category)
	}
	if privacy, ok := row["privacy"].(string); ok {
		rec.Privacy = Privacy(privacy)
	}

	rec.SizeBytes = numberField(row, "size_bytes")

	if tags, ok := row["tags"].(string); ok && tags != "" {
		if err := json.Unmarshal([]byte(tags), &rec.Tags); err != nil {
			rec.Tags = nil
		}
	}

	if raw, ok := row["created_at"].(string); ok {
		created, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, fmt.Errorf("bad created_at %q: %w", raw, err)
		}
		rec.CreatedAt = created
	}

	if rec.ID == "" {
		return nil, fmt.Errorf("d1 row missing id column")
	}

	return rec, nil
}

func numberField(row map[string]any, key string) int64 {
	switch v := row[key].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case json.Number:
		n, _ := v.Int64()
		return n
	case string:
		var n int64
		fmt.Sscan(v, &n)
		return n
	default:
		return 0
	}
}

// executeQuery sends a SQL query to the D1 database and returns the result
// rows. Returns nil rows (no error) when the query succeeds but produces no
// results.
func (ds *D1CatalogStore) executeQuery(ctx context.Context, sql string, params []any) ([]map[string]any, error) {
	body := cfd1.DatabaseQueryParamsBodyD1SingleQuery{Sql: cloudflare.F(sql)}
	if len(params) > 0 {
		body.Params = cloudflare.F(convertParams(params))
	}

	resp, err := ds.client.D1.Database.Query(ctx, ds.cfg.DatabaseID, cfd1.DatabaseQueryParams{
		AccountID: cloudflare.F(strings.TrimSpace(ds.cfg.AccountID)),
		Body:      body,
	})
	if err != nil {
		return nil, err
	}

	if resp == nil || len(resp.Result) == 0 {
		return nil, nil
	}

	result := resp.Result[0]
	if !result.Success {
		return nil, fmt.Errorf("d1 query execution failed")
	}

	rows := make([]map[string]any, 0, len(result.Results))
	for _, r := range result.Results {
		m, ok := r.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("unexpected row type %T", r)
		}
		rows = append(rows, m)
	}

	return rows, nil
}

// convertParams converts query parameters to D1's string-based parameter
// format. Booleans are converted to "1" (true) or "0" (false); all other
// types use Sprint.
func convertParams(params []any) []string {
	if len(params) == 0 {
		return nil
	}

	out := make([]string, 0, len(params))
	for _, p := range params {
		switch v := p.(type) {
		case bool:
			if v {
				out = append(out, "1")
			} else {
				out = append(out, "0")
			}
		default:
			out = append(out, fmt.Sprint(p))
		}
	}

	return out
}
