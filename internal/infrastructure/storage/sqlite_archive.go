package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"AINewsletter/internal/dedup"
	"AINewsletter/internal/domain"
	"AINewsletter/internal/ports"
)

const deliveriesTable = "deliveries"

const schema = `
CREATE TABLE IF NOT EXISTS deliveries (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id         TEXT NOT NULL,
	delivered_at   TEXT NOT NULL,
	recipient      TEXT NOT NULL,
	category_id    TEXT NOT NULL,
	title          TEXT NOT NULL,
	url            TEXT NOT NULL,
	url_normalized TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_deliveries_run ON deliveries(run_id);
CREATE INDEX IF NOT EXISTS idx_deliveries_url ON deliveries(url_normalized);
`

// Delivery is one archived newsletter item.
type Delivery struct {
	RunID         string
	DeliveredAt   time.Time
	Recipient     string
	CategoryID    string
	Title         string
	URL           string
	URLNormalized string
}

// SQLiteArchive keeps an append-only log of delivered items.
type SQLiteArchive struct {
	db  *sql.DB
	now func() time.Time
}

var _ ports.DeliveryArchive = (*SQLiteArchive)(nil)

// OpenSQLiteArchive opens (and creates when needed) the archive database.
func OpenSQLiteArchive(ctx context.Context, path string) (*SQLiteArchive, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create archive dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init archive schema: %w", err)
	}

	return &SQLiteArchive{db: db, now: time.Now}, nil
}

// Close releases the database handle.
func (a *SQLiteArchive) Close() error {
	if a == nil || a.db == nil {
		return nil
	}
	return a.db.Close()
}

// RecordDeliveries inserts every item of the newsletter under runID in a
// single transaction.
func (a *SQLiteArchive) RecordDeliveries(ctx context.Context, runID string, n domain.Newsletter) error {
	if n.ItemCount() == 0 {
		return nil
	}

	deliveredAt := n.GeneratedAt
	if deliveredAt.IsZero() {
		deliveredAt = a.now()
	}
	stamp := deliveredAt.UTC().Format(time.RFC3339)

	insert := sq.Insert(deliveriesTable).
		Columns("run_id", "delivered_at", "recipient", "category_id", "title", "url", "url_normalized")
	for _, cat := range n.Categories {
		for _, item := range cat.Items {
			insert = insert.Values(runID, stamp, n.Recipient, cat.Category.ID, item.Title, item.URL, dedup.NormalizeURL(item.URL))
		}
	}

	query, args, err := insert.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin archive tx: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert deliveries: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit deliveries: %w", err)
	}
	return nil
}

// Recent returns the latest deliveries, newest first.
func (a *SQLiteArchive) Recent(ctx context.Context, limit int) ([]Delivery, error) {
	builder := sq.Select("run_id", "delivered_at", "recipient", "category_id", "title", "url", "url_normalized").
		From(deliveriesTable).
		OrderBy("id DESC")
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query deliveries: %w", err)
	}
	defer rows.Close()

	var out []Delivery
	for rows.Next() {
		var (
			d     Delivery
			stamp string
		)
		if err := rows.Scan(&d.RunID, &stamp, &d.Recipient, &d.CategoryID, &d.Title, &d.URL, &d.URLNormalized); err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}
		if t, err := time.Parse(time.RFC3339, stamp); err == nil {
			d.DeliveredAt = t
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}
