package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteDB is the local order store.
type SQLiteDB struct {
	db *sql.DB
}

// OpenSQLite opens or creates a SQLite database at the given path.
func OpenSQLite(path string) (*SQLiteDB, error) {
	// Concurrent batch workers share the file, so writers wait for the lock.
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for better concurrent access.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	if err := createSQLiteSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteDB{db: db}, nil
}

// Close closes the database connection.
func (d *SQLiteDB) Close() error {
	return d.db.Close()
}

func createSQLiteSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS orders (
		id              TEXT PRIMARY KEY,
		template        TEXT NOT NULL,
		order_reference TEXT NOT NULL,
		filename        TEXT,
		raw_text        TEXT NOT NULL,
		payload_json    TEXT NOT NULL,
		provenance_json TEXT NOT NULL,
		defaulted       TEXT,
		confidence      REAL NOT NULL DEFAULT 0,
		needs_review    INTEGER NOT NULL DEFAULT 0,
		created_at      TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_orders_template ON orders(template);
	CREATE INDEX IF NOT EXISTS idx_orders_reference ON orders(order_reference);
	CREATE INDEX IF NOT EXISTS idx_orders_review ON orders(needs_review);

	-- FTS5 virtual table for full-text search on the document text.
	CREATE VIRTUAL TABLE IF NOT EXISTS orders_fts USING fts5(
		raw_text,
		content='orders',
		content_rowid='rowid'
	);

	-- Triggers to keep FTS index in sync.
	CREATE TRIGGER IF NOT EXISTS orders_ai AFTER INSERT ON orders BEGIN
		INSERT INTO orders_fts(rowid, raw_text) VALUES (new.rowid, new.raw_text);
	END;

	CREATE TRIGGER IF NOT EXISTS orders_ad AFTER DELETE ON orders BEGIN
		INSERT INTO orders_fts(orders_fts, rowid, raw_text) VALUES('delete', old.rowid, old.raw_text);
	END;

	CREATE TRIGGER IF NOT EXISTS orders_au AFTER UPDATE ON orders BEGIN
		INSERT INTO orders_fts(orders_fts, rowid, raw_text) VALUES('delete', old.rowid, old.raw_text);
		INSERT INTO orders_fts(rowid, raw_text) VALUES (new.rowid, new.raw_text);
	END;
	`
	_, err := db.Exec(schema)
	return err
}

// SaveOrder stores r, replacing any order with the same ID.
func (d *SQLiteDB) SaveOrder(ctx context.Context, r Record) error {
	payload, err := json.Marshal(r.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	prov, err := json.Marshal(r.Provenance)
	if err != nil {
		return fmt.Errorf("marshal provenance: %w", err)
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	_, err = d.db.ExecContext(ctx, `
		INSERT INTO orders (id, template, order_reference, filename, raw_text, payload_json, provenance_json, defaulted, confidence, needs_review, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			template = excluded.template,
			order_reference = excluded.order_reference,
			filename = excluded.filename,
			raw_text = excluded.raw_text,
			payload_json = excluded.payload_json,
			provenance_json = excluded.provenance_json,
			defaulted = excluded.defaulted,
			confidence = excluded.confidence,
			needs_review = excluded.needs_review
	`, r.ID, r.Template, r.Reference, r.Filename, r.RawText, string(payload), string(prov),
		joinFields(r.Provenance.Defaulted()), r.Confidence, boolInt(r.NeedsReview), r.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

const sqliteColumns = `o.id, o.template, o.order_reference, o.filename, o.raw_text, o.payload_json,
	o.provenance_json, o.confidence, o.needs_review, o.created_at`

// GetOrder returns the order with the given ID, or ErrNotFound.
func (d *SQLiteDB) GetOrder(ctx context.Context, id string) (*Record, error) {
	row := d.db.QueryRowContext(ctx, `SELECT `+sqliteColumns+` FROM orders o WHERE o.id = ?`, id)
	r, err := scanSQLiteOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	return r, nil
}

// ListOrders returns orders matching p, newest first.
func (d *SQLiteDB) ListOrders(ctx context.Context, p ListParams) ([]Record, error) {
	var conditions []string
	var args []any

	if p.Template != "" {
		conditions = append(conditions, "o.template = ?")
		args = append(args, p.Template)
	}
	if p.Reference != "" {
		conditions = append(conditions, "o.order_reference LIKE ?")
		args = append(args, "%"+p.Reference+"%")
	}
	if p.NeedsReview {
		conditions = append(conditions, "o.needs_review = 1")
	}

	// FTS5 search requires a JOIN with the FTS table.
	query := `SELECT ` + sqliteColumns + ` FROM orders o`
	if p.FullText != "" {
		query += ` JOIN orders_fts fts ON o.rowid = fts.rowid`
		conditions = append([]string{"orders_fts MATCH ?"}, conditions...)
		args = append([]any{p.FullText}, args...)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY o.created_at DESC, o.rowid DESC LIMIT %d OFFSET %d", p.limit(), p.Offset)

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Record
	for rows.Next() {
		r, err := scanSQLiteOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteOrder(s rowScanner) (*Record, error) {
	var (
		r                 Record
		filename          sql.NullString
		payload, prov, ts string
		review            int
	)
	if err := s.Scan(&r.ID, &r.Template, &r.Reference, &filename, &r.RawText, &payload, &prov,
		&r.Confidence, &review, &ts); err != nil {
		return nil, err
	}
	r.Filename = filename.String
	r.NeedsReview = review == 1
	r.CreatedAt, _ = time.Parse(time.RFC3339, ts)
	if err := json.Unmarshal([]byte(payload), &r.Payload); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	if err := json.Unmarshal([]byte(prov), &r.Provenance); err != nil {
		return nil, fmt.Errorf("decode provenance: %w", err)
	}
	return &r, nil
}

// Stats is an aggregate view of the stored orders.
type Stats struct {
	TotalOrders    int            `json:"total_orders"`
	NeedsReview    int            `json:"needs_review"`
	ByTemplate     map[string]int `json:"by_template"`
	TopDefaulted   map[string]int `json:"top_defaulted"`
	MeanConfidence float64        `json:"mean_confidence"`
}

// GetStats returns statistics about the stored orders.
func (d *SQLiteDB) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{
		ByTemplate:   make(map[string]int),
		TopDefaulted: make(map[string]int),
	}

	row := d.db.QueryRowContext(ctx, "SELECT COUNT(*), COALESCE(SUM(needs_review), 0), COALESCE(AVG(confidence), 0) FROM orders")
	if err := row.Scan(&stats.TotalOrders, &stats.NeedsReview, &stats.MeanConfidence); err != nil {
		return nil, err
	}

	rows, err := d.db.QueryContext(ctx, "SELECT template, COUNT(*) FROM orders GROUP BY template ORDER BY COUNT(*) DESC")
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var name string
		var count int
		if err := rows.Scan(&name, &count); err != nil {
			_ = rows.Close()
			return nil, err
		}
		stats.ByTemplate[name] = count
	}
	_ = rows.Close()

	// Defaulted fields are stored comma-separated.
	rows, err = d.db.QueryContext(ctx, "SELECT defaulted FROM orders WHERE defaulted != '' AND defaulted IS NOT NULL")
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var fields string
		if err := rows.Scan(&fields); err != nil {
			_ = rows.Close()
			return nil, err
		}
		for _, f := range splitFields(fields) {
			stats.TopDefaulted[f]++
		}
	}
	_ = rows.Close()

	return stats, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
