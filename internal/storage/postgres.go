package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"booking_parser/internal/order"
)

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// PostgresDB wraps a PostgreSQL connection pool for order storage.
type PostgresDB struct {
	pool *pgxpool.Pool
}

// OpenPostgres opens a connection pool to PostgreSQL.
func OpenPostgres(ctx context.Context, cfg PostgresConfig) (*PostgresDB, error) {
	connStr := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database)

	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	// Test the connection.
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresDB{pool: pool}, nil
}

// Close closes the PostgreSQL connection pool.
func (d *PostgresDB) Close() {
	d.pool.Close()
}

// CreateSchema creates the PostgreSQL tables.
func (d *PostgresDB) CreateSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS orders (
		id                  TEXT PRIMARY KEY,
		template            TEXT NOT NULL,
		order_reference     TEXT NOT NULL,
		filename            TEXT,
		freight_price       NUMERIC(14, 2) NOT NULL DEFAULT 0,
		freight_currency    TEXT NOT NULL,
		customer_company    TEXT,
		comment             TEXT,
		payload             JSONB NOT NULL,
		provenance          JSONB NOT NULL,
		confidence          DOUBLE PRECISION NOT NULL DEFAULT 0,
		needs_review        BOOLEAN NOT NULL DEFAULT FALSE,
		created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_orders_reference ON orders(order_reference);
	CREATE INDEX IF NOT EXISTS idx_orders_template ON orders(template);
	CREATE INDEX IF NOT EXISTS idx_orders_review ON orders(needs_review) WHERE needs_review;

	-- One row per loading or delivery stop, for route queries.
	CREATE TABLE IF NOT EXISTS order_stops (
		order_id        TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		role            TEXT NOT NULL,
		sequence        INTEGER NOT NULL,
		company         TEXT,
		city            TEXT,
		postal_code     TEXT,
		country         TEXT,
		datetime_from   TEXT,
		datetime_to     TEXT,
		PRIMARY KEY (order_id, role, sequence)
	);

	CREATE INDEX IF NOT EXISTS idx_order_stops_country ON order_stops(country, postal_code);
	`
	if _, err := d.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// SaveOrder creates or replaces an order and its stops in one transaction.
func (d *PostgresDB) SaveOrder(ctx context.Context, r Record) error {
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

	tx, err := d.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO orders (id, template, order_reference, filename, freight_price, freight_currency,
			customer_company, comment, payload, provenance, confidence, needs_review, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			template = EXCLUDED.template,
			order_reference = EXCLUDED.order_reference,
			filename = EXCLUDED.filename,
			freight_price = EXCLUDED.freight_price,
			freight_currency = EXCLUDED.freight_currency,
			customer_company = EXCLUDED.customer_company,
			comment = EXCLUDED.comment,
			payload = EXCLUDED.payload,
			provenance = EXCLUDED.provenance,
			confidence = EXCLUDED.confidence,
			needs_review = EXCLUDED.needs_review,
			updated_at = NOW()
	`, r.ID, r.Template, r.Reference, r.Filename, r.Payload.FreightPrice, r.Payload.FreightCurrency,
		r.Payload.Customer.Details.Company, r.Payload.Comment, payload, prov, r.Confidence, r.NeedsReview, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert order: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM order_stops WHERE order_id = $1`, r.ID); err != nil {
		return fmt.Errorf("clear stops: %w", err)
	}
	batch := &pgx.Batch{}
	queueStops(batch, r.ID, "loading", r.Payload.LoadingLocations)
	queueStops(batch, r.ID, "delivery", r.Payload.DestinationLocations)
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert stops: %w", err)
	}

	return tx.Commit(ctx)
}

func queueStops(b *pgx.Batch, id, role string, stops []order.Stop) {
	for i, s := range stops {
		var from, to string
		if s.Time != nil {
			from, to = s.Time.DatetimeFrom, s.Time.DatetimeTo
		}
		a := s.CompanyAddress
		b.Queue(`
			INSERT INTO order_stops (order_id, role, sequence, company, city, postal_code, country, datetime_from, datetime_to)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, id, role, i, a.Company, a.City, a.PostalCode, a.Country, from, to)
	}
}

const pgColumns = `id, template, order_reference, COALESCE(filename, ''), payload, provenance,
	confidence, needs_review, created_at`

// GetOrder returns the order with the given ID, or ErrNotFound.
func (d *PostgresDB) GetOrder(ctx context.Context, id string) (*Record, error) {
	row := d.pool.QueryRow(ctx, `SELECT `+pgColumns+` FROM orders WHERE id = $1`, id)
	r, err := scanPostgresOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	return r, nil
}

// ListOrders returns orders matching p, newest first. FullText is ignored.
func (d *PostgresDB) ListOrders(ctx context.Context, p ListParams) ([]Record, error) {
	var conditions []string
	var args []any

	if p.Template != "" {
		args = append(args, p.Template)
		conditions = append(conditions, fmt.Sprintf("template = $%d", len(args)))
	}
	if p.Reference != "" {
		args = append(args, "%"+p.Reference+"%")
		conditions = append(conditions, fmt.Sprintf("order_reference ILIKE $%d", len(args)))
	}
	if p.NeedsReview {
		conditions = append(conditions, "needs_review")
	}

	query := `SELECT ` + pgColumns + ` FROM orders`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT %d OFFSET %d", p.limit(), p.Offset)

	rows, err := d.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		r, err := scanPostgresOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// StopsByCountry counts stored stops per country for role.
func (d *PostgresDB) StopsByCountry(ctx context.Context, role string) (map[string]int, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT COALESCE(country, ''), COUNT(*) FROM order_stops WHERE role = $1 GROUP BY 1
	`, role)
	if err != nil {
		return nil, fmt.Errorf("query stops: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var country string
		var n int
		if err := rows.Scan(&country, &n); err != nil {
			return nil, err
		}
		out[country] = n
	}
	return out, rows.Err()
}

func scanPostgresOrder(row pgx.Row) (*Record, error) {
	var (
		r             Record
		payload, prov []byte
	)
	if err := row.Scan(&r.ID, &r.Template, &r.Reference, &r.Filename, &payload, &prov,
		&r.Confidence, &r.NeedsReview, &r.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(payload, &r.Payload); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	if err := json.Unmarshal(prov, &r.Provenance); err != nil {
		return nil, fmt.Errorf("decode provenance: %w", err)
	}
	return &r, nil
}

// Pool returns the underlying connection pool.
func (d *PostgresDB) Pool() *pgxpool.Pool {
	return d.pool
}
