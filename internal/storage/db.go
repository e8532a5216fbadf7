// Package storage persists extracted booking orders.
//
// SQLite holds a local searchable copy for the CLI and the API, PostgreSQL
// is the order system of record and ClickHouse keeps one analytics event
// per extraction.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"booking_parser/internal/document"
	"booking_parser/internal/extractor"
	"booking_parser/internal/order"
	"booking_parser/internal/quality"
)

// ErrNotFound is returned when a lookup matches no order.
var ErrNotFound = errors.New("order not found")

// Config holds database connection settings for ClickHouse and PostgreSQL.
type Config struct {
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
	Postgres   PostgresConfig   `yaml:"postgres"`
}

// DefaultConfig returns a configuration with default local development settings.
func DefaultConfig() Config {
	return Config{
		ClickHouse: ClickHouseConfig{
			Host:     "localhost",
			Port:     9000,
			Database: "bookings",
			User:     "default",
			Password: "",
		},
		Postgres: PostgresConfig{
			Host:     "localhost",
			Port:     5432,
			Database: "bookings",
			User:     "bookings",
			Password: "bookings",
		},
	}
}

// Record is one stored extraction.
type Record struct {
	ID          string           `json:"id"`
	Template    string           `json:"template"`
	Reference   string           `json:"order_reference"`
	Filename    string           `json:"filename,omitempty"`
	RawText     string           `json:"-"`
	Payload     order.Payload    `json:"payload"`
	Provenance  order.Provenance `json:"provenance"`
	Confidence  float64          `json:"confidence"`
	NeedsReview bool             `json:"needs_review"`
	CreatedAt   time.Time        `json:"created_at"`
}

// NewRecord builds the stored form of an extraction.
func NewRecord(doc *document.Document, res *extractor.Result) Record {
	rep := quality.Assess(res)
	return Record{
		ID:          doc.ID,
		Template:    res.Template,
		Reference:   res.Payload.OrderReference,
		Filename:    doc.Filename,
		RawText:     doc.Text(),
		Payload:     res.Payload,
		Provenance:  res.Provenance,
		Confidence:  rep.Confidence,
		NeedsReview: rep.NeedsReview,
		CreatedAt:   time.Now().UTC(),
	}
}

// ListParams filters order listings.
type ListParams struct {
	Template    string // exact match
	Reference   string // substring match
	FullText    string // search over the document text, SQLite only
	NeedsReview bool   // only low-confidence orders
	Limit       int    // default 100
	Offset      int
}

func (p ListParams) limit() int {
	if p.Limit <= 0 || p.Limit > 1000 {
		return 100
	}
	return p.Limit
}

// OrderStore is implemented by the SQLite and PostgreSQL stores.
type OrderStore interface {
	SaveOrder(ctx context.Context, r Record) error
	GetOrder(ctx context.Context, id string) (*Record, error)
	ListOrders(ctx context.Context, p ListParams) ([]Record, error)
}

// EventSink receives one analytics event per extraction.
type EventSink interface {
	RecordEvent(ctx context.Context, e Event) error
}

// DB wraps both ClickHouse and PostgreSQL connections.
type DB struct {
	CH *ClickHouseDB // ClickHouse for extraction analytics.
	PG *PostgresDB   // PostgreSQL for orders.
}

// Open opens connections to both ClickHouse and PostgreSQL.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	ch, err := OpenClickHouse(ctx, cfg.ClickHouse)
	if err != nil {
		return nil, fmt.Errorf("clickhouse: %w", err)
	}

	pg, err := OpenPostgres(ctx, cfg.Postgres)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("postgres: %w", err)
	}

	return &DB{CH: ch, PG: pg}, nil
}

// Close closes both database connections.
func (d *DB) Close() error {
	var errs []error
	if d.CH != nil {
		if err := d.CH.Close(); err != nil {
			errs = append(errs, fmt.Errorf("clickhouse: %w", err))
		}
	}
	if d.PG != nil {
		d.PG.Close()
	}
	return errors.Join(errs...)
}

// CreateSchemas creates the schemas in both databases.
func (d *DB) CreateSchemas(ctx context.Context) error {
	if err := d.CH.CreateSchema(ctx); err != nil {
		return fmt.Errorf("clickhouse schema: %w", err)
	}
	if err := d.PG.CreateSchema(ctx); err != nil {
		return fmt.Errorf("postgres schema: %w", err)
	}
	return nil
}

func joinFields(f []string) string {
	return strings.Join(f, ",")
}

func splitFields(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
