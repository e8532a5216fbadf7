package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// ClickHouseConfig holds ClickHouse connection settings.
type ClickHouseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// ClickHouseDB wraps a ClickHouse connection for extraction analytics.
type ClickHouseDB struct {
	conn driver.Conn
}

// Conn returns the underlying ClickHouse connection for direct queries.
func (d *ClickHouseDB) Conn() driver.Conn {
	return d.conn
}

// OpenClickHouse opens a connection to ClickHouse.
func OpenClickHouse(ctx context.Context, cfg ClickHouseConfig) (*ClickHouseDB, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout:     10 * time.Second,
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
	})
	if err != nil {
		return nil, fmt.Errorf("open clickhouse: %w", err)
	}

	// Test the connection.
	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping clickhouse: %w", err)
	}

	return &ClickHouseDB{conn: conn}, nil
}

// Close closes the ClickHouse connection.
func (d *ClickHouseDB) Close() error {
	return d.conn.Close()
}

// CreateSchema creates the ClickHouse tables.
func (d *ClickHouseDB) CreateSchema(ctx context.Context) error {
	query := `CREATE TABLE IF NOT EXISTS extraction_events (
		document_id     String,
		timestamp       DateTime64(3),
		template        LowCardinality(String),
		order_reference String,
		freight_price   Float64,
		currency        LowCardinality(String),
		loading_stops   UInt16,
		delivery_stops  UInt16,
		cargos          UInt16,
		defaulted       Array(LowCardinality(String)),
		confidence      Float32,
		duration_ms     Float32,
		created_at      DateTime64(3) DEFAULT now64(3)
	)
	ENGINE = MergeTree()
	PARTITION BY toYYYYMM(timestamp)
	ORDER BY (template, timestamp, document_id)
	SETTINGS index_granularity = 8192`

	if err := d.conn.Exec(ctx, query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Event is one extraction as seen by analytics.
type Event struct {
	DocumentID string
	Timestamp  time.Time
	Template   string
	Reference  string
	Price      float64
	Currency   string
	Loading    int
	Delivery   int
	Cargos     int
	Defaulted  []string
	Confidence float32
	Duration   time.Duration
}

// NewEvent derives the analytics event of a stored record.
func NewEvent(r Record, took time.Duration) Event {
	defaulted := r.Provenance.Defaulted()
	if defaulted == nil {
		defaulted = []string{}
	}
	return Event{
		DocumentID: r.ID,
		Timestamp:  r.CreatedAt,
		Template:   r.Template,
		Reference:  r.Reference,
		Price:      r.Payload.FreightPrice,
		Currency:   r.Payload.FreightCurrency,
		Loading:    len(r.Payload.LoadingLocations),
		Delivery:   len(r.Payload.DestinationLocations),
		Cargos:     len(r.Payload.Cargos),
		Defaulted:  defaulted,
		Confidence: float32(r.Confidence),
		Duration:   took,
	}
}

func (e Event) durationMS() float32 {
	return float32(e.Duration.Microseconds()) / 1000
}

// RecordEvent stores a single event.
func (d *ClickHouseDB) RecordEvent(ctx context.Context, e Event) error {
	err := d.conn.Exec(ctx, `
		INSERT INTO extraction_events (document_id, timestamp, template, order_reference, freight_price, currency,
			loading_stops, delivery_stops, cargos, defaulted, confidence, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.DocumentID, e.Timestamp, e.Template, e.Reference, e.Price, e.Currency,
		uint16(e.Loading), uint16(e.Delivery), uint16(e.Cargos), e.Defaulted, e.Confidence, e.durationMS())
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// RecordBatch stores multiple events efficiently.
func (d *ClickHouseDB) RecordBatch(ctx context.Context, events []Event) error {
	if len(events) == 0 {
		return nil
	}

	batch, err := d.conn.PrepareBatch(ctx, `
		INSERT INTO extraction_events (document_id, timestamp, template, order_reference, freight_price, currency,
			loading_stops, delivery_stops, cargos, defaulted, confidence, duration_ms)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, e := range events {
		err := batch.Append(e.DocumentID, e.Timestamp, e.Template, e.Reference, e.Price, e.Currency,
			uint16(e.Loading), uint16(e.Delivery), uint16(e.Cargos), e.Defaulted, e.Confidence, e.durationMS())
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// TemplateStats is the per-template extraction summary.
type TemplateStats struct {
	Template       string  `json:"template"`
	Documents      uint64  `json:"documents"`
	MeanConfidence float64 `json:"mean_confidence"`
	MeanDurationMS float64 `json:"mean_duration_ms"`
}

// StatsByTemplate summarises events since the given time.
func (d *ClickHouseDB) StatsByTemplate(ctx context.Context, since time.Time) ([]TemplateStats, error) {
	rows, err := d.conn.Query(ctx, `
		SELECT template, count(), avg(confidence), avg(duration_ms)
		FROM extraction_events
		WHERE timestamp >= ?
		GROUP BY template
		ORDER BY count() DESC
	`, since)
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}
	defer rows.Close()

	var out []TemplateStats
	for rows.Next() {
		var s TemplateStats
		if err := rows.Scan(&s.Template, &s.Documents, &s.MeanConfidence, &s.MeanDurationMS); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

// DefaultedCounts counts how often each field fell back to a placeholder.
func (d *ClickHouseDB) DefaultedCounts(ctx context.Context) (map[string]uint64, error) {
	rows, err := d.conn.Query(ctx, `
		SELECT field, count() FROM extraction_events ARRAY JOIN defaulted AS field GROUP BY field
	`)
	if err != nil {
		return nil, fmt.Errorf("query defaulted: %w", err)
	}
	defer rows.Close()

	out := make(map[string]uint64)
	for rows.Next() {
		var field string
		var n uint64
		if err := rows.Scan(&field, &n); err != nil {
			return nil, err
		}
		out[field] = n
	}
	return out, rows.Err()
}
