package storage

import (
	"context"
	"errors"
	"fmt"
)

// BackendOptions selects the stores a long-running command writes to.
// PostgreSQL takes precedence over SQLite for orders; ClickHouse is
// optional.
type BackendOptions struct {
	SQLitePath string
	Postgres   *PostgresConfig
	ClickHouse *ClickHouseConfig
}

// Backends holds the opened stores. Events is nil without ClickHouse.
type Backends struct {
	Orders OrderStore
	Events EventSink
	Kind   string // "postgres" or "sqlite"

	closers []func() error
}

// OpenBackends opens and migrates the configured stores.
func OpenBackends(ctx context.Context, opts BackendOptions) (*Backends, error) {
	b := &Backends{}

	switch {
	case opts.Postgres != nil && opts.ClickHouse != nil:
		db, err := Open(ctx, Config{ClickHouse: *opts.ClickHouse, Postgres: *opts.Postgres})
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, db.Close)
		if err := db.CreateSchemas(ctx); err != nil {
			_ = b.Close()
			return nil, err
		}
		b.Orders, b.Events, b.Kind = db.PG, db.CH, "postgres"
		return b, nil

	case opts.Postgres != nil:
		pg, err := OpenPostgres(ctx, *opts.Postgres)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		b.closers = append(b.closers, func() error { pg.Close(); return nil })
		if err := pg.CreateSchema(ctx); err != nil {
			_ = b.Close()
			return nil, fmt.Errorf("postgres schema: %w", err)
		}
		b.Orders, b.Kind = pg, "postgres"

	case opts.SQLitePath != "":
		db, err := OpenSQLite(opts.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("sqlite: %w", err)
		}
		b.closers = append(b.closers, db.Close)
		b.Orders, b.Kind = db, "sqlite"

	default:
		return nil, errors.New("no order store configured")
	}

	if opts.ClickHouse != nil {
		ch, err := OpenClickHouse(ctx, *opts.ClickHouse)
		if err != nil {
			_ = b.Close()
			return nil, fmt.Errorf("clickhouse: %w", err)
		}
		b.closers = append(b.closers, ch.Close)
		if err := ch.CreateSchema(ctx); err != nil {
			_ = b.Close()
			return nil, fmt.Errorf("clickhouse schema: %w", err)
		}
		b.Events = ch
	}
	return b, nil
}

// Close closes every opened store, most recent first.
func (b *Backends) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	b.closers = nil
	return errors.Join(errs...)
}
