// Package main provides the extract-worker, which consumes converted
// booking confirmations from NATS.
//
// Every worker instance joins the same queue group, so each document is
// extracted once however many instances run. Results are published to the
// result subject and, for request/reply producers, to the reply inbox.
//
// Usage:
//
//	extract-worker [options]
//
// Options:
//
//	-config FILE        YAML configuration (env: BOOKING_CONFIG)
//	-nats URL           NATS server (default: nats://localhost:4222, env: NATS_URL)
//	-subject SUBJ       Inbound document subject (default: documents.booking)
//	-queue NAME         Queue group (default: booking-extractors)
//	-results SUBJ       Result subject (default: orders.extracted)
//	-workers N          Concurrent extractions (default: 4)
//	-sqlite PATH        SQLite order store (default: orders.db, env: SQLITE_PATH)
//	-pg-host HOST       PostgreSQL host, enables PostgreSQL (env: POSTGRES_HOST)
//	-clickhouse         Record extraction events in ClickHouse
//	-gazetteer PATH     SQLite file for learned city names
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"

	"booking_parser/internal/config"
	"booking_parser/internal/extractor"
	"booking_parser/internal/gazetteer"
	"booking_parser/internal/pipeline"
	"booking_parser/internal/registry"
	"booking_parser/internal/storage"
	_ "booking_parser/internal/templates" // register all templates via init()
	"booking_parser/internal/worker"
)

func main() {
	configPath := flag.String("config", config.EnvOrDefault("BOOKING_CONFIG", ""), "YAML configuration file")
	natsURL := flag.String("nats", config.EnvOrDefault("NATS_URL", ""), "NATS server URL (default: config)")
	subject := flag.String("subject", "", "Inbound document subject (default: config)")
	queue := flag.String("queue", "", "Queue group (default: config)")
	results := flag.String("results", "", "Result subject (default: config)")
	workers := flag.Int("workers", 0, "Concurrent extractions (default: config)")
	sqlitePath := flag.String("sqlite", config.EnvOrDefault("SQLITE_PATH", ""), "SQLite order store (default: config)")
	pgHost := flag.String("pg-host", config.EnvOrDefault("POSTGRES_HOST", ""), "PostgreSQL host (enables PostgreSQL)")
	chEnabled := flag.Bool("clickhouse", false, "Record extraction events in ClickHouse")
	gazPath := flag.String("gazetteer", config.EnvOrDefault("GAZETTEER_PATH", ""), "SQLite file for learned city names")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *natsURL != "" {
		cfg.NATS.URL = *natsURL
	}
	if *subject != "" {
		cfg.NATS.Subject = *subject
	}
	if *queue != "" {
		cfg.NATS.Queue = *queue
	}
	if *results != "" {
		cfg.NATS.ResultSubject = *results
	}
	if *workers > 0 {
		cfg.NATS.Workers = *workers
	}
	if *sqlitePath != "" {
		cfg.SQLitePath = *sqlitePath
	}
	if *gazPath != "" {
		cfg.GazetteerPath = *gazPath
	}
	pg := cfg.Storage.Postgres
	if *pgHost != "" {
		pg.Host = *pgHost
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := cfg.Logger()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := storage.BackendOptions{SQLitePath: cfg.SQLitePath}
	if *pgHost != "" {
		opts.Postgres = &pg
	}
	if *chEnabled {
		ch := cfg.Storage.ClickHouse
		opts.ClickHouse = &ch
	}
	backends, err := storage.OpenBackends(ctx, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening storage: %v\n", err)
		os.Exit(1)
	}
	defer backends.Close()

	loc, _ := cfg.Location()
	extOpts := []extractor.Option{extractor.WithLogger(logger), extractor.WithLocation(loc)}
	proc := &pipeline.Processor{
		Registry: registry.Default(),
		Store:    backends.Orders,
		Events:   backends.Events,
		Logger:   logger,
	}
	if cfg.GazetteerPath != "" {
		places, err := gazetteer.OpenStore(cfg.GazetteerPath, nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening gazetteer: %v\n", err)
			os.Exit(1)
		}
		defer places.Close()
		extOpts = append(extOpts, extractor.WithCountries(places))
		proc.Places = places
	}
	proc.Registry.Sort()
	proc.Registry.Configure(extOpts...)

	nc, err := nats.Connect(cfg.NATS.URL,
		nats.Name("booking-extract-worker"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to NATS: %v\n", err)
		os.Exit(1)
	}
	defer nc.Close()

	w := worker.New(proc, worker.Config{
		Subject:       cfg.NATS.Subject,
		Queue:         cfg.NATS.Queue,
		ResultSubject: cfg.NATS.ResultSubject,
		Workers:       cfg.NATS.Workers,
	}, logger)

	if err := w.Run(ctx, nc); err != nil {
		fmt.Fprintf(os.Stderr, "Worker error: %v\n", err)
		os.Exit(1)
	}
}
