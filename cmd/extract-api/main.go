// Package main provides the extract-api server for booking confirmations.
//
// This is a standalone REST API server that runs converted booking
// confirmations through the extraction templates and serves the stored
// orders. Orders go to PostgreSQL when -pg-host is set, otherwise to a
// local SQLite file. With -clickhouse every extraction is also recorded as
// an analytics event.
//
// Usage:
//
//	extract-api [options]
//
// Options:
//
//	-config FILE        YAML configuration (env: BOOKING_CONFIG)
//	-sqlite PATH        SQLite order store (default: orders.db, env: SQLITE_PATH)
//	-pg-host HOST       PostgreSQL host, enables PostgreSQL (env: POSTGRES_HOST)
//	-pg-port PORT       PostgreSQL port (default: 5432, env: POSTGRES_PORT)
//	-pg-database DB     PostgreSQL database (default: bookings, env: POSTGRES_DATABASE)
//	-pg-user USER       PostgreSQL user (default: bookings, env: POSTGRES_USER)
//	-pg-password PASS   PostgreSQL password (default: bookings, env: POSTGRES_PASSWORD)
//	-clickhouse         Record extraction events in ClickHouse
//	-ch-host HOST       ClickHouse host (default: localhost, env: CLICKHOUSE_HOST)
//	-ch-port PORT       ClickHouse port (default: 9000, env: CLICKHOUSE_PORT)
//	-gazetteer PATH     SQLite file for learned city names
//	-port N             HTTP port (default: 8080)
//	-auth               Enable API key authentication
//	-api-keys KEYS      Comma-separated list of valid API keys
//	-rate-limit N       Requests per second per client, 0 disables
//
// API Endpoints:
//
//	GET /api/v1/health
//	    Health check endpoint.
//
//	GET /api/v1/templates
//	    Registered templates in dispatch order.
//
//	POST /api/v1/extract
//	    Extract and store a document. Body: {"id":"...","filename":"...","lines":[...]}
//	    ?persist=false extracts without storing.
//
//	POST /api/v1/classify
//	    Show the template for a document. ?trace=true adds marker traces.
//
//	GET /api/v1/orders
//	    List stored orders. Filters: template, reference, q, review, limit, offset.
//
//	GET /api/v1/orders/{id}
//	    Get one stored order.
//
// Authentication:
//
//	When -auth is enabled, requests must include an API key via:
//	  - X-API-Key header
//	  - Authorization: Bearer <key> header
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"booking_parser/internal/api"
	"booking_parser/internal/config"
	"booking_parser/internal/extractor"
	"booking_parser/internal/gazetteer"
	"booking_parser/internal/pipeline"
	"booking_parser/internal/registry"
	"booking_parser/internal/storage"
	_ "booking_parser/internal/templates" // register all templates via init()
)

func main() {
	configPath := flag.String("config", config.EnvOrDefault("BOOKING_CONFIG", ""), "YAML configuration file")
	sqlitePath := flag.String("sqlite", config.EnvOrDefault("SQLITE_PATH", ""), "SQLite order store (default: config)")
	gazPath := flag.String("gazetteer", config.EnvOrDefault("GAZETTEER_PATH", ""), "SQLite file for learned city names")

	// PostgreSQL connection flags.
	pgHost := flag.String("pg-host", config.EnvOrDefault("POSTGRES_HOST", ""), "PostgreSQL host (enables PostgreSQL)")
	pgPort := flag.Int("pg-port", config.EnvOrDefaultInt("POSTGRES_PORT", 0), "PostgreSQL port")
	pgUser := flag.String("pg-user", config.EnvOrDefault("POSTGRES_USER", ""), "PostgreSQL user")
	pgPassword := flag.String("pg-password", config.EnvOrDefault("POSTGRES_PASSWORD", ""), "PostgreSQL password")
	pgDB := flag.String("pg-database", config.EnvOrDefault("POSTGRES_DATABASE", ""), "PostgreSQL database")

	// ClickHouse flags.
	chEnabled := flag.Bool("clickhouse", false, "Record extraction events in ClickHouse")
	chHost := flag.String("ch-host", config.EnvOrDefault("CLICKHOUSE_HOST", ""), "ClickHouse host")
	chPort := flag.Int("ch-port", config.EnvOrDefaultInt("CLICKHOUSE_PORT", 0), "ClickHouse port")

	// API server flags.
	port := flag.Int("port", 0, "HTTP port for API server (default: config or 8080)")
	authEnabled := flag.Bool("auth", false, "Enable API key authentication")
	apiKeys := flag.String("api-keys", config.EnvOrDefault("API_KEYS", ""), "Comma-separated list of valid API keys (when auth enabled)")
	rateLimit := flag.Float64("rate-limit", -1, "Requests per second per client, 0 disables (default: config)")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Flags override the file.
	setString(&cfg.SQLitePath, *sqlitePath)
	setString(&cfg.GazetteerPath, *gazPath)
	pg := cfg.Storage.Postgres
	setString(&pg.Host, *pgHost)
	setInt(&pg.Port, *pgPort)
	setString(&pg.User, *pgUser)
	setString(&pg.Password, *pgPassword)
	setString(&pg.Database, *pgDB)
	ch := cfg.Storage.ClickHouse
	setString(&ch.Host, *chHost)
	setInt(&ch.Port, *chPort)
	setInt(&cfg.API.Port, *port)
	if *authEnabled {
		cfg.API.AuthEnabled = true
	}
	if keys := config.SplitList(*apiKeys); len(keys) > 0 {
		cfg.API.APIKeys = keys
	}
	if *rateLimit >= 0 {
		cfg.API.RateLimit = *rateLimit
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := cfg.Logger()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Open order and event stores.
	opts := storage.BackendOptions{SQLitePath: cfg.SQLitePath}
	if *pgHost != "" {
		opts.Postgres = &pg
	}
	if *chEnabled {
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

	logger.Info("storage ready", "orders", backends.Kind, "events", backends.Events != nil)

	// Create and run server.
	server := api.NewServer(proc, api.Config{
		Port:        cfg.API.Port,
		AuthEnabled: cfg.API.AuthEnabled,
		APIKeys:     cfg.API.APIKeys,
		RateLimit:   cfg.API.RateLimit,
		Burst:       cfg.API.Burst,
	}, logger)

	if err := server.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}
