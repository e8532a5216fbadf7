// Package config loads the optional YAML configuration shared by the
// commands. Flags and environment variables override file values.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // timezone names in minimal containers

	"gopkg.in/yaml.v3"

	"booking_parser/internal/storage"
)

// Config is the full configuration.
type Config struct {
	LogLevel string `yaml:"log_level"`
	// Timezone renders stop timestamps. Default UTC.
	Timezone string `yaml:"timezone"`

	SQLitePath    string `yaml:"sqlite_path"`
	GazetteerPath string `yaml:"gazetteer_path"`

	Storage storage.Config `yaml:"storage"`
	API     APIConfig      `yaml:"api"`
	NATS    NATSConfig     `yaml:"nats"`
}

// APIConfig configures the HTTP API.
type APIConfig struct {
	Port        int      `yaml:"port"`
	AuthEnabled bool     `yaml:"auth"`
	APIKeys     []string `yaml:"api_keys"`
	// RateLimit is requests per second per client; zero disables it.
	RateLimit float64 `yaml:"rate_limit"`
	Burst     int     `yaml:"burst"`
}

// NATSConfig configures the extraction worker.
type NATSConfig struct {
	URL           string `yaml:"url"`
	Subject       string `yaml:"subject"`
	Queue         string `yaml:"queue"`
	ResultSubject string `yaml:"result_subject"`
	Workers       int    `yaml:"workers"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel:   "info",
		Timezone:   "UTC",
		SQLitePath: "orders.db",
		Storage:    storage.DefaultConfig(),
		API: APIConfig{
			Port:      8080,
			RateLimit: 10,
			Burst:     20,
		},
		NATS: NATSConfig{
			URL:           "nats://localhost:4222",
			Subject:       "documents.booking",
			Queue:         "booking-extractors",
			ResultSubject: "orders.extracted",
			Workers:       4,
		},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
// Environment references such as ${PG_PASSWORD} are expanded and unknown
// keys are rejected.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	data = []byte(os.ExpandEnv(string(data)))

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.API.Port < 0 || c.API.Port > 65535 {
		return fmt.Errorf("api port %d out of range", c.API.Port)
	}
	if c.API.RateLimit < 0 {
		return errors.New("api rate_limit must not be negative")
	}
	if c.NATS.Workers < 1 {
		return errors.New("nats workers must be at least 1")
	}
	return nil
}

// Location resolves the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone: %w", err)
	}
	return loc, nil
}

// Level returns the slog level for LogLevel, Info when unset.
func (c *Config) Level() slog.Level {
	l, _ := parseLevel(c.LogLevel)
	return l
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log_level: %w", err)
	}
	return l, nil
}

// Logger builds the text logger used by the commands.
func (c *Config) Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: c.Level()}))
}

// EnvOrDefault returns the environment value of key, or def when unset.
func EnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// EnvOrDefaultInt is EnvOrDefault for integers. Unparseable values fall
// back to def.
func EnvOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

// SplitList splits a comma-separated flag value, dropping blanks.
func SplitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
