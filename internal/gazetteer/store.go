package gazetteer

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS places (
	name         TEXT PRIMARY KEY,
	country      TEXT NOT NULL,
	observations INTEGER NOT NULL DEFAULT 1,
	first_seen   DATETIME NOT NULL,
	last_seen    DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_places_country ON places(country);
`

// Store layers learned city → country pairs, persisted in SQLite, over a
// base lookup. The base always wins; learned entries only fill its gaps.
type Store struct {
	db   *sql.DB
	base Lookup

	mu      sync.RWMutex
	learned *Table
}

// Place is a single learned entry.
type Place struct {
	Name         string
	Country      string
	Observations int
	FirstSeen    time.Time
	LastSeen     time.Time
}

// OpenStore opens (or creates) the place store at dbPath. An empty path or
// ":memory:" keeps everything in memory. A nil base uses Builtin.
func OpenStore(dbPath string, base Lookup) (*Store, error) {
	if dbPath == "" {
		dbPath = ":memory:"
	}
	if base == nil {
		base = Builtin()
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open gazetteer: %w", err)
	}
	// A single connection keeps :memory: databases coherent.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create gazetteer schema: %w", err)
	}

	s := &Store{db: db, base: base, learned: NewTable(nil)}
	if err := s.load(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) load() error {
	rows, err := s.db.Query(`SELECT name, country FROM places`)
	if err != nil {
		return fmt.Errorf("load places: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var name, country string
		if err := rows.Scan(&name, &country); err != nil {
			continue
		}
		s.learned.Add(name, country)
	}
	return rows.Err()
}

// Country checks the base lookup first, then learned places.
func (s *Store) Country(text string) (string, bool) {
	if iso, ok := s.base.Country(text); ok {
		return iso, true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.learned.Country(text)
}

// Observe records that city was seen with an explicit country code. Names
// shorter than three letters and names the base already knows are ignored.
func (s *Store) Observe(ctx context.Context, city, country string) error {
	name := Fold(city)
	country = strings.ToUpper(strings.TrimSpace(country))
	if len(name) < 3 || len(country) != 2 {
		return nil
	}
	if _, ok := s.base.Country(name); ok {
		return nil
	}

	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO places (name, country, observations, first_seen, last_seen)
		VALUES (?, ?, 1, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			country = excluded.country,
			observations = observations + 1,
			last_seen = excluded.last_seen
	`, name, country, now, now)
	if err != nil {
		return fmt.Errorf("observe place %q: %w", name, err)
	}

	s.mu.Lock()
	s.learned.Add(name, country)
	s.mu.Unlock()
	return nil
}

// Places lists learned entries, most observed first.
func (s *Store) Places(ctx context.Context, limit int) ([]Place, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT name, country, observations, first_seen, last_seen
		FROM places
		ORDER BY observations DESC, name
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list places: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var places []Place
	for rows.Next() {
		var p Place
		if err := rows.Scan(&p.Name, &p.Country, &p.Observations, &p.FirstSeen, &p.LastSeen); err != nil {
			return nil, err
		}
		places = append(places, p)
	}
	return places, rows.Err()
}
