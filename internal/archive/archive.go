// SPDX-License-Identifier: MIT

// Package archive provides sqlite persistence for problems, interactive
// sessions, decision maker preferences and the solution archive.
package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // pure Go driver, no CGO
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("archive: not found")
	// ErrDuplicate is returned when a unique constraint would be violated.
	ErrDuplicate = errors.New("archive: duplicate")
)

// Config defines the sqlite operational parameters.
type Config struct {
	BusyTimeout  time.Duration
	MaxOpenConns int
}

// DefaultConfig returns the recommended pool configuration.
func DefaultConfig() Config {
	return Config{
		BusyTimeout:  5 * time.Second,
		MaxOpenConns: 25,
	}
}

// Store wraps the sqlite database holding the archive.
type Store struct {
	db *sql.DB
}

// Open initializes the sqlite connection pool and runs schema migrations.
// The mandatory pragmas ride in the DSN so they apply to every pooled
// connection.
func Open(dbPath string, cfg Config) (*Store, error) {
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = DefaultConfig().BusyTimeout
	}
	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = DefaultConfig().MaxOpenConns
	}

	// Format: file:path?_pragma=foo(bar)&_pragma=baz(qux)
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)",
		dbPath, cfg.BusyTimeout.Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("archive: open failed: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxOpenConns)
	db.SetConnMaxLifetime(1 * time.Hour)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("archive: ping failed: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("archive: migrate failed: %w", err)
	}
	return s, nil
}

// Close closes the database connection pool.
func (s *Store) Close() error { return s.db.Close() }

// Ping verifies database connectivity; used by the readiness probe.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS problems (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		definition TEXT NOT NULL,
		solver TEXT NOT NULL DEFAULT '',
		owner TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		problem_id TEXT NOT NULL REFERENCES problems(id) ON DELETE CASCADE,
		dm TEXT NOT NULL DEFAULT '',
		method TEXT NOT NULL DEFAULT 'nimbus',
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS preferences (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		kind TEXT NOT NULL,
		value TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS solutions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		preference_id INTEGER REFERENCES preferences(id) ON DELETE SET NULL,
		variables TEXT NOT NULL,
		objectives TEXT NOT NULL,
		saved INTEGER NOT NULL DEFAULT 0,
		current INTEGER NOT NULL DEFAULT 0,
		chosen INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_problem ON sessions(problem_id);
	CREATE INDEX IF NOT EXISTS idx_preferences_session ON preferences(session_id);
	CREATE INDEX IF NOT EXISTS idx_solutions_session ON solutions(session_id);
	CREATE INDEX IF NOT EXISTS idx_solutions_session_current ON solutions(session_id, current);
	`
	_, err := s.db.Exec(schema)
	return err
}

func now() string { return time.Now().UTC().Format(time.RFC3339Nano) }

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
