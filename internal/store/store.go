package store

import (
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// setupPragmas run on the single connection before the schema.
var setupPragmas = []string{
	"PRAGMA foreign_keys = ON",
	"PRAGMA synchronous = OFF",
}

// migrations[i] upgrades user_version i to i+1.
var migrations = []string{
	// 1: key_reported checks look reports up by keycode.
	`CREATE INDEX IF NOT EXISTS idx_report_keys_keycode ON report_keys(run_id, keycode)`,
}

// Store holds the run log of one or more scenario runs.
type Store struct {
	db *sql.DB
}

// OpenMemory creates an empty in-memory run log. The pool is pinned to one
// connection since every sqlite :memory: connection is its own database.
func OpenMemory() (*Store, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open run log: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := setup(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close discards the run log.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func setup(db *sql.DB) error {
	for _, pragma := range setupPragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("run log pragma %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("run log schema: %w", err)
	}
	return migrate(db)
}

// migrate applies every migration past the stored user_version.
func migrate(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("run log version: %w", err)
	}
	for v := version; v < len(migrations); v++ {
		if _, err := db.Exec(migrations[v]); err != nil {
			return fmt.Errorf("run log migration %d: %w", v+1, err)
		}
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", len(migrations))); err != nil {
		return fmt.Errorf("run log version: %w", err)
	}
	return nil
}

// pragma returns the current value of a pragma. Tests only.
func (s *Store) pragma(name string) (string, error) {
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return "", fmt.Errorf("pragma %s: %w", name, err)
	}
	return value, nil
}
