// Package store provides the key-value persistence boundary.
//
// The core persists a handful of named string entries (ledger, session
// history, download job, daily counters) through this interface; the schema
// behind it is nobody else's business.
package store

import (
	"database/sql"
	"errors"
	"time"

	// SQLite driver (required for database/sql registration).
	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a key has no value.
var ErrNotFound = errors.New("store: key not found")

// KV is the string get/put/remove contract the core consumes.
type KV interface {
	Get(key string) (string, error)
	Put(key, value string) error
	Remove(key string) error
}

// SQLiteStore implements KV on a single SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// Open opens the database at path, creating the table if needed.
func Open(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, err
	}

	// Set performance pragmas
	pragmas := []string{
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -64000",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, err
		}
	}

	schema := `
	CREATE TABLE IF NOT EXISTS kv (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

// Get returns the value for key, or ErrNotFound.
func (s *SQLiteStore) Get(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// Put upserts a key.
func (s *SQLiteStore) Put(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC())
	return err
}

// Remove deletes a key. Removing a missing key is not an error.
func (s *SQLiteStore) Remove(key string) error {
	_, err := s.db.Exec("DELETE FROM kv WHERE key = ?", key)
	return err
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
