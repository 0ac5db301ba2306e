// Package store is the local embedded relational store backing SlotStore and
// GraphStore: a single SQLite file opened once per process, with a single
// RWMutex serializing all access, the way the reference sqlite-backed store
// in the examples pack does it.
package store

import (
	"database/sql"
	"sync"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"

	"agentmemory/pkg/apperr"
)

// Store wraps the slot and graph tables behind one *sql.DB handle.
type Store struct {
	mu sync.RWMutex
	db *sql.DB
}

// Open creates (or attaches to) the sqlite file at dsn and ensures schema.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, apperr.NewStorageUnavailable("failed to open store", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`PRAGMA journal_mode=WAL; PRAGMA foreign_keys=ON;`); err != nil {
		db.Close()
		return nil, apperr.NewStorageUnavailable("failed to set pragmas", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, apperr.NewStorageUnavailable("failed to apply schema", err)
	}
	return &Store{db: db}, nil
}

// OpenInMemory opens a private in-memory database, used by tests.
func OpenInMemory() (*Store, error) {
	return Open("file::memory:")
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func nowISO() string { return time.Now().UTC().Format(time.RFC3339Nano) }

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
