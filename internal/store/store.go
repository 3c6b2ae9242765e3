// Package store implements the embedded relational + full-text + vector
// persistence layer described . A single SQLite file holds the
// documents/chunks/embeddings/checkpoints tables, an FTS5 virtual table for
// keyword search, and a sqlite-vec virtual table for cosine-distance vector
// search.
package store

import (
	"database/sql"
	"fmt"
	"sync"
	"sync/atomic"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
)

var initVecOnce sync.Once

// Store wraps a single SQLite connection pool. Writes are serialized through
// writeMu "single process writer" policy; reads are concurrent.
type Store struct {
	db         *sql.DB
	writeMu    sync.Mutex
	embedDim   int
	generation atomic.Uint64
}

// Open opens or creates the database file at path, applies migrations
// idempotently, and enables foreign-key enforcement.
func Open(path string, embedDim int) (*Store, error) {
	initVecOnce.Do(sqlite_vec.Auto)

	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_journal_mode=WAL", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	// A single writer at a time; the driver itself serializes SQLite
	// connections poorly under concurrent writers, so cap the pool.
	db.SetMaxOpenConns(8)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	s := &Store{db: db, embedDim: embedDim}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the raw handle for read-only callers (e.g. an extension
// registry building a secondary index from store contents).
func (s *Store) DB() *sql.DB { return s.db }

// withWriteTx runs fn inside a transaction while holding writeMu, committing
// on success and rolling back on error or panic. Every successful commit
// bumps the store's generation counter — callers that cache read results
// derived from store contents (e.g. internal/search's query cache) key
// their cache on Generation() so a write invalidates every cached result
// in one step, without tracking which rows a given query touched.
func (s *Store) withWriteTx(fn func(tx *sql.Tx) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	s.generation.Add(1)
	return nil
}

// Generation returns a counter incremented after every committed write
// routed through withWriteTx. The increment follows the commit, so a read
// can observe a write's rows while Generation still returns the previous
// value.
func (s *Store) Generation() uint64 { return s.generation.Load() }
