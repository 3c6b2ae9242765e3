//go:build fts5 || sqlite_fts5

// This file documents that the package must be built with -tags=fts5 (or
// sqlite_fts5); mattn/go-sqlite3 only links FTS5 support in when one of
// those tags is present. See github.com/mattn/go-sqlite3/sqlite3_opt_fts5.go.
package store

import (
	_ "github.com/mattn/go-sqlite3"
)
