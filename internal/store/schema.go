package store

import "fmt"

// migrate applies the schema idempotently. There is a single generation of
// schema in this repository (no prior releases to migrate from), so this is
// a flat set of `CREATE TABLE IF NOT EXISTS` / `CREATE VIRTUAL TABLE IF NOT
// EXISTS` statements rather than a numbered migration chain.
func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			source_id TEXT NOT NULL,
			title TEXT,
			body TEXT NOT NULL,
			source_url TEXT,
			content_type TEXT NOT NULL,
			author TEXT,
			created_at TEXT,
			updated_at TEXT,
			metadata TEXT,
			UNIQUE(source, source_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_source ON documents(source)`,
		`CREATE TABLE IF NOT EXISTS chunks (
			id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			chunk_index INTEGER NOT NULL,
			text TEXT NOT NULL,
			token_estimate INTEGER NOT NULL,
			text_hash TEXT NOT NULL,
			UNIQUE(document_id, chunk_index)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks(document_id)`,
		`CREATE TABLE IF NOT EXISTS embeddings (
			chunk_id TEXT PRIMARY KEY REFERENCES chunks(id) ON DELETE CASCADE,
			model TEXT NOT NULL,
			dims INTEGER NOT NULL,
			text_hash TEXT NOT NULL,
			vector BLOB NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS checkpoints (
			source TEXT PRIMARY KEY,
			last_synced_at TEXT NOT NULL,
			cursor TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS store_metadata (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		// chunk_id is UNINDEXED so it's carried but never matched against,
		// only joined on.
		`CREATE VIRTUAL TABLE IF NOT EXISTS chunks_fts USING fts5(
			chunk_id UNINDEXED,
			text,
			tokenize = 'unicode61 remove_diacritics 0'
		)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec schema stmt: %w", err)
		}
	}

	return s.migrateVectorTable()
}

// migrateVectorTable creates the vec0 virtual table lazily, once the
// embedding dimensionality is known (it's fixed at table-creation time for
// vec0, unlike the FTS5/relational tables above). A Store opened with
// embedDim == 0 (embeddings disabled) skips it entirely; EnsureVectorTable
// is called again once a provider's dimensionality becomes known.
func (s *Store) migrateVectorTable() error {
	if s.embedDim <= 0 {
		return nil
	}
	return s.EnsureVectorTable(s.embedDim)
}

// EnsureVectorTable creates the chunks_vec virtual table for the given
// dimensionality if it does not already exist. Safe to call repeatedly with
// the same dims; calling it with a different dims after chunks_vec already
// exists with data is a caller error (the embedder is expected to trigger a
// full embed_rebuild in that case, ).
func (s *Store) EnsureVectorTable(dims int) error {
	stmt := fmt.Sprintf(`CREATE VIRTUAL TABLE IF NOT EXISTS chunks_vec USING vec0(
		chunk_id TEXT PRIMARY KEY,
		embedding float[%d]
	)`, dims)
	if _, err := s.db.Exec(stmt); err != nil {
		return fmt.Errorf("create vector table: %w", err)
	}
	s.embedDim = dims
	return nil
}
