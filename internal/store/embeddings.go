package store

import (
	"database/sql"
	"fmt"

	"github.com/contextharness/ctx/internal/model"
)

// WriteEmbedding stores (or replaces) a chunk's embedding in both the
// relational embeddings table (for staleness bookkeeping and export) and the
// chunks_vec index (for KNN search), in one transaction, write
// contract.
func (s *Store) WriteEmbedding(e *model.Embedding) error {
	return s.withWriteTx(func(tx *sql.Tx) error {
		blob := serializeVector(e.Vector)
		if _, err := tx.Exec(`
			INSERT INTO embeddings (chunk_id, model, dims, text_hash, vector)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(chunk_id) DO UPDATE SET
				model = excluded.model,
				dims = excluded.dims,
				text_hash = excluded.text_hash,
				vector = excluded.vector
		`, e.ChunkID, e.Model, e.Dims, e.TextHash, blob); err != nil {
			return fmt.Errorf("write embedding row: %w", err)
		}
		return upsertVectorEntry(tx, e.ChunkID, e.Vector)
	})
}

// ReadEmbedding fetches the stored embedding for a chunk, or (nil, nil) when
// none exists.
func (s *Store) ReadEmbedding(chunkID string) (*model.Embedding, error) {
	row := s.db.QueryRow(`SELECT chunk_id, model, dims, text_hash, vector FROM embeddings WHERE chunk_id = ?`, chunkID)
	var e model.Embedding
	var blob []byte
	err := row.Scan(&e.ChunkID, &e.Model, &e.Dims, &e.TextHash, &blob)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan embedding: %w", err)
	}
	vec, err := deserializeVector(blob)
	if err != nil {
		return nil, fmt.Errorf("deserialize embedding for %s: %w", chunkID, err)
	}
	e.Vector = vec
	return &e, nil
}

// ClearEmbeddings removes every stored embedding and drops the chunks_vec
// index, used by `embed rebuild --all` when switching to a model with
// different dimensionality (EnsureVectorTable then recreates chunks_vec at
// the new dims).
func (s *Store) ClearEmbeddings() error {
	return s.withWriteTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM embeddings`); err != nil {
			return fmt.Errorf("clear embeddings: %w", err)
		}
		if _, err := tx.Exec(`DROP TABLE IF EXISTS chunks_vec`); err != nil {
			return fmt.Errorf("clear vector index: %w", err)
		}
		return nil
	})
}

// PendingChunkIDs returns chunk IDs with no stored embedding at all —
// candidates for `embed pending`.
func (s *Store) PendingChunkIDs(limit int) ([]string, error) {
	rows, err := s.db.Query(`
		SELECT c.id FROM chunks c
		LEFT JOIN embeddings e ON e.chunk_id = c.id
		WHERE e.chunk_id IS NULL
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending chunks: %w", err)
	}
	defer rows.Close()
	return scanIDs(rows)
}

// StaleChunkIDs returns chunk IDs whose stored embedding's text_hash or
// model no longer matches the chunk's current text_hash / currentModel —
// candidates for `embed rebuild`, per the Embedding.Stale predicate .
func (s *Store) StaleChunkIDs(currentModel string, limit int) ([]string, error) {
	rows, err := s.db.Query(`
		SELECT c.id FROM chunks c
		INNER JOIN embeddings e ON e.chunk_id = c.id
		WHERE e.text_hash != c.text_hash OR e.model != ?
		LIMIT ?`, currentModel, limit)
	if err != nil {
		return nil, fmt.Errorf("query stale chunks: %w", err)
	}
	defer rows.Close()
	return scanIDs(rows)
}

func scanIDs(rows *sql.Rows) ([]string, error) {
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
