package store

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/contextharness/ctx/internal/model"
)

// ReplaceChunks atomically swaps a document's chunk set: deletes the
// existing chunks (and their FTS/vector/embedding rows) and inserts the new
// ones, assigning IDs to any chunk missing one. A delete-then-insert upsert
// covers the owning chunks rows too since chunk boundaries can shift between
// syncs.
func (s *Store) ReplaceChunks(documentID string, chunks []*model.Chunk) error {
	return s.withWriteTx(func(tx *sql.Tx) error {
		oldIDs, err := chunkIDsForDocument(tx, documentID)
		if err != nil {
			return err
		}
		if err := deleteFTSEntries(tx, oldIDs); err != nil {
			return err
		}
		if err := deleteVectorEntries(tx, oldIDs); err != nil {
			return err
		}
		if _, err := tx.Exec(`DELETE FROM chunks WHERE document_id = ?`, documentID); err != nil {
			return fmt.Errorf("delete chunks: %w", err)
		}

		insertStmt, err := tx.Prepare(`
			INSERT INTO chunks (id, document_id, chunk_index, text, token_estimate, text_hash)
			VALUES (?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("prepare chunk insert: %w", err)
		}
		defer insertStmt.Close()

		ftsStmt, err := tx.Prepare(`INSERT INTO chunks_fts (chunk_id, text) VALUES (?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare fts insert: %w", err)
		}
		defer ftsStmt.Close()

		for _, c := range chunks {
			if c.ID == "" {
				c.ID = uuid.NewString()
			}
			c.DocumentID = documentID
			if _, err := insertStmt.Exec(c.ID, documentID, c.ChunkIndex, c.Text, c.TokenEstimate, c.TextHash); err != nil {
				return fmt.Errorf("insert chunk %s: %w", c.ID, err)
			}
			if _, err := ftsStmt.Exec(c.ID, c.Text); err != nil {
				return fmt.Errorf("insert fts entry for chunk %s: %w", c.ID, err)
			}
		}
		return nil
	})
}

// GetChunks returns all chunks for a document, ordered by chunk_index.
func (s *Store) GetChunks(documentID string) ([]*model.Chunk, error) {
	rows, err := s.db.Query(`
		SELECT id, document_id, chunk_index, text, token_estimate, text_hash
		FROM chunks WHERE document_id = ? ORDER BY chunk_index`, documentID)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	var out []*model.Chunk
	for rows.Next() {
		var c model.Chunk
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.ChunkIndex, &c.Text, &c.TokenEstimate, &c.TextHash); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

// GetChunk fetches a single chunk's own columns by ID, or (nil, nil) when no
// such chunk exists. Search result hydration uses HydrateChunks instead.
func (s *Store) GetChunk(chunkID string) (*model.Chunk, error) {
	row := s.db.QueryRow(`
		SELECT id, document_id, chunk_index, text, token_estimate, text_hash
		FROM chunks WHERE id = ?`, chunkID)

	var c model.Chunk
	err := row.Scan(&c.ID, &c.DocumentID, &c.ChunkIndex, &c.Text, &c.TokenEstimate, &c.TextHash)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan chunk: %w", err)
	}
	return &c, nil
}

// AllChunks returns every stored chunk, ordered by document then index, for
// the `export` CLI command's portable snapshot.
func (s *Store) AllChunks() ([]*model.Chunk, error) {
	rows, err := s.db.Query(`
		SELECT id, document_id, chunk_index, text, token_estimate, text_hash
		FROM chunks ORDER BY document_id, chunk_index`)
	if err != nil {
		return nil, fmt.Errorf("query all chunks: %w", err)
	}
	defer rows.Close()

	var out []*model.Chunk
	for rows.Next() {
		var c model.Chunk
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.ChunkIndex, &c.Text, &c.TokenEstimate, &c.TextHash); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

func chunkIDsForDocument(tx *sql.Tx, documentID string) ([]string, error) {
	rows, err := tx.Query(`SELECT id FROM chunks WHERE document_id = ?`, documentID)
	if err != nil {
		return nil, fmt.Errorf("query chunk ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan chunk id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func deleteFTSEntries(tx *sql.Tx, chunkIDs []string) error {
	if len(chunkIDs) == 0 {
		return nil
	}
	stmt, err := tx.Prepare(`DELETE FROM chunks_fts WHERE chunk_id = ?`)
	if err != nil {
		return fmt.Errorf("prepare fts delete: %w", err)
	}
	defer stmt.Close()
	for _, id := range chunkIDs {
		if _, err := stmt.Exec(id); err != nil {
			return fmt.Errorf("delete fts entry %s: %w", id, err)
		}
	}
	return nil
}
