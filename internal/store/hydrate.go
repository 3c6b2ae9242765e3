package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/contextharness/ctx/internal/model"
)

// ChunkHydration is a chunk joined with its parent document's
// search-relevant fields, batched for the search engine's result
// hydration pass (one query instead of one round-trip per candidate).
type ChunkHydration struct {
	Chunk      *model.Chunk
	DocumentID string
	Source     string
	Title      string
	SourceURL  string
	UpdatedAt  *time.Time
}

// HydrateChunks loads chunk text plus parent-document identifying fields
// for every ID in chunkIDs, in one query.
func (s *Store) HydrateChunks(chunkIDs []string) (map[string]ChunkHydration, error) {
	out := make(map[string]ChunkHydration, len(chunkIDs))
	if len(chunkIDs) == 0 {
		return out, nil
	}

	placeholders := make([]string, len(chunkIDs))
	args := make([]interface{}, len(chunkIDs))
	for i, id := range chunkIDs {
		placeholders[i] = "?"
		args[i] = id
	}

	rows, err := s.db.Query(fmt.Sprintf(`
		SELECT chunks.id, chunks.document_id, chunks.chunk_index, chunks.text,
		       chunks.token_estimate, chunks.text_hash,
		       documents.source, documents.title, documents.source_url, documents.updated_at
		FROM chunks
		INNER JOIN documents ON documents.id = chunks.document_id
		WHERE chunks.id IN (%s)`, strings.Join(placeholders, ",")), args...)
	if err != nil {
		return nil, fmt.Errorf("query chunk hydration: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c model.Chunk
		var source, title, sourceURL string
		var updatedAt sql.NullString
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.ChunkIndex, &c.Text, &c.TokenEstimate, &c.TextHash,
			&source, &title, &sourceURL, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan chunk hydration: %w", err)
		}
		updatedAtPtr, err := parseTimePtr(updatedAt)
		if err != nil {
			return nil, fmt.Errorf("parse updated_at for chunk %s: %w", c.ID, err)
		}
		out[c.ID] = ChunkHydration{
			Chunk:      &c,
			DocumentID: c.DocumentID,
			Source:     source,
			Title:      title,
			SourceURL:  sourceURL,
			UpdatedAt:  updatedAtPtr,
		}
	}
	return out, rows.Err()
}
