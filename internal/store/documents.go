package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/contextharness/ctx/internal/model"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Question)

func formatTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339Nano), Valid: true}
}

func parseTimePtr(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return nil, fmt.Errorf("parse timestamp %q: %w", s.String, err)
	}
	return &t, nil
}

// UpsertDocument inserts a new document or updates an existing one matched
// by (source, source_id), returning the resolved document ID (generated on
// insert, preserved on update) and whether the body changed relative to the
// previous stored body — callers use that to decide whether re-chunking is
// needed.
func (s *Store) UpsertDocument(doc *model.Document) (id string, bodyChanged bool, err error) {
	err = s.withWriteTx(func(tx *sql.Tx) error {
		var existingID, existingBody string
		scanErr := tx.QueryRow(
			`SELECT id, body FROM documents WHERE source = ? AND source_id = ?`,
			doc.Source, doc.SourceID,
		).Scan(&existingID, &existingBody)

		switch {
		case scanErr == sql.ErrNoRows:
			if doc.ID == "" {
				doc.ID = uuid.NewString()
			}
			id = doc.ID
			bodyChanged = true
		case scanErr != nil:
			return fmt.Errorf("lookup existing document: %w", scanErr)
		default:
			id = existingID
			doc.ID = existingID
			bodyChanged = existingBody != doc.Body
		}

		metaJSON, mErr := json.Marshal(doc.Metadata)
		if mErr != nil {
			return fmt.Errorf("marshal metadata: %w", mErr)
		}

		_, execErr := tx.Exec(`
			INSERT INTO documents (id, source, source_id, title, body, source_url, content_type, author, created_at, updated_at, metadata)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(source, source_id) DO UPDATE SET
				title = excluded.title,
				body = excluded.body,
				source_url = excluded.source_url,
				content_type = excluded.content_type,
				author = excluded.author,
				updated_at = excluded.updated_at,
				metadata = excluded.metadata
		`,
			id, doc.Source, doc.SourceID, doc.Title, doc.Body, doc.SourceURL, doc.ContentType, doc.Author,
			formatTime(doc.CreatedAt), formatTime(doc.UpdatedAt), string(metaJSON),
		)
		if execErr != nil {
			return fmt.Errorf("upsert document: %w", execErr)
		}
		return nil
	})
	return id, bodyChanged, err
}

// GetDocument fetches a document by ID. Returns (nil, nil) when not found;
// callers that need a not_found error wrap this with apperr themselves.
func (s *Store) GetDocument(id string) (*model.Document, error) {
	row := s.db.QueryRow(`
		SELECT id, source, source_id, title, body, source_url, content_type, author, created_at, updated_at, metadata
		FROM documents WHERE id = ?`, id)
	return scanDocument(row)
}

func scanDocument(row *sql.Row) (*model.Document, error) {
	var (
		d                    model.Document
		title, url, ctype    sql.NullString
		author               sql.NullString
		createdAt, updatedAt sql.NullString
		metaJSON             sql.NullString
	)
	err := row.Scan(&d.ID, &d.Source, &d.SourceID, &title, &d.Body, &url, &ctype, &author, &createdAt, &updatedAt, &metaJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan document: %w", err)
	}
	d.Title = title.String
	d.SourceURL = url.String
	d.ContentType = ctype.String
	d.Author = author.String

	if d.CreatedAt, err = parseTimePtr(createdAt); err != nil {
		return nil, err
	}
	if d.UpdatedAt, err = parseTimePtr(updatedAt); err != nil {
		return nil, err
	}
	if metaJSON.Valid && metaJSON.String != "" {
		if err := json.Unmarshal([]byte(metaJSON.String), &d.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	return &d, nil
}

// DeleteDocument removes a document and cascades to its chunks, embeddings,
// and FTS/vector index entries.
func (s *Store) DeleteDocument(id string) error {
	return s.withWriteTx(func(tx *sql.Tx) error {
		chunkIDs, err := chunkIDsForDocument(tx, id)
		if err != nil {
			return err
		}
		if err := deleteFTSEntries(tx, chunkIDs); err != nil {
			return err
		}
		if err := deleteVectorEntries(tx, chunkIDs); err != nil {
			return err
		}
		if _, err := tx.Exec(`DELETE FROM documents WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete document: %w", err)
		}
		return nil
	})
}

// ListSources returns per-source aggregate counts for the stats/sources
// surfaces (builtin "sources" tool, `stats`/`sources` CLI).
func (s *Store) ListSources() ([]model.SourceStatus, error) {
	query, args, err := psql.Select(
		"d.source",
		"COUNT(DISTINCT d.id) AS document_count",
		"COUNT(DISTINCT c.id) AS chunk_count",
		"COUNT(DISTINCT e.chunk_id) AS embedded_count",
		"MAX(cp.last_synced_at) AS last_synced_at",
	).From("documents d").
		LeftJoin("chunks c ON c.document_id = d.id").
		LeftJoin("embeddings e ON e.chunk_id = c.id").
		LeftJoin("checkpoints cp ON cp.source = d.source").
		GroupBy("d.source").
		OrderBy("d.source").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sources query: %w", err)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sources: %w", err)
	}
	defer rows.Close()

	var out []model.SourceStatus
	for rows.Next() {
		var st model.SourceStatus
		var lastSynced sql.NullString
		if err := rows.Scan(&st.Source, &st.DocumentCount, &st.ChunkCount, &st.EmbeddedCount, &lastSynced); err != nil {
			return nil, fmt.Errorf("scan source status: %w", err)
		}
		if st.LastSyncedAt, err = parseTimePtr(lastSynced); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// PruneDocuments deletes every document for source whose ID is not in keep,
// cascading to chunks/embeddings/FTS/vector rows. Used by the full-sync
// pruning pass when a connector's prune_on_full_sync flag is enabled.
func (s *Store) PruneDocuments(source string, keep map[string]bool) (int, error) {
	ids, err := s.DocumentIDsForSource(source)
	if err != nil {
		return 0, err
	}
	var toDelete []string
	for _, id := range ids {
		if !keep[id] {
			toDelete = append(toDelete, id)
		}
	}
	for _, id := range toDelete {
		if err := s.DeleteDocument(id); err != nil {
			return 0, fmt.Errorf("prune document %s: %w", id, err)
		}
	}
	return len(toDelete), nil
}

// AllDocuments returns every stored document, ordered by ID, for the
// `export` CLI command's portable snapshot.
func (s *Store) AllDocuments() ([]*model.Document, error) {
	rows, err := s.db.Query(`
		SELECT id, source, source_id, title, body, source_url, content_type, author, created_at, updated_at, metadata
		FROM documents ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query all documents: %w", err)
	}
	defer rows.Close()

	var out []*model.Document
	for rows.Next() {
		var (
			d                    model.Document
			title, url, ctype    sql.NullString
			author               sql.NullString
			createdAt, updatedAt sql.NullString
			metaJSON             sql.NullString
		)
		if err := rows.Scan(&d.ID, &d.Source, &d.SourceID, &title, &d.Body, &url, &ctype, &author, &createdAt, &updatedAt, &metaJSON); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		d.Title = title.String
		d.SourceURL = url.String
		d.ContentType = ctype.String
		d.Author = author.String
		if d.CreatedAt, err = parseTimePtr(createdAt); err != nil {
			return nil, err
		}
		if d.UpdatedAt, err = parseTimePtr(updatedAt); err != nil {
			return nil, err
		}
		if metaJSON.Valid && metaJSON.String != "" {
			if err := json.Unmarshal([]byte(metaJSON.String), &d.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal metadata: %w", err)
			}
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}

// DocumentIDsForSource lists every document ID currently stored for source,
// used by the full-sync pruning pass to compute the delete set.
func (s *Store) DocumentIDsForSource(source string) ([]string, error) {
	rows, err := s.db.Query(`SELECT id FROM documents WHERE source = ?`, source)
	if err != nil {
		return nil, fmt.Errorf("query document ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan document id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
