package store

import (
	"database/sql"
	"fmt"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
)

// VectorResult is one nearest-neighbor hit from the vec0 index, ordered by
// ascending cosine distance (closest first).
type VectorResult struct {
	ChunkID  string
	Distance float64
}

// VectorSearch runs a KNN query against chunks_vec using cosine distance.
func (s *Store) VectorSearch(queryEmb []float32, limit int) ([]VectorResult, error) {
	if s.embedDim == 0 {
		return nil, fmt.Errorf("vector search requested but no vector table is configured")
	}
	queryBytes, err := sqlite_vec.SerializeFloat32(queryEmb)
	if err != nil {
		return nil, fmt.Errorf("serialize query embedding: %w", err)
	}

	rows, err := s.db.Query(`
		SELECT chunk_id, vec_distance_cosine(embedding, ?) AS distance
		FROM chunks_vec
		ORDER BY distance
		LIMIT ?`, queryBytes, limit)
	if err != nil {
		return nil, fmt.Errorf("query vector index: %w", err)
	}
	defer rows.Close()

	var out []VectorResult
	for rows.Next() {
		var r VectorResult
		if err := rows.Scan(&r.ChunkID, &r.Distance); err != nil {
			return nil, fmt.Errorf("scan vector result: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func deleteVectorEntries(tx *sql.Tx, chunkIDs []string) error {
	if len(chunkIDs) == 0 {
		return nil
	}
	stmt, err := tx.Prepare(`DELETE FROM chunks_vec WHERE chunk_id = ?`)
	if err != nil {
		return fmt.Errorf("prepare vector delete: %w", err)
	}
	defer stmt.Close()
	for _, id := range chunkIDs {
		if _, err := stmt.Exec(id); err != nil {
			return fmt.Errorf("delete vector entry %s: %w", id, err)
		}
	}
	return nil
}

func upsertVectorEntry(tx *sql.Tx, chunkID string, vector []float32) error {
	if _, err := tx.Exec(`DELETE FROM chunks_vec WHERE chunk_id = ?`, chunkID); err != nil {
		return fmt.Errorf("delete existing vector for %s: %w", chunkID, err)
	}
	embBytes, err := sqlite_vec.SerializeFloat32(vector)
	if err != nil {
		return fmt.Errorf("serialize embedding for %s: %w", chunkID, err)
	}
	if _, err := tx.Exec(`INSERT INTO chunks_vec (chunk_id, embedding) VALUES (?, ?)`, chunkID, embBytes); err != nil {
		return fmt.Errorf("insert vector for %s: %w", chunkID, err)
	}
	return nil
}
