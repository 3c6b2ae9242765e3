package store

import (
	"fmt"
	"strings"
)

// FTSResult is one keyword-match hit: a chunk ID, a BM25 rank (lower is
// more relevant in SQLite's FTS5, which callers negate to present as
// "higher is better"), and a highlighted snippet.
type FTSResult struct {
	ChunkID string
	Rank    float64
	Snippet string
}

// FTSSearch performs a BM25-ranked keyword search over chunks_fts, scoped
// optionally to a set of sources.
func (s *Store) FTSSearch(query string, sources []string, limit int) ([]FTSResult, error) {
	sqlQuery := `
		SELECT chunks_fts.chunk_id,
		       bm25(chunks_fts) AS rank,
		       snippet(chunks_fts, 1, '<mark>', '</mark>', '...', 32) AS snippet
		FROM chunks_fts
		INNER JOIN chunks ON chunks.id = chunks_fts.chunk_id
		INNER JOIN documents ON documents.id = chunks.document_id
		WHERE chunks_fts.text MATCH ?
	`
	args := []interface{}{BuildFTSQuery(query)}

	if len(sources) > 0 {
		placeholders := make([]string, len(sources))
		for i, src := range sources {
			placeholders[i] = "?"
			args = append(args, src)
		}
		sqlQuery += " AND documents.source IN (" + strings.Join(placeholders, ",") + ")"
	}

	sqlQuery += " ORDER BY rank LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.Query(sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("query fts index: %w", err)
	}
	defer rows.Close()

	var out []FTSResult
	for rows.Next() {
		var r FTSResult
		if err := rows.Scan(&r.ChunkID, &r.Rank, &r.Snippet); err != nil {
			return nil, fmt.Errorf("scan fts result: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// BuildFTSQuery escapes user input for safe embedding into an FTS5 MATCH
// expression: each whitespace-separated term becomes a quoted string (with
// embedded quotes doubled), and the terms are joined for an implicit AND.
func BuildFTSQuery(input string) string {
	terms := strings.Fields(input)
	for i, t := range terms {
		terms[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"`
	}
	return strings.Join(terms, " ")
}
