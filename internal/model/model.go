// Package model defines the core entities shared across the ingestion
// pipeline, the store, and the search engine.
package model

import "time"

// Document is the normalized unit of ingested content, unique per
// (Source, SourceID) pair.
type Document struct {
	ID         string            `json:"id"`
	Source     string            `json:"source"` // "<type>:<instance>"
	SourceID   string            `json:"source_id"`
	Title      string            `json:"title,omitempty"`
	Body       string            `json:"body"`
	SourceURL  string            `json:"source_url,omitempty"`
	ContentType string           `json:"content_type"`
	Author     string            `json:"author,omitempty"`
	CreatedAt  *time.Time        `json:"created_at,omitempty"`
	UpdatedAt  *time.Time        `json:"updated_at,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Chunk is a contiguous slice of a document's body.
type Chunk struct {
	ID            string `json:"id"`
	DocumentID    string `json:"document_id"`
	ChunkIndex    int    `json:"chunk_index"`
	Text          string `json:"text"`
	TokenEstimate int    `json:"token_estimate"`
	TextHash      string `json:"text_hash"`
}

// Embedding is the dense vector representation of a chunk.
type Embedding struct {
	ChunkID  string
	Model    string
	Dims     int
	Vector   []float32
	TextHash string
}

// Stale reports whether this embedding is stale for the given chunk and
// current model, staleness predicate.
func (e *Embedding) Stale(chunk *Chunk, currentModel string) bool {
	if e == nil {
		return true
	}
	return e.TextHash != chunk.TextHash || e.Model != currentModel
}

// Checkpoint is the per-source progress marker used for incremental sync.
type Checkpoint struct {
	Source       string
	LastSyncedAt time.Time
	Cursor       string
}

// SourceItem is what a connector's Scan yields: a single unprocessed item
// from the upstream source.
type SourceItem struct {
	SourceID    string            `json:"source_id"`
	Title       string            `json:"title,omitempty"`
	Body        string            `json:"body"`
	SourceURL   string            `json:"source_url,omitempty"`
	ContentType string            `json:"content_type,omitempty"`
	Author      string            `json:"author,omitempty"`
	CreatedAt   *time.Time        `json:"created_at,omitempty"`
	UpdatedAt   *time.Time        `json:"updated_at,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// SourceStatus summarizes one connector instance's indexed state.
type SourceStatus struct {
	Source        string     `json:"source"`
	DocumentCount int        `json:"document_count"`
	ChunkCount    int        `json:"chunk_count"`
	EmbeddedCount int        `json:"embedded_count"`
	LastSyncedAt  *time.Time `json:"last_synced_at,omitempty"`
}

// SearchMode selects which axis (or both) a search query runs over.
type SearchMode string

const (
	ModeKeyword  SearchMode = "keyword"
	ModeSemantic SearchMode = "semantic"
	ModeHybrid   SearchMode = "hybrid"
)

// AxisScore is the per-axis score breakdown reported in explain mode.
type AxisScore struct {
	RawKeyword        float64 `json:"raw_keyword,omitempty"`
	NormalizedKeyword float64 `json:"normalized_keyword,omitempty"`
	RawSemantic       float64 `json:"raw_semantic,omitempty"`
	NormalizedSemantic float64 `json:"normalized_semantic,omitempty"`
	Hybrid            float64 `json:"hybrid,omitempty"`
}

// Result is one chunk-level or document-aggregated search result.
type Result struct {
	ChunkID    string     `json:"chunk_id"`
	DocumentID string     `json:"document_id"`
	Source     string     `json:"source"`
	Title      string     `json:"title,omitempty"`
	SourceURL  string     `json:"source_url,omitempty"`
	Score      float64    `json:"score"`
	Snippet    string     `json:"snippet"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
	Explain    *AxisScore `json:"explain,omitempty"`
	ChunkIDs   []string   `json:"chunk_ids,omitempty"` // populated when group_by=document
}
