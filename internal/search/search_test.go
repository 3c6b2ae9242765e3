package search

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/contextharness/ctx/internal/embedder"
	"github.com/contextharness/ctx/internal/model"
	"github.com/contextharness/ctx/internal/store"
)

const testDims = 4

// fakeProvider returns a fixed vector per input text, keyed by exact text
// match, falling back to an all-zero vector — enough to drive deterministic
// hybrid-mode tests without depending on a real embedding model.
type fakeProvider struct {
	vectors map[string][]float32
}

func (p *fakeProvider) EmbedBatch(ctx context.Context, texts []string, mode embedder.Mode) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, ok := p.vectors[t]
		if !ok {
			v = make([]float32, testDims)
		}
		out[i] = v
	}
	return out, nil
}

func (p *fakeProvider) Dimensions() int { return testDims }
func (p *fakeProvider) Model() string   { return "fake" }
func (p *fakeProvider) Close() error    { return nil }

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ctx.db")
	s, err := store.Open(path, testDims)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func ingest(t *testing.T, s *store.Store, source, sourceID, body string) string {
	t.Helper()
	id, chunkID, _ := ingestChunk(t, s, source, sourceID, body)
	_ = chunkID
	return id
}

// ingestChunk is like ingest but also returns the single chunk's ID, for
// tests that need to write a specific embedding vector against it.
func ingestChunk(t *testing.T, s *store.Store, source, sourceID, body string) (docID, chunkID string, chunk *model.Chunk) {
	t.Helper()
	id, _, err := s.UpsertDocument(&model.Document{Source: source, SourceID: sourceID, Body: body, ContentType: "text/plain"})
	require.NoError(t, err)
	c := &model.Chunk{ChunkIndex: 0, Text: body, TokenEstimate: len(body) / 4, TextHash: "h-" + sourceID}
	require.NoError(t, s.ReplaceChunks(id, []*model.Chunk{c}))
	return id, c.ID, c
}

func TestSearch_KeywordOnly_PerfectScore(t *testing.T) {
	s := openTestStore(t)
	ingest(t, s, "filesystem:t", "a", "Hybrid search combines BM25 and cosine.")

	eng, err := New(s, &fakeProvider{})
	require.NoError(t, err)

	results, err := eng.Search(context.Background(), Params{Query: "bm25", Mode: model.ModeKeyword, Limit: 5})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Contains(t, results[0].Snippet, "BM25")
	require.InDelta(t, 1.0, results[0].Score, 1e-9)
}

func TestSearch_EmptyQuery_BadRequest(t *testing.T) {
	s := openTestStore(t)
	eng, err := New(s, &fakeProvider{})
	require.NoError(t, err)

	_, err = eng.Search(context.Background(), Params{Query: "  "})
	require.Error(t, err)
}

func TestSearch_NoMatches_EmptyResults(t *testing.T) {
	s := openTestStore(t)
	ingest(t, s, "filesystem:t", "a", "apples and oranges")

	eng, err := New(s, &fakeProvider{})
	require.NoError(t, err)

	results, err := eng.Search(context.Background(), Params{Query: "xylophone", Mode: model.ModeKeyword})
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestSearch_SemanticDisabled_ReturnsTaxonomyError(t *testing.T) {
	s := openTestStore(t)
	ingest(t, s, "filesystem:t", "a", "alpha beta gamma")

	disabled, derr := embedder.New(embedder.Config{Provider: "disabled"})
	require.NoError(t, derr)
	eng, err := New(s, disabled)
	require.NoError(t, err)

	_, err = eng.Search(context.Background(), Params{Query: "alpha", Mode: model.ModeSemantic})
	require.Error(t, err)
}

func TestSearch_HybridAlphaSweep_CanFlipRanking(t *testing.T) {
	s := openTestStore(t)
	idA, chunkA, _ := ingestChunk(t, s, "filesystem:t", "a", "alpha beta gamma")
	idB, chunkB, _ := ingestChunk(t, s, "filesystem:t", "b", "gamma delta epsilon")

	// Vectors chosen so the semantic axis disagrees with the keyword axis:
	// only A's text contains "alpha", but B's embedding is closest to the
	// query vector.
	require.NoError(t, s.WriteEmbedding(&model.Embedding{ChunkID: chunkA, Model: "fake", Dims: testDims, Vector: []float32{0, 1, 0, 0}, TextHash: "h-a"}))
	require.NoError(t, s.WriteEmbedding(&model.Embedding{ChunkID: chunkB, Model: "fake", Dims: testDims, Vector: []float32{1, 0, 0, 0}, TextHash: "h-b"}))

	provider := &fakeProvider{vectors: map[string][]float32{
		"alpha": {1, 0, 0, 0},
	}}
	eng, err := New(s, provider)
	require.NoError(t, err)

	kwOnly, err := eng.Search(context.Background(), Params{Query: "alpha", Mode: model.ModeHybrid, HybridAlpha: 0})
	require.NoError(t, err)
	require.NotEmpty(t, kwOnly)
	require.Equal(t, idA, kwOnly[0].DocumentID)

	semOnly, err := eng.Search(context.Background(), Params{Query: "alpha", Mode: model.ModeHybrid, HybridAlpha: 1})
	require.NoError(t, err)
	require.NotEmpty(t, semOnly)
	require.Equal(t, idB, semOnly[0].DocumentID)
}

func TestSearch_DocumentAggregation_GroupsByMaxScore(t *testing.T) {
	s := openTestStore(t)
	doc := &model.Document{Source: "filesystem:t", SourceID: "multi", Body: "five chunks", ContentType: "text/plain"}
	id, _, err := s.UpsertDocument(doc)
	require.NoError(t, err)

	chunks := []*model.Chunk{
		{ChunkIndex: 0, Text: "needle needle needle", TokenEstimate: 4, TextHash: "h0"},
		{ChunkIndex: 1, Text: "needle here too", TokenEstimate: 4, TextHash: "h1"},
		{ChunkIndex: 2, Text: "needle again", TokenEstimate: 4, TextHash: "h2"},
		{ChunkIndex: 3, Text: "no match here", TokenEstimate: 4, TextHash: "h3"},
		{ChunkIndex: 4, Text: "nothing relevant", TokenEstimate: 4, TextHash: "h4"},
	}
	require.NoError(t, s.ReplaceChunks(id, chunks))

	eng, err := New(s, &fakeProvider{})
	require.NoError(t, err)

	results, err := eng.Search(context.Background(), Params{
		Query: "needle", Mode: model.ModeKeyword, GroupBy: "document", MaxChunksPerDoc: 2, Limit: 10,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, id, results[0].DocumentID)
	require.LessOrEqual(t, len(results[0].ChunkIDs), 2)
}

// TestSearch_CacheInvalidatesOnDocumentDeletion guards invariant 5 (
// "search never returns a chunk whose document has been deleted") against
// the query-result cache serving a pre-deletion answer forever: the cache
// key folds in Store.Generation(), which DeleteDocument's write bumps.
func TestSearch_CacheInvalidatesOnDocumentDeletion(t *testing.T) {
	s := openTestStore(t)
	docID := ingest(t, s, "filesystem:t", "a", "hybrid search combines bm25 and cosine")

	eng, err := New(s, &fakeProvider{})
	require.NoError(t, err)

	before, err := eng.Search(context.Background(), Params{Query: "bm25", Mode: model.ModeKeyword, Limit: 5})
	require.NoError(t, err)
	require.Len(t, before, 1)

	require.NoError(t, s.DeleteDocument(docID))

	after, err := eng.Search(context.Background(), Params{Query: "bm25", Mode: model.ModeKeyword, Limit: 5})
	require.NoError(t, err)
	require.Empty(t, after, "deleted document's chunk must not be served from a stale cache entry")
}
