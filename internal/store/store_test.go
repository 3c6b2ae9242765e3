package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/contextharness/ctx/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ctx.db")
	s, err := Open(path, 4)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUpsertDocument_InsertThenUpdate(t *testing.T) {
	s := openTestStore(t)

	doc := &model.Document{
		Source:      "filesystem:docs",
		SourceID:    "readme.md",
		Title:       "Readme",
		Body:        "hello world",
		ContentType: "text/markdown",
	}
	id, changed, err := s.UpsertDocument(doc)
	require.NoError(t, err)
	require.NotEmpty(t, id)
	require.True(t, changed)

	doc.Body = "hello world, again"
	id2, changed2, err := s.UpsertDocument(doc)
	require.NoError(t, err)
	require.Equal(t, id, id2)
	require.True(t, changed2)

	id3, changed3, err := s.UpsertDocument(doc)
	require.NoError(t, err)
	require.Equal(t, id, id3)
	require.False(t, changed3, "re-upserting an identical body should not report a change")

	got, err := s.GetDocument(id)
	require.NoError(t, err)
	require.Equal(t, "hello world, again", got.Body)
}

func TestReplaceChunks_SwapsFTSEntries(t *testing.T) {
	s := openTestStore(t)

	doc := &model.Document{Source: "filesystem:docs", SourceID: "a.md", Body: "apples and oranges", ContentType: "text/plain"}
	id, _, err := s.UpsertDocument(doc)
	require.NoError(t, err)

	err = s.ReplaceChunks(id, []*model.Chunk{
		{ChunkIndex: 0, Text: "apples are great", TokenEstimate: 4, TextHash: "h1"},
		{ChunkIndex: 1, Text: "oranges are citrus", TokenEstimate: 4, TextHash: "h2"},
	})
	require.NoError(t, err)

	results, err := s.FTSSearch("apples", nil, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)

	chunks, err := s.GetChunks(id)
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	// Replacing with a smaller set must drop the old FTS rows too.
	err = s.ReplaceChunks(id, []*model.Chunk{
		{ChunkIndex: 0, Text: "only bananas now", TokenEstimate: 3, TextHash: "h3"},
	})
	require.NoError(t, err)

	results, err = s.FTSSearch("apples", nil, 10)
	require.NoError(t, err)
	require.Empty(t, results)

	results, err = s.FTSSearch("bananas", nil, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
}

func TestWriteEmbedding_ReadBack(t *testing.T) {
	s := openTestStore(t)

	doc := &model.Document{Source: "filesystem:docs", SourceID: "b.md", Body: "x", ContentType: "text/plain"}
	id, _, err := s.UpsertDocument(doc)
	require.NoError(t, err)
	require.NoError(t, s.ReplaceChunks(id, []*model.Chunk{
		{ChunkIndex: 0, Text: "x", TokenEstimate: 1, TextHash: "h1"},
	}))
	chunks, err := s.GetChunks(id)
	require.NoError(t, err)
	chunkID := chunks[0].ID

	vec := []float32{0.1, 0.2, 0.3, 0.4}
	err = s.WriteEmbedding(&model.Embedding{ChunkID: chunkID, Model: "test-model", Dims: 4, Vector: vec, TextHash: "h1"})
	require.NoError(t, err)

	got, err := s.ReadEmbedding(chunkID)
	require.NoError(t, err)
	require.Equal(t, vec, got.Vector)
	require.Equal(t, "test-model", got.Model)

	hits, err := s.VectorSearch(vec, 5)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	require.Equal(t, chunkID, hits[0].ChunkID)

	pending, err := s.PendingChunkIDs(10)
	require.NoError(t, err)
	require.Empty(t, pending)

	stale, err := s.StaleChunkIDs("newer-model", 10)
	require.NoError(t, err)
	require.Contains(t, stale, chunkID)
}

func TestCheckpoints_RoundTrip(t *testing.T) {
	s := openTestStore(t)

	got, err := s.LoadCheckpoint("git:repo")
	require.NoError(t, err)
	require.Nil(t, got)

	now := time.Now().UTC().Truncate(time.Second)
	err = s.SaveCheckpoint(&model.Checkpoint{Source: "git:repo", LastSyncedAt: now, Cursor: "abc123"})
	require.NoError(t, err)

	got, err = s.LoadCheckpoint("git:repo")
	require.NoError(t, err)
	require.Equal(t, "abc123", got.Cursor)
	require.True(t, now.Equal(got.LastSyncedAt))
}

func TestPruneDocuments_DeletesOnlyUnkept(t *testing.T) {
	s := openTestStore(t)

	id1, _, err := s.UpsertDocument(&model.Document{Source: "filesystem:docs", SourceID: "keep.md", Body: "k", ContentType: "text/plain"})
	require.NoError(t, err)
	id2, _, err := s.UpsertDocument(&model.Document{Source: "filesystem:docs", SourceID: "drop.md", Body: "d", ContentType: "text/plain"})
	require.NoError(t, err)

	n, err := s.PruneDocuments("filesystem:docs", map[string]bool{id1: true})
	require.NoError(t, err)
	require.Equal(t, 1, n)

	got, err := s.GetDocument(id1)
	require.NoError(t, err)
	require.NotNil(t, got)

	got, err = s.GetDocument(id2)
	require.NoError(t, err)
	require.Nil(t, got)
}
