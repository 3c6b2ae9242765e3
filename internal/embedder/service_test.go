package embedder

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/contextharness/ctx/internal/model"
	"github.com/contextharness/ctx/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "ctx.db"), 4)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func seedChunk(t *testing.T, st *store.Store, text, hash string) *model.Chunk {
	t.Helper()
	id, _, err := st.UpsertDocument(&model.Document{
		Source: "filesystem:docs", SourceID: text, Body: text, ContentType: "text/plain",
	})
	require.NoError(t, err)
	require.NoError(t, st.ReplaceChunks(id, []*model.Chunk{
		{ChunkIndex: 0, Text: text, TokenEstimate: 1, TextHash: hash},
	}))
	chunks, err := st.GetChunks(id)
	require.NoError(t, err)
	return chunks[0]
}

func TestService_EmbedPending_EmbedsAllStaleChunks(t *testing.T) {
	st := openTestStore(t)
	seedChunk(t, st, "alpha text", "hash-a")
	seedChunk(t, st, "beta text", "hash-b")

	provider := newMockProvider(4)
	svc := NewService(provider, st, 10, 3)

	res, err := svc.EmbedPending(context.Background(), 0, nil)
	require.NoError(t, err)
	require.Equal(t, 2, res.Attempted)
	require.Equal(t, 2, res.Embedded)
	require.Equal(t, 0, res.Failed)

	pending, err := st.PendingChunkIDs(10)
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestService_EmbedPending_BatchFailureDoesNotAbortRun(t *testing.T) {
	st := openTestStore(t)
	seedChunk(t, st, "one", "h1")
	seedChunk(t, st, "two", "h2")

	provider := newMockProvider(4)
	provider.failNTimes(10, errors.New("401 unauthorized")) // terminal, never recovers
	svc := NewService(provider, st, 1, 1)                   // batch size 1 so each chunk is its own batch

	res, err := svc.EmbedPending(context.Background(), 0, nil)
	require.NoError(t, err, "a failing batch must not abort the whole run")
	require.Equal(t, 2, res.Attempted)
	require.Equal(t, 0, res.Embedded)
	require.Equal(t, 2, res.Failed)
}

func TestService_EmbedRebuild_ClearsThenReembeds(t *testing.T) {
	st := openTestStore(t)
	chunk := seedChunk(t, st, "gamma text", "hash-g")

	provider := newMockProvider(4)
	svc := NewService(provider, st, 10, 3)

	_, err := svc.EmbedPending(context.Background(), 0, nil)
	require.NoError(t, err)

	got, err := st.ReadEmbedding(chunk.ID)
	require.NoError(t, err)
	require.NotNil(t, got)

	res, err := svc.EmbedRebuild(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, 1, res.Embedded)

	got, err = st.ReadEmbedding(chunk.ID)
	require.NoError(t, err)
	require.NotNil(t, got, "rebuild should have re-embedded the chunk after clearing")
}

func TestDisabledProvider_AlwaysErrors(t *testing.T) {
	p := newDisabledProvider()
	_, err := p.EmbedBatch(context.Background(), []string{"x"}, ModePassage)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrEmbeddingsDisabled)
}
