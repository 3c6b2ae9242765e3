package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contextharness/ctx/internal/chunker"
	"github.com/contextharness/ctx/internal/connector"
	"github.com/contextharness/ctx/internal/model"
	"github.com/contextharness/ctx/internal/store"
)

type fakeConnector struct {
	items     []model.SourceItem
	err       error
	lastSince *model.Checkpoint // set by Scan, asserted by checkpoint-wiring tests
}

func (f *fakeConnector) Scan(ctx context.Context, since *model.Checkpoint) (<-chan model.SourceItem, <-chan error) {
	f.lastSince = since
	items := make(chan model.SourceItem, len(f.items))
	errCh := make(chan error, 1)
	for _, it := range f.items {
		items <- it
	}
	close(items)
	errCh <- f.err
	close(errCh)
	return items, errCh
}

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(t.TempDir()+"/test.db", 8)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestSync_UpsertsDocumentsAndChunks(t *testing.T) {
	t.Parallel()

	st := openTestStore(t)
	sy := New(st, chunker.New(chunker.Config{}), nil)

	conn := &fakeConnector{items: []model.SourceItem{
		{SourceID: "a", Body: "Hybrid search combines BM25 and cosine similarity for ranking."},
		{SourceID: "b", Body: "A second document about unrelated topics entirely."},
	}}

	res, err := sy.Sync(context.Background(), "filesystem:t", conn, false, false, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Fetched)
	assert.Equal(t, 2, res.Upserted)
	assert.Greater(t, res.ChunksWritten, 0)

	cp, err := st.LoadCheckpoint("filesystem:t")
	require.NoError(t, err)
	assert.NotNil(t, cp)
}

func TestSync_ConnectorFailureSkipsCheckpoint(t *testing.T) {
	t.Parallel()

	st := openTestStore(t)
	sy := New(st, chunker.New(chunker.Config{}), nil)

	conn := &fakeConnector{
		items: []model.SourceItem{{SourceID: "a", Body: "partial item before failure"}},
		err:   errors.New("upstream exploded"),
	}

	_, err := sy.Sync(context.Background(), "filesystem:t", conn, false, false, nil)
	require.Error(t, err)

	cp, err := st.LoadCheckpoint("filesystem:t")
	require.NoError(t, err)
	assert.Nil(t, cp)

	sources, err := st.ListSources()
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, 1, sources[0].DocumentCount)
}

func TestSync_PruneRemovesDocumentsMissingFromRun(t *testing.T) {
	t.Parallel()

	st := openTestStore(t)
	sy := New(st, chunker.New(chunker.Config{}), nil)

	first := &fakeConnector{items: []model.SourceItem{
		{SourceID: "keep", Body: "kept document body"},
		{SourceID: "gone", Body: "document removed on next sync"},
	}}
	_, err := sy.Sync(context.Background(), "filesystem:t", first, true, true, nil)
	require.NoError(t, err)

	second := &fakeConnector{items: []model.SourceItem{
		{SourceID: "keep", Body: "kept document body"},
	}}
	res, err := sy.Sync(context.Background(), "filesystem:t", second, true, true, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Skipped)

	sources, err := st.ListSources()
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, 1, sources[0].DocumentCount)
}

func TestSync_IncrementalRunLoadsAndAdvancesCheckpoint(t *testing.T) {
	t.Parallel()

	st := openTestStore(t)
	sy := New(st, chunker.New(chunker.Config{}), nil)

	firstUpdated := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	first := &fakeConnector{items: []model.SourceItem{
		{SourceID: "a", Body: "first body", UpdatedAt: &firstUpdated},
	}}
	_, err := sy.Sync(context.Background(), "filesystem:t", first, false, false, nil)
	require.NoError(t, err)
	assert.Nil(t, first.lastSince, "first sync has no prior checkpoint to load")

	cp, err := st.LoadCheckpoint("filesystem:t")
	require.NoError(t, err)
	require.NotNil(t, cp)
	assert.True(t, cp.LastSyncedAt.Equal(firstUpdated), "checkpoint should reflect the item's updated_at, not wall-clock time")

	secondUpdated := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	second := &fakeConnector{items: []model.SourceItem{
		{SourceID: "b", Body: "second body", UpdatedAt: &secondUpdated},
	}}
	_, err = sy.Sync(context.Background(), "filesystem:t", second, false, false, nil)
	require.NoError(t, err)
	require.NotNil(t, second.lastSince, "incremental sync must load and pass the prior checkpoint")
	assert.True(t, second.lastSince.LastSyncedAt.Equal(firstUpdated))

	cp2, err := st.LoadCheckpoint("filesystem:t")
	require.NoError(t, err)
	assert.True(t, cp2.LastSyncedAt.Equal(secondUpdated), "checkpoint should advance to the new max updated_at")
}

func TestSync_FullSyncIgnoresCheckpointForScan(t *testing.T) {
	t.Parallel()

	st := openTestStore(t)
	sy := New(st, chunker.New(chunker.Config{}), nil)

	updated := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	first := &fakeConnector{items: []model.SourceItem{{SourceID: "a", Body: "body", UpdatedAt: &updated}}}
	_, err := sy.Sync(context.Background(), "filesystem:t", first, false, false, nil)
	require.NoError(t, err)

	second := &fakeConnector{items: []model.SourceItem{{SourceID: "a", Body: "body", UpdatedAt: &updated}}}
	_, err = sy.Sync(context.Background(), "filesystem:t", second, true, false, nil)
	require.NoError(t, err)
	assert.Nil(t, second.lastSince, "a full sync must see the connector's entire item set, not a checkpoint-narrowed one")
}

func TestSyncAll_RunsIndependentSourcesConcurrently(t *testing.T) {
	t.Parallel()

	st := openTestStore(t)
	sy := New(st, chunker.New(chunker.Config{}), nil)

	specs := []SourceSpec{
		{Name: "filesystem:a", Conn: &fakeConnector{items: []model.SourceItem{{SourceID: "1", Body: "doc a body text"}}}},
		{Name: "filesystem:b", Conn: &fakeConnector{err: errors.New("b failed")}},
		{Name: "filesystem:c", Conn: &fakeConnector{items: []model.SourceItem{{SourceID: "1", Body: "doc c body text"}}}},
	}

	results, errs := sy.SyncAll(context.Background(), specs, 2, nil)
	require.Len(t, results, 3)
	assert.Len(t, errs, 1)
	assert.Error(t, errs["filesystem:b"])
	assert.NoError(t, errs["filesystem:a"])
	assert.NoError(t, errs["filesystem:c"])
}

var _ connector.Connector = (*fakeConnector)(nil)
