package registry

import (
	"context"

	"github.com/contextharness/ctx/internal/model"
	"github.com/contextharness/ctx/internal/search"
	"github.com/contextharness/ctx/internal/script"
	"github.com/contextharness/ctx/internal/store"
)

// coreBridge implements script.Bridge against the live search engine and
// store, so every scripted tool/agent sees the same read-only re-entry
// point regardless of which registry tier registered it.
type coreBridge struct {
	eng *search.Engine
	st  *store.Store
}

func newCoreBridge(eng *search.Engine, st *store.Store) script.Bridge {
	return &coreBridge{eng: eng, st: st}
}

// NewCoreBridge exposes the live search engine and store as a script.Bridge
// for callers outside this package that need to invoke a scripted agent
// directly, such as the `agent test` CLI command.
func NewCoreBridge(eng *search.Engine, st *store.Store) script.Bridge {
	return newCoreBridge(eng, st)
}

func (b *coreBridge) Search(ctx context.Context, query string, opts script.SearchOpts) ([]model.Result, error) {
	mode := model.SearchMode(opts.Mode)
	if mode == "" {
		mode = model.ModeHybrid
	}
	return b.eng.Search(ctx, search.Params{
		Query:  query,
		Mode:   mode,
		Limit:  opts.Limit,
		Source: opts.Source,
	})
}

func (b *coreBridge) Get(ctx context.Context, id string) (*model.Document, error) {
	return b.st.GetDocument(id)
}

func (b *coreBridge) Sources(ctx context.Context) ([]model.SourceStatus, error) {
	return b.st.ListSources()
}
