package cli

import (
	"fmt"
	"time"

	"github.com/contextharness/ctx/internal/chunker"
	"github.com/contextharness/ctx/internal/config"
	"github.com/contextharness/ctx/internal/embedder"
	"github.com/contextharness/ctx/internal/ingest"
	"github.com/contextharness/ctx/internal/search"
	"github.com/contextharness/ctx/internal/store"
)

// App bundles the components every non-trivial subcommand needs, built
// once from the loaded config: assembling shared dependencies (embedder,
// store, engine) once per command invocation, generalized from daemon
// bootstrap to a plain CLI process.
type App struct {
	Config  *config.Config
	Store   *store.Store
	Chunker *chunker.Chunker
	Embed   *embedder.Service
	Engine  *search.Engine
	Syncer  *ingest.Syncer
}

// newApp loads the config at path and opens the store/embedder/search
// engine, following the `[db]`/`[chunking]`/`[embedding]`/`[retrieval]`
// sections of directly.
func newApp(cfgPath string) (*App, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return newAppFromConfig(cfg)
}

func newAppFromConfig(cfg *config.Config) (*App, error) {
	provider, err := embedder.New(embedder.Config{
		Provider:   cfg.Embedding.Provider,
		Model:      cfg.Embedding.Model,
		Dims:       cfg.Embedding.Dims,
		Endpoint:   cfg.Embedding.URL,
		BatchSize:  cfg.Embedding.BatchSize,
		MaxRetries: cfg.Embedding.MaxRetries,
		Timeout:    time.Duration(cfg.Embedding.TimeoutSec) * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("build embedding provider: %w", err)
	}

	st, err := store.Open(cfg.DB.Path, provider.Dimensions())
	if err != nil {
		provider.Close()
		return nil, fmt.Errorf("open store: %w", err)
	}

	ch := chunker.New(chunker.Config{
		MaxTokens:     cfg.Chunking.MaxTokens,
		OverlapTokens: cfg.Chunking.OverlapTokens,
	})

	embedSvc := embedder.NewService(provider, st, cfg.Embedding.BatchSize, cfg.Embedding.MaxRetries)

	engine, err := search.New(st, provider)
	if err != nil {
		st.Close()
		provider.Close()
		return nil, fmt.Errorf("build search engine: %w", err)
	}

	syncer := ingest.New(st, ch, embedSvc)

	return &App{
		Config:  cfg,
		Store:   st,
		Chunker: ch,
		Embed:   embedSvc,
		Engine:  engine,
		Syncer:  syncer,
	}, nil
}

// Close closes the store. The embedding provider is not held on App and is
// not closed here; the search engine and syncer hold no resources of their
// own beyond the store.
func (a *App) Close() error {
	return a.Store.Close()
}

// searchDefaults copies the configured retrieval knobs into a
// search.Params, leaving caller-supplied fields (Query/Mode/Limit/Source/
// Explain) untouched.
func (a *App) searchDefaults() search.Params {
	r := a.Config.Retrieval
	return search.Params{
		CandidateKKeyword: r.CandidateKKeyword,
		CandidateKVector:  r.CandidateKVector,
		HybridAlpha:       r.HybridAlpha,
		GroupBy:           r.GroupBy,
		DocAgg:            r.DocAgg,
		MaxChunksPerDoc:   r.MaxChunksPerDoc,
	}
}
