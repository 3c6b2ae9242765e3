package script

import (
	"context"

	"github.com/dop251/goja"

	"github.com/contextharness/ctx/internal/model"
)

// Bridge is the read-only re-entry point from scripts back into the
// retrieval core ("context bridge"): search, get, sources. It never
// exposes write operations — a connector's scan emits items, it does not
// write the store directly, design note.
type Bridge interface {
	Search(ctx context.Context, query string, opts SearchOpts) ([]model.Result, error)
	Get(ctx context.Context, id string) (*model.Document, error)
	Sources(ctx context.Context) ([]model.SourceStatus, error)
}

// SearchOpts mirrors the options object accepted by context.search's second
// argument in script code.
type SearchOpts struct {
	Mode   string `json:"mode"`
	Limit  int    `json:"limit"`
	Source string `json:"source"`
}

// bridgeObject builds the JS `context` value passed as the last argument to
// tool.execute and agent.resolve: context.search, context.get,
// context.sources, context.config. Bridge calls are synchronous from the
// script's perspective — the host calls the in-process search engine
// directly, no HTTP loopback, .
func bridgeObject(ctx context.Context, vm *goja.Runtime, bridge Bridge, config map[string]string) map[string]any {
	return map[string]any{
		"search": func(query string, opts SearchOpts) ([]model.Result, error) {
			return bridge.Search(ctx, query, opts)
		},
		"get": func(id string) (*model.Document, error) {
			return bridge.Get(ctx, id)
		},
		"sources": func() ([]model.SourceStatus, error) {
			return bridge.Sources(ctx)
		},
		"config": config,
	}
}
