package registry

import (
	"context"
	"fmt"

	"github.com/contextharness/ctx/internal/apperr"
	"github.com/contextharness/ctx/internal/model"
	"github.com/contextharness/ctx/internal/search"
	"github.com/contextharness/ctx/internal/store"
)

// registerBuiltinTools adds the three always-available tools: search, get,
// and sources. These wrap internal/search.Engine and internal/store.Store
// directly rather than going through a script sandbox.
func registerBuiltinTools(r *Registry, eng *search.Engine, st *store.Store) {
	r.RegisterTool(&Tool{
		Name:        "search",
		Description: "Hybrid keyword+semantic search over ingested documents.",
		IsBuiltin:   true,
		Precedence:  PrecedenceBuiltin,
		Parameters: []ToolParam{
			{Name: "query", Type: "string", Required: true, Description: "search text"},
			{Name: "mode", Type: "string", Enum: []any{"keyword", "semantic", "hybrid"}, Default: "hybrid"},
			{Name: "limit", Type: "integer", Default: float64(10)},
			{Name: "source", Type: "string", Description: "restrict to one source label"},
			{Name: "explain", Type: "boolean", Default: false},
		},
		invoke: func(ctx context.Context, params map[string]any) (any, error) {
			query, _ := params["query"].(string)
			if query == "" {
				return nil, apperr.E(apperr.BadRequest, "query is required", nil)
			}
			p := search.Params{
				Query:   query,
				Mode:    model.SearchMode(stringOr(params["mode"], "hybrid")),
				Limit:   intOr(params["limit"], 10),
				Source:  stringOr(params["source"], ""),
				Explain: boolOr(params["explain"], false),
			}
			results, err := eng.Search(ctx, p)
			if err != nil {
				return nil, err
			}
			return map[string]any{"results": results}, nil
		},
	})

	r.RegisterTool(&Tool{
		Name:        "get",
		Description: "Fetch a single document by id.",
		IsBuiltin:   true,
		Precedence:  PrecedenceBuiltin,
		Parameters: []ToolParam{
			{Name: "id", Type: "string", Required: true, Description: "document id"},
		},
		invoke: func(ctx context.Context, params map[string]any) (any, error) {
			id, _ := params["id"].(string)
			if id == "" {
				return nil, apperr.E(apperr.BadRequest, "id is required", nil)
			}
			doc, err := st.GetDocument(id)
			if err != nil {
				return nil, err
			}
			if doc == nil {
				return nil, apperr.E(apperr.NotFound, fmt.Sprintf("document %q not found", id), nil)
			}
			return doc, nil
		},
	})

	r.RegisterTool(&Tool{
		Name:        "sources",
		Description: "List configured sources with document counts and last-sync status.",
		IsBuiltin:   true,
		Precedence:  PrecedenceBuiltin,
		Parameters:  nil,
		invoke: func(ctx context.Context, params map[string]any) (any, error) {
			statuses, err := st.ListSources()
			if err != nil {
				return nil, err
			}
			return map[string]any{"sources": statuses}, nil
		},
	})
}

func stringOr(v any, def string) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return def
}

func intOr(v any, def int) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	default:
		return def
	}
}

func boolOr(v any, def bool) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	return def
}
