package registry

import (
	"github.com/contextharness/ctx/internal/search"
	"github.com/contextharness/ctx/internal/store"
)

// BuildDeps collects everything Build needs to assemble a full Registry:
// the live engine/store for builtin tools and the context bridge, plus
// every configured scripted/inline extension source.
type BuildDeps struct {
	Engine       *search.Engine
	Store        *store.Store
	ToolSources  []ScriptSource
	AgentSources []ScriptSource
	InlineAgents []InlineAgent
}
