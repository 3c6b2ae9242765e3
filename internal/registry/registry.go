// Package registry implements tool and agent registries: a union of
// builtin tools (search/get/sources) and script-defined tools/agents, with
// parameter validation at the boundary and the precedence ordering
// applied when names collide. The registry is host-owned and independent
// of mark3labs/mcp-go, so the same registry backs both the REST tool
// endpoints and the /mcp transport in internal/httpserver.
package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/contextharness/ctx/internal/apperr"
	"github.com/contextharness/ctx/internal/script"
)

// ToolParam is the JSON-Schema-shaped parameter description exposed by
// `GET /tools/list`.
type ToolParam struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Required    bool   `json:"required"`
	Description string `json:"description,omitempty"`
	Enum        []any  `json:"enum,omitempty"`
	Default     any    `json:"default,omitempty"`
}

// Tool is one invocable tool, builtin or script-defined.
type Tool struct {
	Name        string
	Description string
	Parameters  []ToolParam
	IsBuiltin   bool
	// Precedence ranks sources — higher number wins when two sources
	// register the same name: explicit config (4) > project-local
	// .ctx/ (3) > personal registry (2) > company registry (1) > community
	// registry (0). Builtin tools are precedence 4 — nothing overrides them.
	Precedence int
	invoke     func(ctx context.Context, params map[string]any) (any, error)
}

// Invoke runs the tool against params, which the caller is responsible for
// having already decoded from JSON into a map[string]any.
func (t *Tool) Invoke(ctx context.Context, params map[string]any) (any, error) {
	return t.invoke(ctx, params)
}

// Agent is one resolvable agent, inline (static) or script-defined
// (dynamic).
type Agent struct {
	Name        string
	Description string
	Tools       []string
	Precedence  int
	resolve     func(ctx context.Context, args map[string]any) (script.Resolution, error)
}

// Resolve runs the agent's prompt-resolution logic against args.
func (a *Agent) Resolve(ctx context.Context, args map[string]any) (script.Resolution, error) {
	return a.resolve(ctx, args)
}

// Precedence tiers, highest wins.
const (
	PrecedenceExplicitConfig = 4
	PrecedenceBuiltin        = 4 // builtins share the top tier; nothing from a registry shadows them
	PrecedenceProjectLocal   = 3
	PrecedencePersonal       = 2
	PrecedenceCompany        = 1
	PrecedenceCommunity      = 0
)

// Registry holds the merged view of tools and agents from every source,
// keyed by name with precedence resolving collisions.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]*Tool
	agents map[string]*Agent
}

// New returns an empty Registry. Callers populate it with RegisterTool /
// RegisterAgent, highest-precedence source last is NOT required — ties are
// resolved by Precedence regardless of registration order.
func New() *Registry {
	return &Registry{tools: map[string]*Tool{}, agents: map[string]*Agent{}}
}

// RegisterTool adds or replaces a tool. If a tool with the same name
// already exists at equal-or-higher precedence, the existing registration
// wins and this call is a no-op.
func (r *Registry) RegisterTool(t *Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.tools[t.Name]; ok && existing.Precedence >= t.Precedence {
		return
	}
	r.tools[t.Name] = t
}

// RegisterAgent adds or replaces an agent under the same precedence rule
// as RegisterTool.
func (r *Registry) RegisterAgent(a *Agent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.agents[a.Name]; ok && existing.Precedence >= a.Precedence {
		return
	}
	r.agents[a.Name] = a
}

// Tool looks up a registered tool by name.
func (r *Registry) Tool(name string) (*Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Agent looks up a registered agent by name.
func (r *Registry) Agent(name string) (*Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[name]
	return a, ok
}

// ListTools returns every registered tool, sorted by name for stable
// output.
func (r *Registry) ListTools() []*Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ListAgents returns every registered agent, sorted by name.
func (r *Registry) ListAgents() []*Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Agent, 0, len(r.agents))
	for _, a := range r.agents {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// InvokeTool looks up name and invokes it, returning apperr.NotFound when
// it isn't registered.
func (r *Registry) InvokeTool(ctx context.Context, name string, params map[string]any) (any, error) {
	t, ok := r.Tool(name)
	if !ok {
		return nil, apperr.E(apperr.NotFound, fmt.Sprintf("tool %q is not registered", name), nil)
	}
	return t.Invoke(ctx, params)
}

// ResolveAgent looks up name and resolves it, returning apperr.NotFound
// when it isn't registered.
func (r *Registry) ResolveAgent(ctx context.Context, name string, args map[string]any) (script.Resolution, error) {
	a, ok := r.Agent(name)
	if !ok {
		return script.Resolution{}, apperr.E(apperr.NotFound, fmt.Sprintf("agent %q is not registered", name), nil)
	}
	return a.Resolve(ctx, args)
}

// scriptToolParams converts script.ParamSpec (the scripting package's
// JS-facing shape) to the registry's JSON-Schema-shaped ToolParam.
func scriptToolParams(specs []script.ParamSpec) []ToolParam {
	out := make([]ToolParam, len(specs))
	for i, s := range specs {
		out[i] = ToolParam{
			Name:        s.Name,
			Type:        s.Type,
			Required:    s.Required,
			Description: s.Description,
			Enum:        s.Enum,
			Default:     s.Default,
		}
	}
	return out
}
