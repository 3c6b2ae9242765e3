package registry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/contextharness/ctx/internal/script"
)

// ScriptSource names one scripted tool or agent's source file on disk and
// the metadata the loader needs to bind a Sandbox to it: its precedence
// tier, per-instance timeout/config, and the fs-API root directory.
type ScriptSource struct {
	Name       string
	Path       string
	Timeout    time.Duration
	Config     map[string]string
	RootDir    string
	Precedence int
}

// Loader builds Registry entries from script sources, sharing one context
// bridge (backed by the live search engine and store) across every loaded
// tool and agent.
type Loader struct {
	bridge script.Bridge
}

// NewLoader returns a Loader whose scripted tools/agents all share the same
// read-only context bridge.
func NewLoader(bridge script.Bridge) *Loader {
	return &Loader{bridge: bridge}
}

func (l *Loader) readSandbox(src ScriptSource) (*script.Sandbox, error) {
	body, err := os.ReadFile(src.Path)
	if err != nil {
		return nil, fmt.Errorf("read script %s: %w", src.Path, err)
	}
	root := src.RootDir
	if root == "" {
		root = filepath.Dir(src.Path)
	}
	return &script.Sandbox{
		Name:    src.Name,
		Source:  string(body),
		RootDir: root,
		Timeout: src.Timeout,
		Config:  src.Config,
		Bridge:  l.bridge,
	}, nil
}

// LoadTool reads, describes, and registers one scripted tool against r. The
// script is re-read and re-described on every call (Build below is the
// call site) rather than cached, matching "auto-loaded at server start" scope —
// registries are rebuilt, not hot-reloaded mid-process.
func (l *Loader) LoadTool(ctx context.Context, r *Registry, src ScriptSource) error {
	sbx, err := l.readSandbox(src)
	if err != nil {
		return err
	}
	t := script.NewTool(sbx)
	desc, err := t.Describe(ctx)
	if err != nil {
		return fmt.Errorf("describe tool %s: %w", src.Name, err)
	}
	name := desc.Name
	if name == "" {
		name = src.Name
	}
	r.RegisterTool(&Tool{
		Name:        name,
		Description: desc.Description,
		Parameters:  scriptToolParams(desc.Parameters),
		IsBuiltin:   false,
		Precedence:  src.Precedence,
		invoke: func(ctx context.Context, params map[string]any) (any, error) {
			return t.Execute(ctx, params)
		},
	})
	return nil
}

// LoadAgent reads, describes, and registers one scripted agent against r.
func (l *Loader) LoadAgent(ctx context.Context, r *Registry, src ScriptSource) error {
	sbx, err := l.readSandbox(src)
	if err != nil {
		return err
	}
	a := script.NewAgent(sbx)
	desc, err := a.Describe(ctx)
	if err != nil {
		return fmt.Errorf("describe agent %s: %w", src.Name, err)
	}
	name := desc.Name
	if name == "" {
		name = src.Name
	}
	r.RegisterAgent(&Agent{
		Name:        name,
		Description: desc.Description,
		Tools:       desc.Tools,
		Precedence:  src.Precedence,
		resolve: func(ctx context.Context, args map[string]any) (script.Resolution, error) {
			return a.Resolve(ctx, args)
		},
	})
	return nil
}

// InlineAgent is a static, config-declared agent (`[agents.inline.*]`
// sections): a fixed system prompt and tool list, no script involved.
type InlineAgent struct {
	Name         string
	Description  string
	Tools        []string
	SystemPrompt string
	Precedence   int
}

// RegisterInlineAgent adds a static agent whose Resolve always returns the
// same system prompt and tool list regardless of args.
func RegisterInlineAgent(r *Registry, ia InlineAgent) {
	r.RegisterAgent(&Agent{
		Name:        ia.Name,
		Description: ia.Description,
		Tools:       ia.Tools,
		Precedence:  ia.Precedence,
		resolve: func(ctx context.Context, args map[string]any) (script.Resolution, error) {
			return script.Resolution{System: ia.SystemPrompt, Tools: ia.Tools}, nil
		},
	})
}

// Build assembles a Registry: builtin tools first, then every scripted
// tool/agent source in sources order (precedence on each ScriptSource
// governs collisions, not load order), then the inline agents.
func Build(ctx context.Context, deps BuildDeps) (*Registry, error) {
	r := New()
	registerBuiltinTools(r, deps.Engine, deps.Store)

	loader := NewLoader(newCoreBridge(deps.Engine, deps.Store))
	for _, src := range deps.ToolSources {
		if err := loader.LoadTool(ctx, r, src); err != nil {
			return nil, err
		}
	}
	for _, src := range deps.AgentSources {
		if err := loader.LoadAgent(ctx, r, src); err != nil {
			return nil, err
		}
	}
	for _, ia := range deps.InlineAgents {
		RegisterInlineAgent(r, ia)
	}
	return r, nil
}
