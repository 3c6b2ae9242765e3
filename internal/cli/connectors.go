package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/contextharness/ctx/internal/config"
	"github.com/contextharness/ctx/internal/connector"
	"github.com/contextharness/ctx/internal/connector/filesystem"
	cgit "github.com/contextharness/ctx/internal/connector/git"
	"github.com/contextharness/ctx/internal/connector/s3"
	"github.com/contextharness/ctx/internal/ingest"
	"github.com/contextharness/ctx/internal/registry"
	"github.com/contextharness/ctx/internal/script"
)

// resolvedConnector is one configured connector instance ready to sync,
// plus the source label and full-sync/prune policy / attach to it.
type resolvedConnector struct {
	Label    string
	Conn     connector.Connector
	Prune    bool // this connector type/instance prunes on a full sync
}

// buildConnectors resolves every `[connectors.*.*]` entry in cfg into a
// Connector, keyed by its "<type>:<name>" label.
func buildConnectors(ctx context.Context, cfg *config.Config) ([]resolvedConnector, error) {
	var out []resolvedConnector

	for name, fc := range cfg.Connectors.Filesystem {
		c, err := filesystem.New(filesystem.Config{
			Root:            fc.Root,
			IncludeGlobs:    fc.IncludeGlobs,
			ExcludeGlobs:    fc.ExcludeGlobs,
			FollowSymlinks:  fc.FollowSymlinks,
			MaxExtractBytes: fc.MaxExtractBytes,
		})
		if err != nil {
			return nil, fmt.Errorf("connectors.filesystem.%s: %w", name, err)
		}
		out = append(out, resolvedConnector{
			Label: connector.Label(connector.TypeFilesystem, name),
			Conn:  c,
			Prune: fc.PruneOnFullSync,
		})
	}

	for name, gc := range cfg.Connectors.Git {
		c, err := cgit.New(cgit.Config{
			URL:          gc.URL,
			Branch:       gc.Branch,
			Root:         gc.Root,
			IncludeGlobs: gc.IncludeGlobs,
			Shallow:      gc.Shallow,
			CacheDir:     gc.CacheDir,
		})
		if err != nil {
			return nil, fmt.Errorf("connectors.git.%s: %w", name, err)
		}
		out = append(out, resolvedConnector{
			Label: connector.Label(connector.TypeGit, name),
			Conn:  c,
			Prune: gc.PruneOnFullSync,
		})
	}

	for name, sc := range cfg.Connectors.S3 {
		c, err := s3.New(ctx, s3.Config{
			Bucket:       sc.Bucket,
			Prefix:       sc.Prefix,
			Region:       sc.Region,
			IncludeGlobs: sc.IncludeGlobs,
			EndpointURL:  sc.EndpointURL,
		})
		if err != nil {
			return nil, fmt.Errorf("connectors.s3.%s: %w", name, err)
		}
		out = append(out, resolvedConnector{
			Label: connector.Label(connector.TypeS3, name),
			Conn:  c,
			Prune: sc.PruneOnFullSync,
		})
	}

	for name, scc := range cfg.Connectors.Script {
		sbx := &script.Sandbox{
			Name:    name,
			RootDir: scriptRootDir(scc.Path),
			Timeout: scriptTimeout(scc.Timeout),
			Config:  scc.Extra,
		}
		body, err := readScriptSource(scc.Path)
		if err != nil {
			return nil, fmt.Errorf("connectors.script.%s: %w", name, err)
		}
		sbx.Source = body
		out = append(out, resolvedConnector{
			Label: connector.Label(connector.TypeScript, name),
			Conn:  script.NewConnector(sbx),
			Prune: scc.PruneOnFullSync,
		})
	}

	return out, nil
}

// findConnector resolves a single "<type>:<name>" or bare "<type>" target
// (the latter only valid when exactly one instance of that type is
// configured) for `sync <target>`/`connector test`.
func findConnector(ctx context.Context, cfg *config.Config, target string) (*resolvedConnector, error) {
	all, err := buildConnectors(ctx, cfg)
	if err != nil {
		return nil, err
	}
	var matches []resolvedConnector
	for _, rc := range all {
		if rc.Label == target {
			rc := rc
			return &rc, nil
		}
		if typ, _, ok := splitLabel(rc.Label); ok && typ == target {
			matches = append(matches, rc)
		}
	}
	if len(matches) == 1 {
		return &matches[0], nil
	}
	if len(matches) > 1 {
		return nil, usageErrorf("%q matches %d connectors; specify <type>:<name>", target, len(matches))
	}
	return nil, usageErrorf("no configured connector matches %q", target)
}

func splitLabel(label string) (typ, name string, ok bool) {
	for i := 0; i < len(label); i++ {
		if label[i] == ':' {
			return label[:i], label[i+1:], true
		}
	}
	return "", "", false
}

func scriptRootDir(path string) string {
	dir := path
	for i := len(dir) - 1; i >= 0; i-- {
		if dir[i] == '/' {
			return dir[:i]
		}
	}
	return "."
}

func scriptTimeout(seconds int) (d time.Duration) {
	if seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

func readScriptSource(path string) (string, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// buildSourceSpecs turns every configured connector into an
// ingest.SourceSpec for `sync all`, applying the --full flag uniformly and
// each connector's own prune_on_full_sync policy.
func buildSourceSpecs(resolved []resolvedConnector, full bool) []ingest.SourceSpec {
	specs := make([]ingest.SourceSpec, 0, len(resolved))
	for _, rc := range resolved {
		specs = append(specs, ingest.SourceSpec{
			Name:     rc.Label,
			Conn:     rc.Conn,
			FullSync: full,
			Prune:    full && rc.Prune,
		})
	}
	return specs
}

// buildRegistryDeps assembles registry.BuildDeps from cfg for `serve`/`tool
// list`/`agent list`.
func buildRegistryDeps(app *App, cfg *config.Config) registry.BuildDeps {
	deps := registry.BuildDeps{
		Engine: app.Engine,
		Store:  app.Store,
	}
	for name, tc := range cfg.Tools.Script {
		deps.ToolSources = append(deps.ToolSources, registry.ScriptSource{
			Name:       name,
			Path:       tc.Path,
			Timeout:    scriptTimeout(tc.Timeout),
			Config:     tc.Extra,
			Precedence: registry.PrecedenceExplicitConfig,
		})
	}
	for name, ac := range cfg.Agents.Script {
		deps.AgentSources = append(deps.AgentSources, registry.ScriptSource{
			Name:       name,
			Path:       ac.Path,
			Timeout:    scriptTimeout(ac.Timeout),
			Config:     ac.Extra,
			Precedence: registry.PrecedenceExplicitConfig,
		})
	}
	for name, ic := range cfg.Agents.Inline {
		deps.InlineAgents = append(deps.InlineAgents, registry.InlineAgent{
			Name:         name,
			Description:  ic.Description,
			Tools:        ic.Tools,
			SystemPrompt: ic.SystemPrompt,
			Precedence:   registry.PrecedenceExplicitConfig,
		})
	}
	return deps
}
