package extregistry

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeRegistry(t *testing.T, dir string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "tools"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "agents"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "registry.toml"), []byte(`
name = "test-registry"

[[tools]]
name = "weather"
description = "fetches current weather conditions"
entry = "tools/weather.js"

[[agents]]
name = "assistant"
description = "general purpose helper agent"
entry = "agents/assistant.js"
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tools", "weather.js"), []byte(`
		tool = { name: "weather", parameters: [] }
		tool.execute = function(params, context) { return {} }
	`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "agents", "assistant.js"), []byte(`
		agent = { name: "assistant" }
		agent.resolve = function(args, config, context) { return { system: "help" } }
	`), 0o644))
}

func TestCatalog_OpenMergesLocalManifest(t *testing.T) {
	dir := t.TempDir()
	writeRegistry(t, dir)

	cat, err := Open(context.Background(), []Source{
		{Name: "community", Path: dir, Precedence: 0, ReadOnly: true},
	})
	require.NoError(t, err)
	t.Cleanup(func() { cat.Close() })

	tools := cat.List(KindTool)
	require.Len(t, tools, 1)
	require.Equal(t, "weather", tools[0].Name)

	agents := cat.List(KindAgent)
	require.Len(t, agents, 1)
	require.Equal(t, "assistant", agents[0].Name)
}

func TestCatalog_SearchFindsByDescription(t *testing.T) {
	dir := t.TempDir()
	writeRegistry(t, dir)

	cat, err := Open(context.Background(), []Source{
		{Name: "community", Path: dir, Precedence: 0, ReadOnly: true},
	})
	require.NoError(t, err)
	t.Cleanup(func() { cat.Close() })

	hits, err := cat.Search("weather", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, "weather", hits[0].Name)
}

func TestCatalog_PrecedenceKeepsHigherTier(t *testing.T) {
	communityDir := t.TempDir()
	writeRegistry(t, communityDir)

	companyDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(companyDir, "tools"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(companyDir, "registry.toml"), []byte(`
name = "company-registry"

[[tools]]
name = "weather"
description = "company override of weather tool"
entry = "tools/weather.js"
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(companyDir, "tools", "weather.js"), []byte(`
		tool = { name: "weather", parameters: [] }
		tool.execute = function(params, context) { return { source: "company" } }
	`), 0o644))

	cat, err := Open(context.Background(), []Source{
		{Name: "community", Path: communityDir, Precedence: 0, ReadOnly: true},
		{Name: "company", Path: companyDir, Precedence: 1, ReadOnly: true},
	})
	require.NoError(t, err)
	t.Cleanup(func() { cat.Close() })

	entry, ok := cat.Info(KindTool, "weather")
	require.True(t, ok)
	require.Equal(t, "company", entry.Registry)
}

func TestCatalog_ToolSourcesProjectForLoader(t *testing.T) {
	dir := t.TempDir()
	writeRegistry(t, dir)

	cat, err := Open(context.Background(), []Source{
		{Name: "community", Path: dir, Precedence: 0, ReadOnly: true},
	})
	require.NoError(t, err)
	t.Cleanup(func() { cat.Close() })

	srcs := cat.ToolSources()
	require.Len(t, srcs, 1)
	require.Equal(t, "weather", srcs[0].Name)
	require.FileExists(t, srcs[0].Path)
}
