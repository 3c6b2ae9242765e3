package script

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/contextharness/ctx/internal/apperr"
	"github.com/contextharness/ctx/internal/model"
)

type stubBridge struct{}

func (stubBridge) Search(ctx context.Context, query string, opts SearchOpts) ([]model.Result, error) {
	return []model.Result{{ChunkID: "c1", DocumentID: "d1", Score: 1}}, nil
}
func (stubBridge) Get(ctx context.Context, id string) (*model.Document, error) {
	return &model.Document{ID: id, Body: "body"}, nil
}
func (stubBridge) Sources(ctx context.Context) ([]model.SourceStatus, error) {
	return []model.SourceStatus{{Source: "filesystem:t", DocumentCount: 1}}, nil
}

func TestConnector_ScanReturnsItems(t *testing.T) {
	sbx := &Sandbox{
		Name: "test-connector",
		Source: `
			connector = { name: "test", version: "1.0", description: "d" }
			connector.scan = function(config) {
				return [
					{ source_id: "one", body: "hello " + config.greeting },
					{ source_id: "two", body: "world" },
				]
			}
		`,
		Config: map[string]string{"greeting": "there"},
	}
	conn := NewConnector(sbx)
	items, errCh := conn.Scan(context.Background(), nil)

	var got []model.SourceItem
	for it := range items {
		got = append(got, it)
	}
	require.NoError(t, <-errCh)
	require.Len(t, got, 2)
	require.Equal(t, "hello there", got[0].Body)
}

func TestConnector_ScanExposesCheckpointToConfig(t *testing.T) {
	sbx := &Sandbox{
		Name: "test-connector",
		Source: `
			connector = { name: "test" }
			connector.scan = function(config) {
				return [ { source_id: "one", body: "since=" + config.since + " cursor=" + config.cursor } ]
			}
		`,
		Config: map[string]string{"greeting": "hi"},
	}
	conn := NewConnector(sbx)
	since := &model.Checkpoint{
		Source:       "script:test",
		LastSyncedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Cursor:       "page-2",
	}
	items, errCh := conn.Scan(context.Background(), since)

	var got []model.SourceItem
	for it := range items {
		got = append(got, it)
	}
	require.NoError(t, <-errCh)
	require.Len(t, got, 1)
	require.Equal(t, "since=2026-01-01T00:00:00Z cursor=page-2", got[0].Body)
	// sbx.Config itself must stay untouched across calls.
	require.NotContains(t, sbx.Config, "since")
}

func TestConnector_SkipsMalformedItems(t *testing.T) {
	sbx := &Sandbox{
		Name: "test-connector",
		Source: `
			connector = { name: "test" }
			connector.scan = function(config) {
				return [ { source_id: "ok", body: "fine" }, "not an object", { body: "missing id" } ]
			}
		`,
	}
	conn := NewConnector(sbx)
	items, errCh := conn.Scan(context.Background(), nil)

	var got []model.SourceItem
	for it := range items {
		got = append(got, it)
	}
	require.NoError(t, <-errCh)
	require.Len(t, got, 1)
}

func TestTool_ValidatesParamsBeforeExecute(t *testing.T) {
	sbx := &Sandbox{
		Name: "test-tool",
		Source: `
			tool = {
				name: "echo",
				version: "1.0",
				description: "echoes input",
				parameters: [
					{ name: "text", type: "string", required: true }
				]
			}
			tool.execute = function(params, context) {
				return { echoed: params.text }
			}
		`,
		Bridge: stubBridge{},
	}
	tool := NewTool(sbx)

	_, err := tool.Execute(context.Background(), map[string]any{})
	require.Error(t, err)
	ae, ok := apperr.As(err)
	require.True(t, ok)
	require.Equal(t, apperr.BadRequest, ae.Code)

	out, err := tool.Execute(context.Background(), map[string]any{"text": "hi"})
	require.NoError(t, err)
	m, ok := out.(map[string]any)
	require.True(t, ok)
	require.Equal(t, "hi", m["echoed"])
}

func TestTool_ContextBridgeReachesSearch(t *testing.T) {
	sbx := &Sandbox{
		Name: "bridge-tool",
		Source: `
			tool = { name: "lookup", parameters: [] }
			tool.execute = function(params, context) {
				var results = context.search("anything", {})
				return { count: results.length }
			}
		`,
		Bridge: stubBridge{},
	}
	tool := NewTool(sbx)
	out, err := tool.Execute(context.Background(), map[string]any{})
	require.NoError(t, err)
	m := out.(map[string]any)
	require.EqualValues(t, 1, m["count"])
}

func TestTool_Timeout(t *testing.T) {
	sbx := &Sandbox{
		Name: "slow-tool",
		Source: `
			tool = { name: "slow", parameters: [] }
			tool.execute = function(params, context) {
				sleep(60)
				return {}
			}
		`,
		Timeout: 50 * time.Millisecond,
	}
	tool := NewTool(sbx)
	_, err := tool.Execute(context.Background(), map[string]any{})
	require.Error(t, err)
	ae, ok := apperr.As(err)
	require.True(t, ok)
	require.Equal(t, apperr.ScriptTimeout, ae.Code)
}

func TestAgent_ResolveBuildsSystemPrompt(t *testing.T) {
	sbx := &Sandbox{
		Name: "test-agent",
		Source: `
			agent = { name: "helper", description: "d", tools: ["search"] }
			agent.resolve = function(args, config, context) {
				return { system: "You help with " + args.topic, tools: ["search", "get"] }
			}
		`,
		Bridge: stubBridge{},
	}
	ag := NewAgent(sbx)
	res, err := ag.Resolve(context.Background(), map[string]any{"topic": "docs"})
	require.NoError(t, err)
	require.Equal(t, "You help with docs", res.System)
	require.Equal(t, []string{"search", "get"}, res.Tools)
}
