package script

import (
	"context"
	"fmt"
	"time"

	"github.com/dop251/goja"

	"github.com/contextharness/ctx/internal/model"
)

// Connector adapts a scripted connector (defining `connector = {...}` and
// `connector.scan(config)`) to the internal/connector.Connector interface,
// so script-defined connectors slot into the same ingester path as the
// builtin filesystem/git/s3 connectors.
type Connector struct {
	sbx *Sandbox
}

// NewConnector returns a Connector bound to sbx. sbx.Bridge is expected to
// be nil: only passes a context bridge to tool.execute and
// agent.resolve, not connector.scan.
func NewConnector(sbx *Sandbox) *Connector {
	return &Connector{sbx: sbx}
}

// Scan runs connector.scan(config) to completion and streams the returned
// items, following the same "close items, then send at most one error"
// contract as the builtin connectors (internal/connector/filesystem, etc).
// Because goja.Runtime execution is entirely synchronous, the whole scan
// completes before this goroutine starts sending — the channel is used for
// contract symmetry with builtin connectors, not real streaming.
//
// since, when non-nil, is exposed to the script as two reserved config
// keys — "since" (the prior checkpoint's last_synced_at, RFC3339) and
// "cursor" (its opaque cursor string, if any) — so a script that tracks
// its own upstream pagination/cursor can request only items changed since
// that point. A script that ignores these keys simply rescans everything,
// which the ingester's idempotent upsert tolerates.
func (c *Connector) Scan(ctx context.Context, since *model.Checkpoint) (<-chan model.SourceItem, <-chan error) {
	items := make(chan model.SourceItem)
	errCh := make(chan error, 1)

	go func() {
		defer close(items)
		defer close(errCh)

		result, err := c.sbx.run(ctx, func(vm *goja.Runtime) (goja.Value, error) {
			connectorObj := vm.Get("connector")
			if connectorObj == nil || goja.IsUndefined(connectorObj) {
				return nil, fmt.Errorf("script does not define a `connector` table")
			}
			scanFn, ok := goja.AssertFunction(connectorObj.ToObject(vm).Get("scan"))
			if !ok {
				return nil, fmt.Errorf("connector.scan is not a function")
			}
			configVal := vm.ToValue(configWithCheckpoint(c.sbx.Config, since))
			return scanFn(connectorObj, configVal)
		})
		if err != nil {
			errCh <- err
			return
		}

		raw, ok := exportTo(result).([]any)
		if !ok {
			if exportTo(result) == nil {
				return
			}
			errCh <- fmt.Errorf("connector.scan must return an array of items")
			return
		}

		for i, entry := range raw {
			item, skipReason, convErr := toSourceItem(entry)
			if convErr != nil {
				errCh <- fmt.Errorf("connector.scan item %d: %w", i, convErr)
				return
			}
			if skipReason != "" {
				// Malformed individual items are skipped without being
				// counted or reported, not fatal to the whole scan.
				continue
			}
			select {
			case items <- item:
			case <-ctx.Done():
				return
			}
		}
	}()

	return items, errCh
}

// toSourceItem converts one exported JS item into a model.SourceItem. A
// non-object entry (or one missing the required source_id/body fields) is
// reported via skipReason rather than an error, matching "script
// returning a non-table item → counted-skip" boundary behavior.
func toSourceItem(entry any) (item model.SourceItem, skipReason string, err error) {
	m, ok := entry.(map[string]any)
	if !ok {
		return model.SourceItem{}, "not an object", nil
	}
	sourceID, _ := m["source_id"].(string)
	body, _ := m["body"].(string)
	if sourceID == "" || body == "" {
		return model.SourceItem{}, "missing required source_id/body", nil
	}
	item = model.SourceItem{
		SourceID:    sourceID,
		Body:        body,
		Title:       stringField(m, "title"),
		SourceURL:   stringField(m, "source_url"),
		ContentType: stringField(m, "content_type"),
		Author:      stringField(m, "author"),
	}
	if meta, ok := m["metadata"].(map[string]any); ok {
		item.Metadata = map[string]string{}
		for k, v := range meta {
			item.Metadata[k] = fmt.Sprintf("%v", v)
		}
	}
	item.CreatedAt = timeField(m, "created_at")
	item.UpdatedAt = timeField(m, "updated_at")
	return item, "", nil
}

// configWithCheckpoint copies cfg and, when since is non-nil, adds the
// reserved "since"/"cursor" keys — never mutates cfg itself, since the
// same Sandbox (and its Config map) is reused across every sync of this
// connector instance.
func configWithCheckpoint(cfg map[string]string, since *model.Checkpoint) map[string]string {
	out := make(map[string]string, len(cfg)+2)
	for k, v := range cfg {
		out[k] = v
	}
	if since != nil {
		out["since"] = since.LastSyncedAt.UTC().Format(time.RFC3339)
		if since.Cursor != "" {
			out["cursor"] = since.Cursor
		}
	}
	return out
}

func timeField(m map[string]any, key string) *time.Time {
	s, ok := m[key].(string)
	if !ok || s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}
