package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/contextharness/ctx/internal/registry"
)

// parseJSONObjectFlag decodes a --params/--args style flag value as a JSON
// object, defaulting an empty string to {}.
func parseJSONObjectFlag(s string) (map[string]any, error) {
	if s == "" {
		return map[string]any{}, nil
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, fmt.Errorf("invalid JSON object: %w", err)
	}
	return out, nil
}

// buildRegistryFor assembles the full registry.Registry (builtins plus
// every configured scripted/inline extension) for read-only inspection
// commands (`tool list`, `agent list`).
func buildRegistryFor(cmd *cobra.Command, app *App) (*registry.Registry, error) {
	return registry.Build(cmd.Context(), buildRegistryDeps(app, app.Config))
}
