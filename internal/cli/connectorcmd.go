package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/contextharness/ctx/internal/model"
)

var connectorTestLimit int

var connectorCmd = &cobra.Command{
	Use:   "connector",
	Short: "Scaffold and dry-run scripted connectors",
}

var connectorInitCmd = &cobra.Command{
	Use:   "init <name>",
	Short: "Write a scripted connector stub to connectors/<name>.js",
	Args:  cobra.ExactArgs(1),
	RunE:  runConnectorInit,
}

var connectorTestCmd = &cobra.Command{
	Use:   "test <target>",
	Short: "Run one configured connector's Scan and print the items it yields",
	Args:  cobra.ExactArgs(1),
	RunE:  runConnectorTest,
}

func init() {
	connectorTestCmd.Flags().IntVar(&connectorTestLimit, "limit", 10, "max items to print")
	connectorCmd.AddCommand(connectorInitCmd, connectorTestCmd)
	rootCmd.AddCommand(connectorCmd)
}

const connectorStubTemplate = `connector = {
  name: %q
}

connector.scan = function(config) {
  return [
    {
      source_id: "example-1",
      title: "Example item",
      body: "Replace connector.scan with real item discovery.",
    }
  ]
}
`

func runConnectorInit(cmd *cobra.Command, args []string) error {
	name := args[0]
	path := filepath.Join("connectors", name+".js")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		return usageErrorf("%s already exists", path)
	}
	if err := os.WriteFile(path, []byte(fmt.Sprintf(connectorStubTemplate, name)), 0o644); err != nil {
		return err
	}
	return printJSON(cmd, map[string]any{"path": path})
}

func runConnectorTest(cmd *cobra.Command, args []string) error {
	app, err := newApp(cfgFile)
	if err != nil {
		return err
	}
	defer app.Close()

	rc, err := findConnector(cmd.Context(), app.Config, args[0])
	if err != nil {
		return err
	}

	scanCtx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	items, errCh := rc.Conn.Scan(scanCtx, nil)
	var out []model.SourceItem
	truncated := false
	for item := range items {
		out = append(out, item)
		if len(out) >= connectorTestLimit {
			truncated = true
			cancel()
			break
		}
	}
	if scanErr := <-errCh; scanErr != nil && !truncated {
		return scanErr
	}
	return printJSON(cmd, map[string]any{"items": out, "truncated": truncated})
}
