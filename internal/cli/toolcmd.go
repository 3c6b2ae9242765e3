package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/contextharness/ctx/internal/script"
)

var toolTestParamsFlag string

var toolCmd = &cobra.Command{
	Use:   "tool",
	Short: "Scaffold, test, and list scripted tools",
}

var toolInitCmd = &cobra.Command{
	Use:   "init <name>",
	Short: "Write a scripted tool stub to tools/<name>.js",
	Args:  cobra.ExactArgs(1),
	RunE:  runToolInit,
}

var toolTestCmd = &cobra.Command{
	Use:   "test <path>",
	Short: "Describe and invoke a scripted tool against an empty or given param set",
	Args:  cobra.ExactArgs(1),
	RunE:  runToolTest,
}

var toolListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every registered tool (builtin and scripted)",
	Args:  cobra.NoArgs,
	RunE:  runToolList,
}

func init() {
	toolTestCmd.Flags().StringVar(&toolTestParamsFlag, "params", "{}", "JSON object of parameters to invoke with")
	toolCmd.AddCommand(toolInitCmd, toolTestCmd, toolListCmd)
	rootCmd.AddCommand(toolCmd)
}

const toolStubTemplate = `tool = {
  name: %q,
  version: "0.1.0",
  description: "describe what this tool does",
  parameters: [
    { name: "query", type: "string", required: true, description: "input for the tool" }
  ]
}

tool.execute = function(params, context) {
  return { echo: params.query }
}
`

func runToolInit(cmd *cobra.Command, args []string) error {
	name := args[0]
	path := filepath.Join("tools", name+".js")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		return usageErrorf("%s already exists", path)
	}
	if err := os.WriteFile(path, []byte(fmt.Sprintf(toolStubTemplate, name)), 0o644); err != nil {
		return err
	}
	return printJSON(cmd, map[string]any{"path": path})
}

func runToolTest(cmd *cobra.Command, args []string) error {
	params, err := parseJSONObjectFlag(toolTestParamsFlag)
	if err != nil {
		return usageErrorf("--params: %v", err)
	}

	app, err := newApp(cfgFile)
	if err != nil {
		return err
	}
	defer app.Close()

	path := args[0]
	sbx := &script.Sandbox{
		Name:    filepath.Base(path),
		RootDir: filepath.Dir(path),
	}
	body, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	sbx.Source = string(body)

	t := script.NewTool(sbx)
	desc, err := t.Describe(cmd.Context())
	if err != nil {
		return err
	}
	out, err := t.Execute(cmd.Context(), params)
	if err != nil {
		return err
	}
	return printJSON(cmd, map[string]any{"describe": desc, "result": out})
}

func runToolList(cmd *cobra.Command, args []string) error {
	app, err := newApp(cfgFile)
	if err != nil {
		return err
	}
	defer app.Close()

	reg, err := buildRegistryFor(cmd, app)
	if err != nil {
		return err
	}
	return printJSON(cmd, map[string]any{"tools": reg.ListTools()})
}
