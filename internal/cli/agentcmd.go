package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/contextharness/ctx/internal/registry"
	"github.com/contextharness/ctx/internal/script"
)

var agentTestArgsFlag string

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Scaffold, test, and list agents",
}

var agentInitCmd = &cobra.Command{
	Use:   "init <name>",
	Short: "Write a scripted agent stub to agents/<name>.js",
	Args:  cobra.ExactArgs(1),
	RunE:  runAgentInit,
}

var agentTestCmd = &cobra.Command{
	Use:   "test <path>",
	Short: "Describe and resolve a scripted agent against a given argument set",
	Args:  cobra.ExactArgs(1),
	RunE:  runAgentTest,
}

var agentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every registered agent (scripted and inline)",
	Args:  cobra.NoArgs,
	RunE:  runAgentList,
}

func init() {
	agentTestCmd.Flags().StringVar(&agentTestArgsFlag, "args", "{}", "JSON object of arguments to resolve with")
	agentCmd.AddCommand(agentInitCmd, agentTestCmd, agentListCmd)
	rootCmd.AddCommand(agentCmd)
}

const agentStubTemplate = `agent = {
  name: %q,
  description: "describe when to use this agent",
  tools: ["search", "get"],
  arguments: [
    { name: "topic", description: "what the caller wants help with", required: true }
  ]
}

agent.resolve = function(args, config, context) {
  return {
    system: "You help the caller with: " + args.topic,
    tools: agent.tools
  }
}
`

func runAgentInit(cmd *cobra.Command, args []string) error {
	name := args[0]
	path := filepath.Join("agents", name+".js")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		return usageErrorf("%s already exists", path)
	}
	if err := os.WriteFile(path, []byte(fmt.Sprintf(agentStubTemplate, name)), 0o644); err != nil {
		return err
	}
	return printJSON(cmd, map[string]any{"path": path})
}

func runAgentTest(cmd *cobra.Command, args []string) error {
	resolveArgs, err := parseJSONObjectFlag(agentTestArgsFlag)
	if err != nil {
		return usageErrorf("--args: %v", err)
	}

	app, err := newApp(cfgFile)
	if err != nil {
		return err
	}
	defer app.Close()

	path := args[0]
	body, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	sbx := &script.Sandbox{
		Name:    filepath.Base(path),
		Source:  string(body),
		RootDir: filepath.Dir(path),
		Bridge:  registry.NewCoreBridge(app.Engine, app.Store),
	}

	a := script.NewAgent(sbx)
	desc, err := a.Describe(cmd.Context())
	if err != nil {
		return err
	}
	res, err := a.Resolve(cmd.Context(), resolveArgs)
	if err != nil {
		return err
	}
	return printJSON(cmd, map[string]any{"describe": desc, "resolution": res})
}

func runAgentList(cmd *cobra.Command, args []string) error {
	app, err := newApp(cfgFile)
	if err != nil {
		return err
	}
	defer app.Close()

	reg, err := buildRegistryFor(cmd, app)
	if err != nil {
		return err
	}
	return printJSON(cmd, map[string]any{"agents": reg.ListAgents()})
}
