package cli

import (
	"github.com/spf13/cobra"

	"github.com/contextharness/ctx/internal/config"
	"github.com/contextharness/ctx/internal/extregistry"
)

var (
	registryListKind string
	registrySearchN  int
)

var registryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Inspect and manage configured extension registries",
}

var registryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every merged catalog entry",
	Args:  cobra.NoArgs,
	RunE:  runRegistryList,
}

var registrySearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Full-text search the merged catalog",
	Args:  cobra.ExactArgs(1),
	RunE:  runRegistrySearch,
}

var registryInfoCmd = &cobra.Command{
	Use:   "info <kind>/<name>",
	Short: "Show one catalog entry's metadata",
	Args:  cobra.ExactArgs(1),
	RunE:  runRegistryInfo,
}

var registryAddCmd = &cobra.Command{
	Use:   "add <kind> <name>",
	Short: "Scaffold a config stub for a new connector/tool/agent instance",
	Args:  cobra.ExactArgs(2),
	RunE:  runRegistryAdd,
}

var registryOverrideCmd = &cobra.Command{
	Use:   "override <kind>/<name>",
	Short: "Copy a read-only catalog entry into a writable local override",
	Args:  cobra.ExactArgs(1),
	RunE:  runRegistryOverride,
}

var registryInstallCmd = &cobra.Command{
	Use:   "install <name>",
	Short: "Clone a configured Git-backed registry",
	Args:  cobra.ExactArgs(1),
	RunE:  runRegistryInstall,
}

var registryUpdateCmd = &cobra.Command{
	Use:   "update <name>",
	Short: "Fast-forward pull a configured Git-backed registry",
	Args:  cobra.ExactArgs(1),
	RunE:  runRegistryUpdate,
}

var registryInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Open every configured registry, cloning any missing Git-backed ones",
	Args:  cobra.NoArgs,
	RunE:  runRegistryInit,
}

func init() {
	registryListCmd.Flags().StringVar(&registryListKind, "kind", "", "connector|tool|agent (empty = all)")
	registrySearchCmd.Flags().IntVar(&registrySearchN, "limit", 20, "max results")
	registryCmd.AddCommand(registryInitCmd, registryListCmd, registrySearchCmd, registryInfoCmd,
		registryAddCmd, registryOverrideCmd, registryInstallCmd, registryUpdateCmd)
	rootCmd.AddCommand(registryCmd)
}

// registrySourcesFrom maps cfg.Registries into extregistry.Source values,
// assigning each a precedence tier by name project-local >
// personal > company > community ordering: a registry named "project-local"
// or "personal" or "company" gets that tier, anything else is treated as a
// community registry (the lowest tier, the common case for a public
// third-party catalog).
func registrySourcesFrom(cfg *config.Config) []extregistry.Source {
	var out []extregistry.Source
	for name, rc := range cfg.Registries {
		out = append(out, extregistry.Source{
			Name:       name,
			URL:        rc.URL,
			Branch:     rc.Branch,
			Path:       rc.Path,
			ReadOnly:   rc.ReadOnly,
			AutoUpdate: rc.AutoUpdate,
			Precedence: registryPrecedenceFor(name),
		})
	}
	return out
}

func registryPrecedenceFor(name string) int {
	switch name {
	case "project-local":
		return 3
	case "personal":
		return 2
	case "company":
		return 1
	default:
		return 0
	}
}

func openCatalog(cmd *cobra.Command, app *App) (*extregistry.Catalog, error) {
	return extregistry.Open(cmd.Context(), registrySourcesFrom(app.Config))
}

func runRegistryInit(cmd *cobra.Command, args []string) error {
	app, err := newApp(cfgFile)
	if err != nil {
		return err
	}
	defer app.Close()

	cat, err := openCatalog(cmd, app)
	if err != nil {
		return err
	}
	defer cat.Close()
	return printJSON(cmd, map[string]any{"entries": len(cat.List(""))})
}

func runRegistryList(cmd *cobra.Command, args []string) error {
	app, err := newApp(cfgFile)
	if err != nil {
		return err
	}
	defer app.Close()

	cat, err := openCatalog(cmd, app)
	if err != nil {
		return err
	}
	defer cat.Close()
	return printJSON(cmd, map[string]any{"entries": cat.List(extregistry.Kind(registryListKind))})
}

func runRegistrySearch(cmd *cobra.Command, args []string) error {
	app, err := newApp(cfgFile)
	if err != nil {
		return err
	}
	defer app.Close()

	cat, err := openCatalog(cmd, app)
	if err != nil {
		return err
	}
	defer cat.Close()

	hits, err := cat.Search(args[0], registrySearchN)
	if err != nil {
		return err
	}
	return printJSON(cmd, map[string]any{"results": hits})
}

func runRegistryInfo(cmd *cobra.Command, args []string) error {
	kind, name, err := splitKindName(args[0])
	if err != nil {
		return err
	}

	app, err := newApp(cfgFile)
	if err != nil {
		return err
	}
	defer app.Close()

	cat, err := openCatalog(cmd, app)
	if err != nil {
		return err
	}
	defer cat.Close()

	e, ok := cat.Info(kind, name)
	if !ok {
		return usageErrorf("no registry entry %s/%s", kind, name)
	}
	return printJSON(cmd, e)
}

func runRegistryAdd(cmd *cobra.Command, args []string) error {
	app, err := newApp(cfgFile)
	if err != nil {
		return err
	}
	defer app.Close()

	path, err := extregistry.Scaffold(extregistry.Kind(args[0]), args[1], scriptRootDir(app.Config.DB.Path)+"/registries-local")
	if err != nil {
		return err
	}
	return printJSON(cmd, map[string]any{"path": path})
}

func runRegistryOverride(cmd *cobra.Command, args []string) error {
	kind, name, err := splitKindName(args[0])
	if err != nil {
		return err
	}

	app, err := newApp(cfgFile)
	if err != nil {
		return err
	}
	defer app.Close()

	cat, err := openCatalog(cmd, app)
	if err != nil {
		return err
	}
	defer cat.Close()

	e, ok := cat.Info(kind, name)
	if !ok {
		return usageErrorf("no registry entry %s/%s", kind, name)
	}
	dest, err := extregistry.Override(e, scriptRootDir(app.Config.DB.Path)+"/registries-local")
	if err != nil {
		return err
	}
	return printJSON(cmd, map[string]any{"path": dest})
}

func runRegistryInstall(cmd *cobra.Command, args []string) error {
	app, err := newApp(cfgFile)
	if err != nil {
		return err
	}
	defer app.Close()

	src, err := findRegistrySource(app.Config, args[0])
	if err != nil {
		return err
	}
	if err := extregistry.EnsureCloned(cmd.Context(), *src); err != nil {
		return err
	}
	return printJSON(cmd, map[string]any{"status": "installed", "registry": src.Name})
}

func runRegistryUpdate(cmd *cobra.Command, args []string) error {
	app, err := newApp(cfgFile)
	if err != nil {
		return err
	}
	defer app.Close()

	src, err := findRegistrySource(app.Config, args[0])
	if err != nil {
		return err
	}
	if err := extregistry.Update(cmd.Context(), *src); err != nil {
		return err
	}
	return printJSON(cmd, map[string]any{"status": "updated", "registry": src.Name})
}

func findRegistrySource(cfg *config.Config, name string) (*extregistry.Source, error) {
	for _, src := range registrySourcesFrom(cfg) {
		if src.Name == name {
			return &src, nil
		}
	}
	return nil, usageErrorf("no configured registry named %q", name)
}

func splitKindName(s string) (extregistry.Kind, string, error) {
	for i := 0; i < len(s); i++ {
		if s[i] == '/' {
			return extregistry.Kind(s[:i]), s[i+1:], nil
		}
	}
	return "", "", usageErrorf("expected <kind>/<name>, got %q", s)
}
