package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	syncFull     bool
	syncProgress string
	syncParallel int
)

var syncCmd = &cobra.Command{
	Use:   "sync <target>",
	Short: "Sync one connector, a connector type, or all connectors",
	Long: `sync all syncs every configured connector (bounded-parallel). sync
<type> syncs the single configured instance of that type. sync
<type>:<name> syncs one named instance.`,
	Args: cobra.ExactArgs(1),
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&syncFull, "full", false, "force a full resync (rewrite unchanged chunks, prune vanished documents)")
	syncCmd.Flags().StringVar(&syncProgress, "progress", "human", "progress output: human|json|off")
	syncCmd.Flags().IntVar(&syncParallel, "parallel", 4, "max concurrent connector syncs for `sync all`")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	target := args[0]

	app, err := newApp(cfgFile)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := cmd.Context()
	progress := newProgress(syncProgress, cmd.OutOrStdout())

	if target == "all" {
		resolved, err := buildConnectors(ctx, app.Config)
		if err != nil {
			return err
		}
		specs := buildSourceSpecs(resolved, syncFull)
		results, errs := app.Syncer.SyncAll(ctx, specs, syncParallel, progress)
		if len(errs) > 0 {
			for source, err := range errs {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", source, err)
			}
			return fmt.Errorf("%d of %d sources failed to sync", len(errs), len(results))
		}
		return nil
	}

	rc, err := findConnector(ctx, app.Config, target)
	if err != nil {
		return err
	}
	_, err = app.Syncer.Sync(ctx, rc.Label, rc.Conn, syncFull, syncFull && rc.Prune, progress)
	return err
}
