package cli

import (
	"github.com/spf13/cobra"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List configured sources with document/chunk/embed counts",
	Args:  cobra.NoArgs,
	RunE:  runSources,
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}

func runSources(cmd *cobra.Command, args []string) error {
	app, err := newApp(cfgFile)
	if err != nil {
		return err
	}
	defer app.Close()

	statuses, err := app.Store.ListSources()
	if err != nil {
		return err
	}
	return printJSON(cmd, map[string]any{"sources": statuses})
}
