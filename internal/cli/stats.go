package cli

import (
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print store-wide document/chunk/embedding totals",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	app, err := newApp(cfgFile)
	if err != nil {
		return err
	}
	defer app.Close()

	statuses, err := app.Store.ListSources()
	if err != nil {
		return err
	}

	var documents, chunks, embedded int
	for _, s := range statuses {
		documents += s.DocumentCount
		chunks += s.ChunkCount
		embedded += s.EmbeddedCount
	}

	pending, err := app.Store.PendingChunkIDs(1 << 30)
	if err != nil {
		return err
	}

	return printJSON(cmd, map[string]any{
		"sources":        len(statuses),
		"documents":      documents,
		"chunks":         chunks,
		"embedded":       embedded,
		"pending_embeds": len(pending),
	})
}
