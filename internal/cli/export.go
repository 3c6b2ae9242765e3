package cli

import (
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Dump the store as a portable {documents, chunks} JSON snapshot",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	app, err := newApp(cfgFile)
	if err != nil {
		return err
	}
	defer app.Close()

	docs, err := app.Store.AllDocuments()
	if err != nil {
		return err
	}
	chunks, err := app.Store.AllChunks()
	if err != nil {
		return err
	}

	return printJSON(cmd, map[string]any{
		"documents": docs,
		"chunks":    chunks,
	})
}
