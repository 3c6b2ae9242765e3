package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/contextharness/ctx/internal/apperr"
)

var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Fetch a single document by id",
	Args:  cobra.ExactArgs(1),
	RunE:  runGet,
}

func init() {
	rootCmd.AddCommand(getCmd)
}

func runGet(cmd *cobra.Command, args []string) error {
	app, err := newApp(cfgFile)
	if err != nil {
		return err
	}
	defer app.Close()

	doc, err := app.Store.GetDocument(args[0])
	if err != nil {
		return err
	}
	if doc == nil {
		return apperr.E(apperr.NotFound, fmt.Sprintf("document %q not found", args[0]), nil)
	}
	return printJSON(cmd, doc)
}
