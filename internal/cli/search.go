package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/contextharness/ctx/internal/model"
)

var (
	searchMode    string
	searchLimit   int
	searchSource  string
	searchExplain bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Run a keyword/semantic/hybrid search",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().StringVar(&searchMode, "mode", "hybrid", "keyword|semantic|hybrid")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 10, "max results")
	searchCmd.Flags().StringVar(&searchSource, "source", "", "restrict to one source label")
	searchCmd.Flags().BoolVar(&searchExplain, "explain", false, "include per-axis score breakdown")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	app, err := newApp(cfgFile)
	if err != nil {
		return err
	}
	defer app.Close()

	p := app.searchDefaults()
	p.Query = args[0]
	p.Mode = model.SearchMode(searchMode)
	p.Limit = searchLimit
	p.Source = searchSource
	p.Explain = searchExplain

	results, err := app.Engine.Search(cmd.Context(), p)
	if err != nil {
		return err
	}
	return printJSON(cmd, map[string]any{"results": results})
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
