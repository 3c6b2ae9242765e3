// Package cli implements the command surface on top of cobra: a
// persistent-flag/init pattern generalized from a daemon's command set to
// Context Harness's ingest/search/serve/registry surface.
package cli

import (
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "ctx",
	Short: "Context Harness — hybrid retrieval for AI tool calls",
	Long: `Context Harness ingests heterogeneous document sources into a local
embedded store and exposes hybrid (lexical + semantic) retrieval to AI
clients over a tool-call protocol.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to ctx.toml (default ./config/ctx.toml)")
}
