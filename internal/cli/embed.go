package cli

import (
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/contextharness/ctx/internal/embedder"
)

var embedLimit int

var embedCmd = &cobra.Command{
	Use:   "embed",
	Short: "Manage chunk embeddings",
}

var embedPendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "Embed chunks with no embedding or a stale one",
	Args:  cobra.NoArgs,
	RunE:  runEmbedPending,
}

var embedRebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Clear every stored embedding and re-embed from scratch",
	Args:  cobra.NoArgs,
	RunE:  runEmbedRebuild,
}

func init() {
	embedPendingCmd.Flags().IntVar(&embedLimit, "limit", 0, "max chunks to embed (0 = no limit)")
	embedCmd.AddCommand(embedPendingCmd, embedRebuildCmd)
	rootCmd.AddCommand(embedCmd)
}

func runEmbedPending(cmd *cobra.Command, args []string) error {
	app, err := newApp(cfgFile)
	if err != nil {
		return err
	}
	defer app.Close()

	progressCh, done := embedProgressBar(cmd)
	defer close(progressCh)

	res, err := app.Embed.EmbedPending(cmd.Context(), embedLimit, progressCh)
	<-done
	if err != nil {
		return err
	}
	return printJSON(cmd, res)
}

func runEmbedRebuild(cmd *cobra.Command, args []string) error {
	app, err := newApp(cfgFile)
	if err != nil {
		return err
	}
	defer app.Close()

	progressCh, done := embedProgressBar(cmd)
	defer close(progressCh)

	res, err := app.Embed.EmbedRebuild(cmd.Context(), progressCh)
	<-done
	if err != nil {
		return err
	}
	return printJSON(cmd, res)
}

// embedProgressBar drains a BatchProgress channel onto a progress bar in a
// background goroutine, returning the channel to hand to the Service and a
// done channel closed once the bar goroutine has drained and exited.
func embedProgressBar(cmd *cobra.Command) (chan embedder.BatchProgress, chan struct{}) {
	ch := make(chan embedder.BatchProgress, 8)
	done := make(chan struct{})
	go func() {
		defer close(done)
		var bar *progressbar.ProgressBar
		for p := range ch {
			if bar == nil {
				bar = progressbar.NewOptions(p.TotalChunks,
					progressbar.OptionSetDescription("embedding"),
					progressbar.OptionSetWriter(cmd.OutOrStdout()),
					progressbar.OptionClearOnFinish(),
				)
			}
			bar.Set(p.ProcessedChunks)
		}
		if bar != nil {
			bar.Finish()
		}
	}()
	return ch, done
}
