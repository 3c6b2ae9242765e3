package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

const defaultConfigStub = `# Context Harness configuration.

[db]
path = "./ctx.db"

[chunking]
max_tokens = 400
overlap_tokens = 40

[embedding]
provider = "disabled"
batch_size = 32
max_retries = 3
timeout_secs = 30

[retrieval]
final_limit = 10
hybrid_alpha = 0.5
candidate_k_keyword = 50
candidate_k_vector = 50
doc_agg = "max"
max_chunks_per_doc = 3

[server]
bind = "127.0.0.1:8420"
`

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Scaffold a config file and create the store",
	RunE:  runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	path := cfgFile
	if path == "" {
		path = "./config/ctx.toml"
	}

	if _, err := os.Stat(path); err == nil {
		fmt.Fprintf(cmd.OutOrStdout(), "config already exists at %s\n", path)
	} else {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigStub), 0o644); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
	}

	app, err := newApp(cfgFile)
	if err != nil {
		return err
	}
	defer app.Close()

	fmt.Fprintf(cmd.OutOrStdout(), "initialized store at %s\n", app.Config.DB.Path)
	return nil
}
