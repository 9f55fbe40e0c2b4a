package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/docdex/docdex/configs"
	"github.com/docdex/docdex/internal/config"
	"github.com/docdex/docdex/internal/engine"
	"github.com/docdex/docdex/internal/output"
)

// newInitCmd creates the init command.
func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create an empty document index in the current directory",
		Long: `Init creates the .docdex data directory, an empty search index,
and a default .docdex.yaml config file (unless one already exists).`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := output.New(cmd.OutOrStdout())

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			eng := engine.NewBleveEngine(cfg.Index.Path)
			if eng.Exists() {
				if !force {
					out.Warningf("Index already exists at %s (use --force to recreate)", cfg.Index.Path)
					return nil
				}
				if err := os.RemoveAll(cfg.Index.Path); err != nil {
					return fmt.Errorf("remove existing index: %w", err)
				}
			}

			if err := eng.Create(); err != nil {
				return err
			}

			configPath := filepath.Join(".", config.ConfigFileName)
			if _, err := os.Stat(configPath); os.IsNotExist(err) {
				if err := os.WriteFile(configPath, []byte(configs.ProjectConfigTemplate), 0o644); err != nil {
					return fmt.Errorf("write %s: %w", configPath, err)
				}
				out.Plainf("Wrote %s", configPath)
			}

			out.Successf("Initialized empty index at %s", cfg.Index.Path)
			out.Dim("Add documents with 'docdex add' or 'docdex bulk', then run 'docdex serve'.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Recreate the index if it already exists")

	return cmd
}
