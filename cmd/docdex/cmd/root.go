// Package cmd provides the CLI commands for docdex.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/docdex/docdex/internal/config"
	"github.com/docdex/docdex/internal/engine"
	errs "github.com/docdex/docdex/internal/errors"
	"github.com/docdex/docdex/internal/logging"
	"github.com/docdex/docdex/pkg/version"
)

var (
	debugMode      bool
	loggingCleanup func()
)

// NewRootCmd creates the root command for the docdex CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docdex",
		Short: "Full-text chunk search over business documents via MCP",
		Long: `Docdex indexes business documents as overlapping word-window chunks
and serves ranked full-text search to MCP clients over stdio.

Run 'docdex init' once, add documents with 'docdex add' or 'docdex bulk',
then run 'docdex' (or 'docdex serve') to start the MCP server.`,
		Version: version.Version,
		Args:    cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return cmd.Help()
			}
			return runServe(cmd)
		},
	}

	cmd.SetVersionTemplate("docdex version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.docdex/logs/")

	cmd.PersistentPreRunE = startLogging
	cmd.PersistentPostRunE = stopLogging

	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newAddCmd())
	cmd.AddCommand(newBulkCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// startLogging sets up file logging. Stdout stays reserved for command
// output (and JSON-RPC when serving), so logs never go there.
func startLogging(_ *cobra.Command, _ []string) error {
	cfg := logging.DefaultConfig()
	if debugMode {
		cfg.Level = "debug"
	} else if v := os.Getenv("DOCDEX_LOG_LEVEL"); v != "" {
		cfg.Level = v
	}

	logger, cleanup, err := logging.Setup(cfg)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	if debugMode {
		slog.Debug("debug logging enabled",
			slog.String("log_file", logging.DefaultLogPath()),
			slog.String("version", version.Version))
	}
	return nil
}

// stopLogging flushes and closes the log file.
func stopLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// Execute runs the root command with signal-aware context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}

// loadConfig resolves configuration from the working directory.
func loadConfig() (*config.Config, error) {
	return config.LoadOrDefault(".")
}

// openEngine returns the engine for the configured index path, requiring
// the index to already exist on disk.
func openEngine(cfg *config.Config) (*engine.BleveEngine, error) {
	eng := engine.NewBleveEngine(cfg.Index.Path)
	if !eng.Exists() {
		return nil, errs.Newf(errs.ErrCodeIndexMissing,
			"no index found at %s (run 'docdex init' first)", cfg.Index.Path)
	}
	return eng, nil
}
