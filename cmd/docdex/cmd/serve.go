package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/docdex/docdex/internal/index"
	mcpserver "github.com/docdex/docdex/internal/mcp"
	"github.com/docdex/docdex/internal/telemetry"
)

// newServeCmd creates the serve command.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server over stdio",
		Long: `Serve runs the docdex MCP server on stdin/stdout.

Stdout carries JSON-RPC exclusively; all diagnostics go to the log file.
The index must already exist. The server picks up external index writes
automatically after a debounce window.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd)
		},
	}
}

// runServe wires the engine, refresh coordinator, search service, and
// telemetry together and blocks on the stdio transport.
func runServe(cmd *cobra.Command) error {
	logger := slog.Default()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	eng, err := openEngine(cfg)
	if err != nil {
		logger.Error("startup failed", slog.String("error", err.Error()))
		return err
	}

	debounce, err := cfg.RefreshDebounce()
	if err != nil {
		return err
	}
	coord, err := index.NewRefreshCoordinator(eng, debounce, logger)
	if err != nil {
		return err
	}
	defer coord.Close()

	svc := index.NewService(coord, cfg.Search.MaxResults, logger)

	server, err := mcpserver.NewServer(svc, logger)
	if err != nil {
		return err
	}
	defer server.Close()

	if cfg.Telemetry.Enabled {
		store, err := telemetry.OpenStore(cfg.Telemetry.Path)
		if err != nil {
			// Telemetry is best effort. Search still works without it.
			logger.Warn("telemetry disabled", slog.String("error", err.Error()))
		} else {
			metrics := telemetry.NewQueryMetrics(telemetry.DefaultConfig())
			svc.SetMetrics(metrics)
			server.SetTelemetry(metrics, store)
		}
	}

	logger.Info("starting MCP server",
		slog.String("index", cfg.Index.Path),
		slog.String("transport", cfg.Server.Transport),
		slog.Duration("refresh_debounce", debounce))

	return server.Serve(cmd.Context())
}
