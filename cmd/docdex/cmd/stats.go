package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/docdex/docdex/internal/output"
	"github.com/docdex/docdex/internal/telemetry"
)

// newStatsCmd creates the stats command.
func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show local query telemetry",
		Long: `Stats summarizes query telemetry collected by the MCP server:
query volume, most frequent search terms, recent zero-result queries,
and the latency histogram. All data lives in the local telemetry
database; nothing is reported anywhere.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := output.New(cmd.OutOrStdout())

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if _, err := os.Stat(cfg.Telemetry.Path); err != nil {
				out.Warning("No telemetry recorded yet (run 'docdex serve' and search first)")
				return nil
			}

			store, err := telemetry.OpenStore(cfg.Telemetry.Path)
			if err != nil {
				return err
			}
			defer store.Close()

			report, err := store.Report()
			if err != nil {
				return err
			}

			out.Header("Query telemetry")
			out.Newline()
			out.Plainf("Total queries: %d", report.TotalQueries)

			if len(report.TopTerms) > 0 {
				out.Newline()
				out.Plain("Top terms:")
				for _, tc := range report.TopTerms {
					out.Plainf("  %-20s %d", tc.Term, tc.Count)
				}
			}

			if len(report.ZeroResultQueries) > 0 {
				out.Newline()
				out.Plain("Recent zero-result queries:")
				for _, q := range report.ZeroResultQueries {
					out.Dim("  " + q)
				}
			}

			if len(report.Latency) > 0 {
				out.Newline()
				out.Plain("Latency:")
				for _, b := range []telemetry.LatencyBucket{
					telemetry.BucketP10,
					telemetry.BucketP50,
					telemetry.BucketP100,
					telemetry.BucketP500,
					telemetry.BucketP1000,
				} {
					if n := report.Latency[b]; n > 0 {
						out.Plainf("  %-6s %d", string(b), n)
					}
				}
			}

			return nil
		},
	}
}
