package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/docdex/docdex/internal/index"
	"github.com/docdex/docdex/internal/output"
)

// newSearchCmd creates the search command.
func newSearchCmd() *cobra.Command {
	var jsonOutput bool
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search indexed document chunks",
		Long: `Search runs a ranked full-text query against the index and prints
the matching chunks. The query supports field prefixes, quoted phrases,
and boolean operators (e.g. 'title:handbook +leave -sick').`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			eng, err := openEngine(cfg)
			if err != nil {
				return err
			}

			maxResults := cfg.Search.MaxResults
			if limit > 0 {
				maxResults = limit
			}

			debounce, err := cfg.RefreshDebounce()
			if err != nil {
				return err
			}
			coord, err := index.NewRefreshCoordinator(eng, debounce, slog.Default())
			if err != nil {
				return err
			}
			defer coord.Close()

			svc := index.NewService(coord, maxResults, slog.Default())
			out, err := svc.Search(cmd.Context(), query)
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}
			printSearchResults(output.New(cmd.OutOrStdout()), out)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output results as JSON")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results (overrides config)")

	return cmd
}

// printSearchResults renders hits for terminal consumption.
func printSearchResults(out *output.Writer, result *index.SearchOutput) {
	if len(result.Results) == 0 {
		out.Warningf("No results for %q", result.Query)
		return
	}

	out.Headerf("%d hit(s) for %q", result.TotalHits, result.Query)
	out.Newline()
	for i, hit := range result.Results {
		out.Plainf("%d. %s (score %.3f)", i+1, hit.Title, hit.Score)
		out.Dim(fmt.Sprintf("   %s", hit.ID))
		out.Plainf("   %s", excerpt(hit.Content, 200))
		out.Newline()
	}
}

// excerpt truncates content to at most n bytes, preferring a word boundary
// and never splitting a multibyte rune.
func excerpt(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= n {
		return s
	}
	cut := strings.LastIndex(s[:n], " ")
	if cut <= 0 {
		cut = n
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
	}
	return s[:cut] + "..."
}
