package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/docdex/docdex/internal/index"
	"github.com/docdex/docdex/internal/output"
)

// newListCmd creates the list command.
func newListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List indexed documents with chunk counts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			eng, err := openEngine(cfg)
			if err != nil {
				return err
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

			svc := index.NewService(coord, cfg.Search.MaxResults, slog.Default())
			listing, err := svc.ListDocuments(cmd.Context())
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(listing)
			}

			out := output.New(cmd.OutOrStdout())
			if listing.TotalDocuments == 0 {
				out.Warning("Index is empty")
				return nil
			}
			out.Headerf("%d document(s), %d chunk(s)", listing.TotalDocuments, listing.TotalChunks)
			out.Newline()
			for _, doc := range listing.Documents {
				out.Plainf("%-30s %s", doc.SourceDocument, doc.Title)
				out.Dim(chunkLabel(doc.ChunkCount))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output listing as JSON")

	return cmd
}

func chunkLabel(n int) string {
	if n == 1 {
		return "   1 chunk"
	}
	return fmt.Sprintf("   %d chunks", n)
}
