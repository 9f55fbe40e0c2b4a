package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/docdex/docdex/internal/chunker"
	errs "github.com/docdex/docdex/internal/errors"
	"github.com/docdex/docdex/internal/index"
	"github.com/docdex/docdex/internal/output"
)

// newBulkCmd creates the bulk command.
func newBulkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bulk <entries.json>",
		Short: "Index a JSON array of documents in one batch",
		Long: `Bulk reads a JSON array of documents and indexes them in a single
write session with one commit:

  [
    {"id": "handbook", "title": "Employee Handbook", "content": "..."},
    {"id": "policy", "title": "Leave Policy", "content": "..."}
  ]

Use '-' to read the array from stdin. Entries missing an id or content
are skipped with warnings; the remaining entries are still indexed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.New(cmd.OutOrStdout())

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			eng, err := openEngine(cfg)
			if err != nil {
				return err
			}

			entries, err := readEntries(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}

			splitter, err := chunker.NewSplitter(cfg.Chunking.MaxWords, cfg.Chunking.OverlapWords)
			if err != nil {
				return err
			}
			replacer := index.NewReplacer(splitter, slog.Default())

			result, err := replacer.ReplaceAll(eng, entries)
			if result != nil {
				for _, w := range result.Warnings {
					out.Warning(w)
				}
			}
			if err != nil {
				return err
			}

			out.Successf("Indexed %d document(s) as %d chunk(s)",
				result.DocumentsReplaced, result.ChunksWritten)
			return nil
		},
	}

	return cmd
}

// readEntries parses the JSON entry array from a file or stdin.
func readEntries(path string, stdin io.Reader) ([]index.Entry, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeFileNotFound, fmt.Errorf("read entries: %w", err))
	}

	var entries []index.Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidInput, fmt.Errorf("parse entries: %w", err))
	}
	return entries, nil
}
