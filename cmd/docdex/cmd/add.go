package cmd

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/docdex/docdex/internal/chunker"
	errs "github.com/docdex/docdex/internal/errors"
	"github.com/docdex/docdex/internal/extract"
	"github.com/docdex/docdex/internal/index"
	"github.com/docdex/docdex/internal/output"
)

// newAddCmd creates the add command.
func newAddCmd() *cobra.Command {
	var docID string
	var title string
	var content string

	cmd := &cobra.Command{
		Use:   "add [files...]",
		Short: "Add or replace documents in the index",
		Long: `Add indexes documents, replacing any previously indexed chunks that
share the same document ID.

Content comes either inline:

  docdex add --id handbook --title "Employee Handbook" --content "..."

or from files (plain text, markdown, or PDF via pdftotext):

  docdex add handbook.pdf notes.md

When indexing files, the ID and title default to the file name without
its extension. --id and --title apply only when a single source is given.`,
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

			entries, err := collectEntries(cmd, args, docID, title, content)
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

	cmd.Flags().StringVar(&docID, "id", "", "Document ID (defaults to file name without extension)")
	cmd.Flags().StringVar(&title, "title", "", "Document title (defaults to the ID)")
	cmd.Flags().StringVar(&content, "content", "", "Inline document content instead of reading files")

	return cmd
}

// collectEntries builds index entries from inline flags or file arguments.
// File contents are extracted concurrently.
func collectEntries(cmd *cobra.Command, args []string, docID, title, content string) ([]index.Entry, error) {
	if content != "" {
		if len(args) > 0 {
			return nil, errs.New(errs.ErrCodeInvalidInput, "--content cannot be combined with file arguments", nil)
		}
		if docID == "" {
			return nil, errs.New(errs.ErrCodeInvalidInput, "--content requires --id", nil)
		}
		if title == "" {
			title = docID
		}
		return []index.Entry{{ID: docID, Title: title, Content: content}}, nil
	}

	if len(args) == 0 {
		return nil, errs.New(errs.ErrCodeInvalidInput, "provide files to index or use --content", nil)
	}
	if len(args) > 1 && (docID != "" || title != "") {
		return nil, errs.New(errs.ErrCodeInvalidInput, "--id and --title apply only to a single source", nil)
	}

	entries := make([]index.Entry, len(args))
	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(4)
	for i, path := range args {
		g.Go(func() error {
			text, err := extract.File(ctx, path)
			if err != nil {
				return fmt.Errorf("extract %s: %w", path, err)
			}
			id := docID
			if id == "" {
				id = fileStem(path)
			}
			t := title
			if t == "" {
				t = fileStem(path)
			}
			entries[i] = index.Entry{ID: id, Title: t, Content: text}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return entries, nil
}

// fileStem returns the file name without directory or extension.
func fileStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
