package cmd

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/docdex/docdex/internal/chunker"
	"github.com/docdex/docdex/internal/engine"
	"github.com/docdex/docdex/internal/extract"
	"github.com/docdex/docdex/internal/index"
	"github.com/docdex/docdex/internal/output"
	"github.com/docdex/docdex/internal/watcher"
)

// newWatchCmd creates the watch command.
func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <directory>",
		Short: "Watch a directory and keep the index in sync",
		Long: `Watch monitors a directory for document changes (.txt, .md, .pdf)
and reindexes on create or modify, removing chunks on delete. Document
IDs are derived from file names without their extension.

A running 'docdex serve' picks up the changes after its refresh
debounce window. Press Ctrl-C to stop.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.New(cmd.OutOrStdout())
			logger := slog.Default()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			eng, err := openEngine(cfg)
			if err != nil {
				return err
			}

			splitter, err := chunker.NewSplitter(cfg.Chunking.MaxWords, cfg.Chunking.OverlapWords)
			if err != nil {
				return err
			}
			replacer := index.NewReplacer(splitter, logger)

			w, err := watcher.New(args[0], watcher.DefaultDebounceWindow, logger)
			if err != nil {
				return err
			}
			defer w.Close()

			ctx := cmd.Context()
			w.Start(ctx)
			out.Successf("Watching %s (Ctrl-C to stop)", args[0])

			for {
				select {
				case <-ctx.Done():
					out.Newline()
					out.Plain("Stopped.")
					return nil
				case batch, ok := <-w.Events():
					if !ok {
						return nil
					}
					applyBatch(ctx, out, eng, replacer, batch)
				}
			}
		},
	}

	return cmd
}

// applyBatch replays one debounced batch of file events against the index
// in a single write session. Extraction happens before the session opens so
// the write lock is not held while pdftotext runs. Per-file failures are
// reported and skipped so one bad file cannot stall the watch loop.
func applyBatch(ctx context.Context, out *output.Writer, eng engine.Engine, replacer *index.Replacer, batch []watcher.FileEvent) {
	type change struct {
		id      string
		content string
		remove  bool
	}

	changes := make([]change, 0, len(batch))
	for _, ev := range batch {
		id := fileStem(ev.Path)
		switch ev.Op {
		case watcher.OpDelete:
			changes = append(changes, change{id: id, remove: true})
		case watcher.OpCreate, watcher.OpModify:
			text, err := extract.File(ctx, ev.Path)
			if err != nil {
				out.Errorf("extract %s: %v", ev.Path, err)
				continue
			}
			changes = append(changes, change{id: id, content: text})
		}
	}
	if len(changes) == 0 {
		return
	}

	w, err := eng.OpenWriter()
	if err != nil {
		out.Errorf("open index for writing: %v", err)
		return
	}
	defer w.Close()

	for _, c := range changes {
		if c.remove {
			if err := w.DeleteByTerm(engine.FieldSourceDocument, c.id); err != nil {
				out.Errorf("remove %s: %v", c.id, err)
				continue
			}
			out.Plainf("removed  %s", c.id)
			continue
		}
		n, err := replacer.Replace(w, c.id, c.id, c.content)
		if err != nil {
			out.Errorf("index %s: %v", c.id, err)
			continue
		}
		out.Plainf("indexed  %s (%d chunks)", c.id, n)
	}

	if err := w.Commit(); err != nil {
		out.Errorf("commit batch: %v", err)
	}
}
