// Package index implements the chunk lifecycle around the index engine:
// document replacement, the debounced reader refresh coordinator, and the
// search and listing facades.
package index

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/docdex/docdex/internal/chunker"
	"github.com/docdex/docdex/internal/engine"
)

// Entry is one document in a bulk replace request.
type Entry struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// BulkResult summarizes a bulk replace.
type BulkResult struct {
	DocumentsReplaced int      `json:"documents_replaced"`
	ChunksWritten     int      `json:"chunks_written"`
	Warnings          []string `json:"warnings,omitempty"`
}

// Replacer replaces a source document's chunk set with a freshly computed
// one inside a single write session, so readers observe the swap atomically
// at commit.
type Replacer struct {
	splitter *chunker.Splitter
	logger   *slog.Logger
}

// NewReplacer creates a Replacer using the given splitter.
func NewReplacer(splitter *chunker.Splitter, logger *slog.Logger) *Replacer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Replacer{splitter: splitter, logger: logger}
}

// Replace buffers, in the given write session, the deletion of every chunk
// previously stored for sourceID followed by the insertion of the new chunk
// set. Returns the number of chunks buffered. Nothing is visible to readers
// until the session commits.
//
// Blank content is a safe no-op: no deletion, no insertion, zero count. A
// replace with empty content must never destroy the existing chunk set.
func (r *Replacer) Replace(w engine.Writer, sourceID, title, content string) (int, error) {
	if strings.TrimSpace(content) == "" {
		r.logger.Warn("replace skipped, empty content",
			slog.String("source_document", sourceID))
		return 0, nil
	}

	parts := r.splitter.Split(content)
	chunks := chunker.Assign(sourceID, title, parts)

	if err := w.DeleteByTerm(engine.FieldSourceDocument, sourceID); err != nil {
		return 0, err
	}
	for _, c := range chunks {
		if err := w.Add(c); err != nil {
			return 0, err
		}
	}

	r.logger.Info("document replaced",
		slog.String("source_document", sourceID),
		slog.Int("chunks", len(chunks)))
	return len(chunks), nil
}

// ReplaceAll replaces many documents in one write session with a single
// commit at the end. Entries missing an id or title are skipped with a
// warning and the batch continues. A failure partway through commits
// everything processed so far before the error is returned; the batch is
// best-effort, not transactional across documents.
//
// When an id appears more than once in the batch, only its last entry is
// indexed. Delete-by-term resolves against committed chunks, so an earlier
// occurrence processed in the same session would leave chunks the later
// occurrence's delete cannot see, breaking the contiguous 1..N chunk set.
func (r *Replacer) ReplaceAll(eng engine.Engine, entries []Entry) (*BulkResult, error) {
	w, err := eng.OpenWriter()
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := w.Close(); cerr != nil {
			r.logger.Warn("close write session", slog.String("error", cerr.Error()))
		}
	}()

	lastForID := make(map[string]int, len(entries))
	for i, e := range entries {
		if e.ID != "" {
			lastForID[e.ID] = i
		}
	}

	res := &BulkResult{}
	for i, e := range entries {
		if e.ID == "" || e.Title == "" {
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("entry %d: missing id or title, skipped", i+1))
			continue
		}
		if lastForID[e.ID] != i {
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("entry %d (%s): duplicate id, superseded by a later entry", i+1, e.ID))
			continue
		}

		n, err := r.Replace(w, e.ID, e.Title, e.Content)
		if err != nil {
			if cerr := w.Commit(); cerr != nil {
				r.logger.Error("commit after partial bulk failure",
					slog.String("error", cerr.Error()))
			}
			return res, fmt.Errorf("entry %d (%s): %w", i+1, e.ID, err)
		}
		if n == 0 {
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("entry %d (%s): empty content, nothing indexed", i+1, e.ID))
			continue
		}

		res.DocumentsReplaced++
		res.ChunksWritten += n
	}

	if err := w.Commit(); err != nil {
		return res, err
	}
	return res, nil
}
