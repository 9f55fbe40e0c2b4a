// Package watcher watches a documents directory with fsnotify and feeds
// debounced file events into re-indexing.
package watcher

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Operation represents a file system operation type.
type Operation int

const (
	// OpCreate indicates a new file was created.
	OpCreate Operation = iota
	// OpModify indicates an existing file was modified.
	OpModify
	// OpDelete indicates a file was deleted or renamed away.
	OpDelete
)

// String returns a human-readable representation of the operation.
func (op Operation) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpModify:
		return "MODIFY"
	case OpDelete:
		return "DELETE"
	default:
		return "UNKNOWN"
	}
}

// FileEvent represents a file system event for one document file.
type FileEvent struct {
	// Path is the absolute path to the file.
	Path string
	// Op is the type of file system operation.
	Op Operation
}

// DefaultDebounceWindow is the default event coalescing window.
const DefaultDebounceWindow = 500 * time.Millisecond

// documentExtensions are the file kinds the watcher reacts to.
var documentExtensions = map[string]struct{}{
	".txt":  {},
	".text": {},
	".md":   {},
	".pdf":  {},
}

// Watcher watches one directory (non-recursive) for document changes.
type Watcher struct {
	dir       string
	fsw       *fsnotify.Watcher
	debouncer *Debouncer
	logger    *slog.Logger
}

// New creates a watcher over dir. window <= 0 selects the default.
func New(dir string, window time.Duration, logger *slog.Logger) (*Watcher, error) {
	if window <= 0 {
		window = DefaultDebounceWindow
	}
	if logger == nil {
		logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	return &Watcher{
		dir:       dir,
		fsw:       fsw,
		debouncer: NewDebouncer(window),
		logger:    logger,
	}, nil
}

// Start pumps fsnotify events into the debouncer until ctx is canceled.
func (w *Watcher) Start(ctx context.Context) {
	go func() {
		defer w.debouncer.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.fsw.Events:
				if !ok {
					return
				}
				if fe, ok := w.translate(ev); ok {
					w.debouncer.Add(fe)
				}
			case err, ok := <-w.fsw.Errors:
				if !ok {
					return
				}
				w.logger.Warn("watch error", slog.String("error", err.Error()))
			}
		}
	}()
}

// translate maps an fsnotify event to a document file event, filtering out
// non-document files.
func (w *Watcher) translate(ev fsnotify.Event) (FileEvent, bool) {
	ext := strings.ToLower(filepath.Ext(ev.Name))
	if _, ok := documentExtensions[ext]; !ok {
		return FileEvent{}, false
	}

	switch {
	case ev.Has(fsnotify.Create):
		return FileEvent{Path: ev.Name, Op: OpCreate}, true
	case ev.Has(fsnotify.Write):
		return FileEvent{Path: ev.Name, Op: OpModify}, true
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		return FileEvent{Path: ev.Name, Op: OpDelete}, true
	default:
		return FileEvent{}, false
	}
}

// Events returns the channel of debounced event batches.
func (w *Watcher) Events() <-chan []FileEvent {
	return w.debouncer.Output()
}

// Close releases the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
