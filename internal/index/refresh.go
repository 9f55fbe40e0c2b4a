package index

import (
	"log/slog"
	"sync"
	"time"

	"github.com/docdex/docdex/internal/engine"
)

// DefaultRefreshDebounce is the quiet period between reader reopens.
const DefaultRefreshDebounce = 30 * time.Second

// RefreshCoordinator owns the active index reader and coalesces
// "index may have changed" signals into at most one scheduled reader swap
// per quiet period. This is a debounce, not a rate limiter: a burst of
// signals after a long idle period schedules exactly one refresh, which
// fires a full debounce window later.
//
// All state (active reader, last refresh time, pending timer) is guarded by
// one mutex; the timer callback runs on its own goroutine and contends on
// the same mutex, so facades never observe a torn reader reference.
type RefreshCoordinator struct {
	mu          sync.Mutex
	eng         engine.Engine
	reader      engine.Reader
	debounce    time.Duration
	lastRefresh time.Time
	timer       *time.Timer
	closed      bool
	logger      *slog.Logger
}

// NewRefreshCoordinator opens the initial reader and returns a coordinator
// around it. debounce <= 0 selects the default window.
func NewRefreshCoordinator(eng engine.Engine, debounce time.Duration, logger *slog.Logger) (*RefreshCoordinator, error) {
	if debounce <= 0 {
		debounce = DefaultRefreshDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}

	reader, err := eng.OpenReader()
	if err != nil {
		return nil, err
	}

	return &RefreshCoordinator{
		eng:         eng,
		reader:      reader,
		debounce:    debounce,
		lastRefresh: time.Now(),
		logger:      logger,
	}, nil
}

// Reader returns the currently active reader. The handle stays valid until
// the next refresh swap; callers must not close it.
func (c *RefreshCoordinator) Reader() engine.Reader {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reader
}

// SignalChange notes that the index may have changed. When the coordinator
// is idle and a full debounce window has passed since the last refresh, one
// refresh is scheduled to run a debounce window from now; otherwise the
// signal is dropped. Never blocks.
func (c *RefreshCoordinator) SignalChange() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.timer != nil {
		return
	}
	if time.Since(c.lastRefresh) < c.debounce {
		return
	}
	c.timer = time.AfterFunc(c.debounce, c.refresh)
}

// refresh runs on the timer goroutine. It swaps in an updated reader when
// one is available and returns the coordinator to idle regardless of the
// outcome; an I/O failure keeps the previous reader active so a later
// signal can retry.
func (c *RefreshCoordinator) refresh() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.timer = nil
	c.lastRefresh = time.Now()
	if c.closed {
		return
	}

	updated, err := c.eng.ReopenIfChanged(c.reader)
	if err != nil {
		c.logger.Warn("reader refresh failed, keeping previous reader",
			slog.String("error", err.Error()))
		return
	}
	if updated == nil {
		c.logger.Debug("reader refresh: index unchanged")
		return
	}

	old := c.reader
	c.reader = updated
	if err := old.Close(); err != nil {
		c.logger.Warn("close superseded reader", slog.String("error", err.Error()))
	}
	c.logger.Info("reader refreshed")
}

// Close stops any pending refresh and releases the active reader.
func (c *RefreshCoordinator) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.reader != nil {
		return c.reader.Close()
	}
	return nil
}
