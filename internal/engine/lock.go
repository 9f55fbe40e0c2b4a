package engine

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// writerLock serializes write sessions across processes with an advisory
// file lock next to the index directory. Readers are unaffected; this only
// enforces the single-writer discipline the replace protocol assumes.
type writerLock struct {
	path  string
	flock *flock.Flock
}

// newWriterLock creates a lock for the index at indexPath. The lock file
// lives beside the index directory so lock activity never perturbs the
// index's own change-detection timestamps.
func newWriterLock(indexPath string) *writerLock {
	lockPath := filepath.Join(filepath.Dir(indexPath), filepath.Base(indexPath)+".lock")
	return &writerLock{
		path:  lockPath,
		flock: flock.New(lockPath),
	}
}

// Lock acquires the exclusive lock, blocking until it is available.
func (l *writerLock) Lock() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}
	if err := l.flock.Lock(); err != nil {
		return fmt.Errorf("acquire writer lock %s: %w", l.path, err)
	}
	return nil
}

// Unlock releases the lock.
func (l *writerLock) Unlock() error {
	return l.flock.Unlock()
}
