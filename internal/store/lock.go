package store

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/flock"
)

// fileLockRetryInterval is the interval between consecutive attempts to
// acquire the database file lock. 50ms balances responsiveness (low wait
// after the holder releases) against CPU overhead from busy-polling.
const fileLockRetryInterval = 50 * time.Millisecond

// fileLock wraps a flock held for the lifetime of an open store.
type fileLock struct {
	fl *flock.Flock
}

// acquireFileLock acquires an exclusive lock on the given file path.
// It respects context cancellation and returns early if the context is
// canceled. Acquisition is retried at fileLockRetryInterval.
func acquireFileLock(ctx context.Context, lockPath string) (*fileLock, error) {
	fl := flock.New(lockPath)

	locked, err := fl.TryLockContext(ctx, fileLockRetryInterval)
	if err != nil {
		return nil, fmt.Errorf("acquiring file lock %s: %w", lockPath, err)
	}
	if !locked {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("acquiring file lock %s: %w", lockPath, ctx.Err())
		}
		return nil, fmt.Errorf("acquiring file lock %s: lock not acquired", lockPath)
	}

	return &fileLock{fl: fl}, nil
}

// release unlocks and closes the file descriptor. The lock file is
// intentionally left on disk to avoid a race where removing it could
// invalidate a lock concurrently acquired by another process.
func (l *fileLock) release() {
	if l != nil && l.fl != nil {
		_ = l.fl.Close()
	}
}
