package fs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ErrBusy is returned when the lock could not be acquired within the
// configured number of attempts.
var ErrBusy = errors.New("lock is held by another process")

var errWouldBlock = errors.New("lock would block")

// Lock serializes read-modify-write cycles on a shared file between
// processes. It is an advisory flock on a sidecar lock file; acquisition
// retries with linear backoff and surfaces ErrBusy when exhausted.
type Lock struct {
	Path     string
	Attempts int
	Backoff  time.Duration

	file *os.File
}

// NewLock creates a lock on the given sidecar path with default retry
// behavior (10 attempts, 100ms apart, ~1s worst case).
func NewLock(path string) *Lock {
	return &Lock{
		Path:     path,
		Attempts: 10,
		Backoff:  100 * time.Millisecond,
	}
}

// Acquire takes the exclusive lock, retrying up to Attempts times.
func (l *Lock) Acquire() error {
	if l.file != nil {
		return fmt.Errorf("lock %s already acquired", filepath.Base(l.Path))
	}

	if err := os.MkdirAll(filepath.Dir(l.Path), 0o755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	f, err := os.OpenFile(l.Path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open lock file: %w", err)
	}

	attempts := l.Attempts
	if attempts < 1 {
		attempts = 1
	}

	for i := 0; i < attempts; i++ {
		err = flockTryExclusive(f)
		if err == nil {
			l.file = f
			return nil
		}
		if !errors.Is(err, errWouldBlock) {
			f.Close()
			return fmt.Errorf("failed to lock %s: %w", filepath.Base(l.Path), err)
		}
		if i < attempts-1 {
			time.Sleep(l.Backoff)
		}
	}

	f.Close()
	return ErrBusy
}

// Release drops the lock. Safe to call when not held.
func (l *Lock) Release() error {
	if l.file == nil {
		return nil
	}
	f := l.file
	l.file = nil
	if err := flockUnlock(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to unlock %s: %w", filepath.Base(l.Path), err)
	}
	return f.Close()
}
