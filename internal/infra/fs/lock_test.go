package fs

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockAcquireRelease(t *testing.T) {
	lock := NewLock(filepath.Join(t.TempDir(), "journal.lock"))

	require.NoError(t, lock.Acquire())
	require.NoError(t, lock.Release())

	// Re-acquire after release must succeed
	require.NoError(t, lock.Acquire())
	require.NoError(t, lock.Release())
}

func TestLockReleaseWithoutAcquire(t *testing.T) {
	lock := NewLock(filepath.Join(t.TempDir(), "journal.lock"))
	assert.NoError(t, lock.Release())
}

func TestLockDoubleAcquireFails(t *testing.T) {
	lock := NewLock(filepath.Join(t.TempDir(), "journal.lock"))
	require.NoError(t, lock.Acquire())
	defer lock.Release()

	assert.Error(t, lock.Acquire())
}

func TestLockCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "var", "nested", "journal.lock")
	lock := NewLock(path)
	lock.Backoff = time.Millisecond

	require.NoError(t, lock.Acquire())
	require.NoError(t, lock.Release())
}
