//go:build windows
// +build windows

package fs

import (
	"os"
)

// flockTryExclusive attempts to acquire an exclusive lock without blocking.
// Note: Windows doesn't have direct flock support, so this is a no-op for now
// TODO: Implement Windows file locking using LockFileEx
func flockTryExclusive(f *os.File) error {
	return nil
}

// flockUnlock releases the lock on the file
func flockUnlock(f *os.File) error {
	return nil
}
