//go:build !windows
// +build !windows

package fs

import (
	"os"
	"syscall"
)

// flockTryExclusive attempts to acquire an exclusive lock without blocking.
// Returns errWouldBlock when another process holds the lock.
func flockTryExclusive(f *os.File) error {
	err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
	if err == syscall.EWOULDBLOCK || err == syscall.EAGAIN {
		return errWouldBlock
	}
	return err
}

// flockUnlock releases the lock on the file
func flockUnlock(f *os.File) error {
	return syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
}
