//go:build !windows

package storage

import (
	"os"
	"syscall"
)

// lockFile takes an exclusive flock(2) without blocking.
func lockFile(f *os.File) error {
	return syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
}

func unlockFile(f *os.File) error {
	return syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
}
