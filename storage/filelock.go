package storage

import (
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// FileLock provides advisory file locking for cross-process synchronization.
type FileLock struct {
	path string
	file *os.File
}

// NewFileLock creates a file lock. The lock is not acquired until Lock() is called.
// The lock file will be created at path + ".lock".
func NewFileLock(path string) *FileLock {
	return &FileLock{path: path + ".lock"}
}

// Lock acquires an exclusive lock, polling with exponential backoff until
// timeout. A timeout of zero tries exactly once.
// Returns ErrLockTimeout if the lock cannot be acquired within the timeout.
func (l *FileLock) Lock(timeout time.Duration) error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return &StorageError{Op: "lock", Entity: "file", ID: l.path, Err: err}
	}

	var b backoff.BackOff = &backoff.StopBackOff{}
	if timeout > 0 {
		eb := backoff.NewExponentialBackOff()
		eb.InitialInterval = 10 * time.Millisecond
		eb.MaxInterval = 250 * time.Millisecond
		eb.MaxElapsedTime = timeout
		b = eb
	}

	if err := backoff.Retry(func() error { return lockFile(f) }, b); err != nil {
		f.Close()
		return ErrLockTimeout
	}
	l.file = f
	return nil
}

// Unlock releases the lock. The lock file itself is left in place.
func (l *FileLock) Unlock() error {
	if l.file == nil {
		return nil
	}
	unlockFile(l.file)
	err := l.file.Close()
	l.file = nil
	return err
}
