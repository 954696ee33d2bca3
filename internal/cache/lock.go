package cache

import (
	"os"
	"syscall"
)

// FileLock serializes snapshot writers via flock. Two audits sharing a
// cache directory otherwise race on the tmp-and-rename in Save.
type FileLock struct {
	path string
	file *os.File
}

// NewFileLock creates a lock for the given path, normally LockPath(dir).
// The lock file is created on first acquisition.
func NewFileLock(path string) *FileLock {
	return &FileLock{path: path}
}

// Lock acquires an exclusive lock, blocking until the other writer is done.
func (l *FileLock) Lock() error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return err
	}
	l.file = f

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		f.Close()
		l.file = nil
		return err
	}

	return nil
}

// Unlock releases the lock and closes the file. Safe to call without a
// held lock; Save defers it unconditionally.
func (l *FileLock) Unlock() error {
	if l.file == nil {
		return nil
	}

	if err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN); err != nil {
		l.file.Close()
		l.file = nil
		return err
	}

	err := l.file.Close()
	l.file = nil
	return err
}
