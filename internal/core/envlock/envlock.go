// Package envlock implements the coarse-grained "<env>/.lock" advisory
// process lock of spec.md §5: concurrent sysand processes writing to
// the same environment serialise on it; readers never take it.
package envlock

import (
	"os"

	"golang.org/x/sys/unix"

	"github.com/sysand-dev/sysand-go/internal/core/errs"
)

const lockFileName = ".lock"

// Lock holds an exclusive advisory lock on one environment's ".lock"
// file. It is released by Unlock, or automatically by the OS on
// process exit (including an unclean one), since flock locks are
// owned by the file descriptor, not by any cleanup path.
type Lock struct {
	file *os.File
}

// Acquire blocks until the exclusive lock on "<envDir>/.lock" is
// available. The lock file is created if missing.
func Acquire(envDir string) (*Lock, error) {
	if err := os.MkdirAll(envDir, 0o755); err != nil {
		return nil, errs.New(errs.IO, envDir, err)
	}
	path := envDir + string(os.PathSeparator) + lockFileName
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, errs.New(errs.IO, path, err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		f.Close()
		return nil, errs.New(errs.IO, path, err)
	}
	return &Lock{file: f}, nil
}

// TryAcquire attempts the lock without blocking; ok is false if
// another process currently holds it.
func TryAcquire(envDir string) (lock *Lock, ok bool, err error) {
	if mkErr := os.MkdirAll(envDir, 0o755); mkErr != nil {
		return nil, false, errs.New(errs.IO, envDir, mkErr)
	}
	path := envDir + string(os.PathSeparator) + lockFileName
	f, openErr := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if openErr != nil {
		return nil, false, errs.New(errs.IO, path, openErr)
	}
	if flockErr := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); flockErr != nil {
		f.Close()
		if flockErr == unix.EWOULDBLOCK {
			return nil, false, nil
		}
		return nil, false, errs.New(errs.IO, path, flockErr)
	}
	return &Lock{file: f}, true, nil
}

// Unlock releases the lock and closes the underlying file handle.
func (l *Lock) Unlock() error {
	if l == nil || l.file == nil {
		return nil
	}
	if err := unix.Flock(int(l.file.Fd()), unix.LOCK_UN); err != nil {
		l.file.Close()
		return errs.New(errs.IO, l.file.Name(), err)
	}
	return l.file.Close()
}
