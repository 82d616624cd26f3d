//go:build windows

package jobstore

import (
	"os"
	"path/filepath"

	"golang.org/x/sys/windows"
)

// fileLock is an exclusive lock held on a sibling ".lock" file.
type fileLock struct {
	file *os.File
}

// lock blocks until it holds an exclusive LockFileEx lock on path+".lock",
// the Windows counterpart of the flock taken on unix.
func lock(path string) (*fileLock, error) {
	lockPath := path + ".lock"
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o750); err != nil {
		return nil, err
	}

	// #nosec G304 -- lock path is derived from the configured report dir
	file, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, err
	}

	// Lock the first byte; every registration locks the same range
	handle := windows.Handle(file.Fd())
	if err := windows.LockFileEx(handle, windows.LOCKFILE_EXCLUSIVE_LOCK, 0, 1, 0, &windows.Overlapped{}); err != nil {
		_ = file.Close()
		return nil, err
	}
	return &fileLock{file: file}, nil
}

// release unlocks the byte range and closes the lock file.
func (l *fileLock) release() error {
	if l.file == nil {
		return nil
	}
	unlockErr := windows.UnlockFileEx(windows.Handle(l.file.Fd()), 0, 1, 0, &windows.Overlapped{})
	closeErr := l.file.Close()
	if unlockErr != nil {
		return unlockErr
	}
	return closeErr
}
