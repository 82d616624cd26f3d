//go:build unix

package jobstore

import (
	"os"
	"path/filepath"
	"syscall"
)

// fileLock is an exclusive lock held on a sibling ".lock" file.
type fileLock struct {
	file *os.File
}

// lock blocks until it holds an exclusive flock on path+".lock". Both the
// registry and the descriptor directory are guarded this way so that two
// builds registering jobs at once never interleave their writes.
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

	// Blocks until the other registration releases the lock
	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX); err != nil {
		_ = file.Close()
		return nil, err
	}
	return &fileLock{file: file}, nil
}

// release unlocks and closes the lock file. The file itself stays behind
// for the next registration.
func (l *fileLock) release() error {
	if l.file == nil {
		return nil
	}
	// Close even when unlocking fails; closing drops the flock anyway
	unlockErr := syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)
	closeErr := l.file.Close()
	if unlockErr != nil {
		return unlockErr
	}
	return closeErr
}
