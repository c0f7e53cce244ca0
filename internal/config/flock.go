package config

import (
	"fmt"
	"os"
	"syscall"

	"parkwarden/internal/errdefs"
)

// flock takes an exclusive advisory lock on a sibling ".lock" file and
// returns the unlock function. The lock file itself is never removed so
// concurrent lockers always race on the same inode.
func (s *Store) flock() (func(), error) {
	f, err := os.OpenFile(s.path+".lock", os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening lock file: %v: %w", err, errdefs.ErrStoreIO)
	}
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("locking %s: %v: %w", s.path, err, errdefs.ErrStoreIO)
	}
	return func() {
		_ = syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
		_ = f.Close()
	}, nil
}
