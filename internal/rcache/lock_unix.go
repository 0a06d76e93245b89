//go:build unix

package rcache

import (
	"os"

	"golang.org/x/sys/unix"
)

// tryLock attempts a non-blocking advisory flock on f (spec §4.3/§5: "lock
// timeout is immediate (non-blocking try-lock)"). ok is false, err is nil
// when the lock is currently held elsewhere — that is not a failure, it is
// the caller's cue to degrade to non-cached mode.
func tryLock(f *os.File, exclusive bool) (ok bool, err error) {
	how := unix.LOCK_SH | unix.LOCK_NB
	if exclusive {
		how = unix.LOCK_EX | unix.LOCK_NB
	}
	if err := unix.Flock(int(f.Fd()), how); err != nil {
		if err == unix.EWOULDBLOCK {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func unlock(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_UN)
}
