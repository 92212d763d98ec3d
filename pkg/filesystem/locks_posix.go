//go:build !windows

package filesystem

import (
	"errors"

	"golang.org/x/sys/unix"
)

// isLockViolation indicates whether or not an error represents a conflicting
// lock held by another process. POSIX systems only surface this for busy
// executable text and mount points.
func isLockViolation(err error) bool {
	var errno unix.Errno
	if errors.As(err, &errno) {
		return errno == unix.ETXTBSY || errno == unix.EBUSY
	}
	return false
}

// lockingProcessNames enumerates the names of processes holding locks on the
// specified path. POSIX systems provide no inexpensive enumeration
// mechanism, so the result is always empty.
func lockingProcessNames(_ string) []string {
	return nil
}
