//go:build !windows

package filesystem

import (
	"time"
)

// setCreationTime sets the creation time of the entry at the specified path.
// POSIX systems provide no API for writing birth times, so the request is a
// best-effort no-op.
func setCreationTime(_ string, _ time.Time) error {
	return nil
}
