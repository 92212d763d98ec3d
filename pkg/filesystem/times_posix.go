//go:build !windows

package filesystem

import (
	"time"

	"golang.org/x/sys/unix"

	"github.com/driftsync-io/driftsync/pkg/fserror"
)

// setSymlinkTime sets the modification time of a symlink itself.
func setSymlinkTime(path string, modTime time.Time) error {
	times := []unix.Timespec{
		unix.NsecToTimespec(modTime.UnixNano()),
		unix.NsecToTimespec(modTime.UnixNano()),
	}
	if err := unix.UtimesNanoAt(unix.AT_FDCWD, path, times, unix.AT_SYMLINK_NOFOLLOW); err != nil {
		return fserror.NewSystemCallFailed("utimensat", err)
	}
	return nil
}
