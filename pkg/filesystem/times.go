package filesystem

import (
	"os"
	"time"

	"github.com/driftsync-io/driftsync/pkg/fserror"
)

// SetFileTime sets the modification time of the entry at the specified path
// with one second precision. If followSymlink is false and the entry is a
// symlink, the time of the link itself is set where the platform supports
// it; platforms without native symlink time APIs treat the request as a
// best-effort no-op.
func SetFileTime(path string, modTime time.Time, followSymlink bool) error {
	// Truncate to the supported precision.
	modTime = modTime.Truncate(time.Second)

	// Handle link-time requests through the platform hook.
	if !followSymlink {
		if info, err := os.Lstat(path); err != nil {
			return fserror.NewErrorWithCause("Cannot read file attributes of "+fserror.QuotePath(path)+".", err)
		} else if info.Mode()&os.ModeSymlink != 0 {
			return setSymlinkTime(path, modTime)
		}
	}

	// Set the time, following symlinks.
	if err := os.Chtimes(path, modTime, modTime); err != nil {
		return fserror.NewErrorWithCause("Cannot write modification time of "+fserror.QuotePath(path)+".", err)
	}

	// Success.
	return nil
}
