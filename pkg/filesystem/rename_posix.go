//go:build !windows

package filesystem

import (
	"errors"

	"golang.org/x/sys/unix"

	"github.com/driftsync-io/driftsync/pkg/fserror"
)

// classifyRenameError translates a raw rename failure into the typed error
// taxonomy.
func classifyRenameError(oldPath, newPath string, err error) error {
	var errno unix.Errno
	if errors.As(err, &errno) {
		switch errno {
		case unix.EXDEV:
			return fserror.NewDifferentVolume(oldPath, newPath)
		case unix.EEXIST, unix.ENOTEMPTY:
			return fserror.NewTargetExisting(newPath)
		case unix.ENOENT:
			return fserror.NewTargetPathMissing(newPath)
		}
	}
	return fserror.NewErrorWithCause(
		"Cannot move "+fserror.QuotePath(oldPath)+" to "+fserror.QuotePath(newPath)+".", err,
	)
}
