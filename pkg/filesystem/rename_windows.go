//go:build windows

package filesystem

import (
	"errors"

	"golang.org/x/sys/windows"

	"github.com/driftsync-io/driftsync/pkg/fserror"
)

// classifyRenameError translates a raw rename failure into the typed error
// taxonomy.
func classifyRenameError(oldPath, newPath string, err error) error {
	var errno windows.Errno
	if errors.As(err, &errno) {
		switch errno {
		case windows.ERROR_NOT_SAME_DEVICE:
			return fserror.NewDifferentVolume(oldPath, newPath)
		case windows.ERROR_ALREADY_EXISTS, windows.ERROR_FILE_EXISTS:
			return fserror.NewTargetExisting(newPath)
		case windows.ERROR_PATH_NOT_FOUND:
			return fserror.NewTargetPathMissing(newPath)
		case windows.ERROR_SHARING_VIOLATION, windows.ERROR_LOCK_VIOLATION:
			return fserror.NewFileLocked(oldPath, lockingProcessNames(oldPath))
		}
	}
	return fserror.NewErrorWithCause(
		"Cannot move "+fserror.QuotePath(oldPath)+" to "+fserror.QuotePath(newPath)+".", err,
	)
}
