package filesystem

import (
	"os"
	"path/filepath"

	"github.com/driftsync-io/driftsync/pkg/fserror"
)

// ReadSymlinkTarget reads the raw target of the symlink at the specified
// path, without resolution or validation.
func ReadSymlinkTarget(path string) (string, error) {
	target, err := os.Readlink(path)
	if err != nil {
		return "", fserror.NewErrorWithCause("Cannot resolve symbolic link "+fserror.QuotePath(path)+".", err)
	}
	return target, nil
}

// ResolveSymlinkTarget resolves the symlink at the specified path to the
// absolute path of its final target.
func ResolveSymlinkTarget(path string) (string, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return "", fserror.NewErrorWithCause("Cannot resolve symbolic link "+fserror.QuotePath(path)+".", err)
	}
	absolute, err := filepath.Abs(resolved)
	if err != nil {
		return "", fserror.NewErrorWithCause("Cannot resolve symbolic link "+fserror.QuotePath(path)+".", err)
	}
	return absolute, nil
}

// CopySymlink reproduces the symlink at sourceLink at targetLink: the raw
// link target is read and recreated, and the last write time of the link
// itself is carried over. When copyPermissions is set, ownership of the link
// is additionally copied where the platform supports it.
func CopySymlink(sourceLink, targetLink string, copyPermissions bool) error {
	// Read the raw link target.
	target, err := ReadSymlinkTarget(sourceLink)
	if err != nil {
		return err
	}

	// Capture the link's own write time before reproduction.
	linkTime, err := ModificationTime(sourceLink, false)
	if err != nil {
		return err
	}

	// Reproduce the link.
	if err := os.Symlink(target, targetLink); err != nil {
		if os.IsExist(err) {
			return fserror.NewTargetExisting(targetLink)
		}
		if os.IsNotExist(err) {
			return fserror.NewTargetPathMissing(targetLink)
		}
		return fserror.NewErrorWithCause("Cannot create symbolic link "+fserror.QuotePath(targetLink)+".", err)
	}

	// Copy link ownership if requested, best-effort.
	if copyPermissions {
		copySymlinkOwnership(sourceLink, targetLink)
	}

	// Carry over the link's write time, best-effort on platforms without
	// symlink time APIs.
	if err := SetFileTime(targetLink, linkTime, false); err != nil {
		return err
	}

	// Success.
	return nil
}
