package filesystem

import (
	"os"
	"path/filepath"

	"github.com/driftsync-io/driftsync/pkg/fserror"
)

// RemoveFile removes the file or symlink at the specified path. It returns
// false with a nil error if nothing existed at the path. If removal fails
// because of a read-only attribute, the attribute is cleared and the removal
// retried once. If removal fails because another process holds a conflicting
// lock, a FileLockedError is surfaced, enriched with the names of the
// locking processes when they can be enumerated.
func RemoveFile(path string) (bool, error) {
	// Attempt the removal.
	err := os.Remove(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}

	// On a permission failure, clear any read-only attribute and retry once.
	if os.IsPermission(err) {
		if chmodErr := clearReadOnlyAttribute(path); chmodErr == nil {
			if err = os.Remove(path); err == nil {
				return true, nil
			}
			if os.IsNotExist(err) {
				return false, nil
			}
		}
	}

	// Classify lock conflicts.
	if isLockViolation(err) {
		return false, fserror.NewFileLocked(path, lockingProcessNames(path))
	}

	// Surface the failure.
	return false, fserror.NewErrorWithCause("Cannot delete file "+fserror.QuotePath(path)+".", err)
}

// RemoveDirectory removes the directory at the specified path together with
// its contents using a post-order traversal. Symlinked directories inside
// the tree are unlinked directly and never descended into. The optional
// callbacks fire with the full path of each file or directory immediately
// before its removal; either may veto the removal by returning an error,
// which aborts the traversal.
func RemoveDirectory(path string, onBeforeFileDeletion, onBeforeDirDeletion func(path string) error) error {
	// If the path itself is a symlink to a directory, unlink it rather than
	// descending through it.
	if info, err := os.Lstat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fserror.NewErrorWithCause("Cannot read file attributes of "+fserror.QuotePath(path)+".", err)
	} else if info.Mode()&os.ModeSymlink != 0 {
		if onBeforeFileDeletion != nil {
			if err := onBeforeFileDeletion(path); err != nil {
				return err
			}
		}
		if _, err := RemoveFile(path); err != nil {
			return err
		}
		return nil
	}

	// Enumerate and remove children.
	entries, err := os.ReadDir(path)
	if err != nil {
		return fserror.NewErrorWithCause("Cannot enumerate directory "+fserror.QuotePath(path)+".", err)
	}
	for _, entry := range entries {
		childPath := filepath.Join(path, entry.Name())
		if entry.IsDir() && entry.Type()&os.ModeSymlink == 0 {
			if err := RemoveDirectory(childPath, onBeforeFileDeletion, onBeforeDirDeletion); err != nil {
				return err
			}
		} else {
			if onBeforeFileDeletion != nil {
				if err := onBeforeFileDeletion(childPath); err != nil {
					return err
				}
			}
			if _, err := RemoveFile(childPath); err != nil {
				return err
			}
		}
	}

	// Announce and remove the emptied directory.
	if onBeforeDirDeletion != nil {
		if err := onBeforeDirDeletion(path); err != nil {
			return err
		}
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		// Clear a read-only attribute and retry once.
		if clearErr := clearReadOnlyAttribute(path); clearErr == nil {
			if err = os.Remove(path); err == nil || os.IsNotExist(err) {
				return nil
			}
		}
		return fserror.NewErrorWithCause("Cannot delete directory "+fserror.QuotePath(path)+".", err)
	}

	// Success.
	return nil
}

// clearReadOnlyAttribute makes the entry at the specified path writable by
// its owner.
func clearReadOnlyAttribute(path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		return err
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return nil
	}
	return os.Chmod(path, info.Mode().Perm()|0200)
}
