package filesystem

import (
	"os"

	"github.com/driftsync-io/driftsync/pkg/fserror"
)

const (
	// newDirectoryBaseMode is the base permission set for directories created
	// without a template, before umask application.
	newDirectoryBaseMode os.FileMode = 0777
)

// MakeDirectory creates a directory at the specified path, creating missing
// parent directories as needed. If failIfExists is set and a directory
// already exists at the path, a TargetExistingError is surfaced.
func MakeDirectory(path string, failIfExists bool) error {
	// Enforce exclusivity when requested.
	if failIfExists {
		if err := os.Mkdir(path, newDirectoryBaseMode); err == nil {
			return nil
		} else if os.IsExist(err) {
			return fserror.NewTargetExisting(path)
		}
		// The parent chain may be missing; fall through to recursive
		// creation after re-probing for the exclusivity condition.
		if AnythingExists(path) {
			return fserror.NewTargetExisting(path)
		}
	}

	// Create the directory chain.
	if err := os.MkdirAll(path, newDirectoryBaseMode); err != nil {
		return fserror.NewErrorWithCause("Cannot create directory "+fserror.QuotePath(path)+".", err)
	}

	// Success.
	return nil
}

// MakeDirectoryPlain creates a single directory at the specified path,
// without creating parents, copying mode bits from the specified template
// directory: the template's permission bits are applied subject to the
// process umask, and the owner's executable bit is always granted so the
// directory remains enumerable. When copyPermissions is set, ownership and
// access control information is additionally copied, best-effort.
func MakeDirectoryPlain(path, templateDir string, copyPermissions bool) error {
	// Query the template.
	templateInfo, err := os.Stat(templateDir)
	if err != nil {
		return fserror.NewErrorWithCause("Cannot read file attributes of "+fserror.QuotePath(templateDir)+".", err)
	}

	// Create the directory. os.Mkdir applies the umask to the requested
	// mode, matching template semantics.
	mode := templateInfo.Mode().Perm() | 0100
	if err := os.Mkdir(path, mode); err != nil {
		if os.IsExist(err) {
			return fserror.NewTargetExisting(path)
		}
		if os.IsNotExist(err) {
			return fserror.NewTargetPathMissing(path)
		}
		return fserror.NewErrorWithCause("Cannot create directory "+fserror.QuotePath(path)+".", err)
	}

	// Copy ownership and access control information if requested. This is
	// best-effort and the directory remains usable without it.
	if copyPermissions {
		CopyPermissions(templateDir, path)
	}

	// Success.
	return nil
}
