package filesystem

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/driftsync-io/driftsync/pkg/fserror"
)

// Rename renames (moves) the entry at oldPath to newPath. The operation is
// atomic when both paths reside on the same volume. Failures are classified:
// a cross-volume rename surfaces DifferentVolumeError (callers fall back to
// copy and delete), an occupied destination surfaces TargetExistingError,
// and a missing destination parent surfaces TargetPathMissingError. A rename
// whose source and destination differ only in case must succeed on
// case-insensitive volumes, where the destination probe resolves to the
// source itself.
func Rename(oldPath, newPath string) error {
	// Refuse to clobber an existing destination. POSIX rename silently
	// replaces the target, so the probe has to happen up front. If the
	// destination probe resolves to the same file object as the source, this
	// is a case-only rename and may proceed.
	if newInfo, err := os.Lstat(newPath); err == nil {
		oldInfo, err := os.Lstat(oldPath)
		if err != nil {
			return fserror.NewErrorWithCause("Cannot read file attributes of "+fserror.QuotePath(oldPath)+".", err)
		}
		if !os.SameFile(oldInfo, newInfo) {
			return fserror.NewTargetExisting(newPath)
		}
	}

	// Ensure that the destination parent exists, classifying its absence.
	if !DirExists(filepath.Dir(newPath)) {
		return fserror.NewTargetPathMissing(newPath)
	}

	// Perform the rename, classifying failures.
	if err := os.Rename(oldPath, newPath); err != nil {
		return classifyRenameError(oldPath, newPath, err)
	}

	// Success.
	return nil
}

// RenameDisplacingClash renames the entry at oldPath to newPath, working
// around destination name clashes caused by a secondary name namespace: an
// entity whose canonical name differs from the destination name but which
// nevertheless occupies it through an alias. Such an entity is moved aside
// under a generated unique name, the rename is performed, and the aside
// entity is restored under its canonical name, where it receives a fresh
// alias that no longer clashes. A destination genuinely occupied under its
// own name is never displaced.
func RenameDisplacingClash(oldPath, newPath string) error {
	// Attempt a plain rename first.
	err := Rename(oldPath, newPath)
	if err == nil || !fserror.IsTargetExisting(err) {
		return err
	}

	// Identify the canonical name of the entity occupying the destination.
	// Only an alias clash (canonical name differing from the destination
	// name) is resolvable by displacement.
	parent := filepath.Dir(newPath)
	clashName, findErr := findClashingEntryName(parent, filepath.Base(newPath))
	if findErr != nil || clashName == filepath.Base(newPath) {
		return err
	}
	clashPath := filepath.Join(parent, clashName)

	// Move the clashing entity aside.
	asidePath, asideErr := UnusedTemporaryName(clashPath)
	if asideErr != nil {
		return err
	}
	if renameErr := os.Rename(clashPath, asidePath); renameErr != nil {
		return err
	}

	// Retry the rename, restoring the aside entity on failure.
	if retryErr := Rename(oldPath, newPath); retryErr != nil {
		os.Rename(asidePath, clashPath)
		return retryErr
	}

	// Restore the aside entity under its canonical name.
	if restoreErr := Rename(asidePath, clashPath); restoreErr != nil {
		return fserror.NewErrorWithCause(
			"Cannot restore "+fserror.QuotePath(clashPath)+" after resolving a name clash.", restoreErr,
		)
	}

	// Success.
	return nil
}

// findClashingEntryName locates the canonical name of the directory entry
// occupying the specified name, matching by file identity so aliased
// namespaces resolve to the entity's real name.
func findClashingEntryName(parent, name string) (string, error) {
	occupant, err := os.Lstat(filepath.Join(parent, name))
	if err != nil {
		return "", err
	}
	entries, err := os.ReadDir(parent)
	if err != nil {
		return "", err
	}
	for _, entry := range entries {
		if entry.Name() == name {
			return entry.Name(), nil
		}
		info, err := os.Lstat(filepath.Join(parent, entry.Name()))
		if err != nil {
			continue
		}
		if os.SameFile(info, occupant) || strings.EqualFold(entry.Name(), name) {
			return entry.Name(), nil
		}
	}
	return "", fserror.NewError("Cannot locate the entry occupying " + fserror.QuotePath(filepath.Join(parent, name)) + ".")
}
