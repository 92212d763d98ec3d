// Package versioning moves deleted and overwritten items into an archive
// directory, preserving their relative paths and optionally tagging each
// revision with a timestamp.
package versioning

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/driftsync-io/driftsync/pkg/filesystem"
	"github.com/driftsync-io/driftsync/pkg/fserror"
)

// Style selects the archive naming policy.
type Style int

const (
	// StyleReplace archives an item at its bare relative path, replacing any
	// previous revision.
	StyleReplace Style = iota
	// StyleAddTimestamp archives an item at its relative path with a space,
	// a timestamp tag, and a copy of the original extension appended to the
	// full name, keeping all revisions.
	StyleAddTimestamp
)

const (
	// timestampFormat renders the revision timestamp. The rendered value is
	// always exactly timestampLength characters.
	timestampFormat = "2006-01-02 150405"
	// timestampLength is the required rendered timestamp length. A mismatch
	// indicates a formatting problem, such as a five-digit year.
	timestampLength = 17
)

// FormatTimestamp renders the revision timestamp for the specified time. A
// rendered length other than 17 characters is a hard error.
func FormatTimestamp(at time.Time) (string, error) {
	stamp := at.Format(timestampFormat)
	if len(stamp) != timestampLength {
		return "", errors.Errorf("unexpected timestamp length for %q", stamp)
	}
	return stamp, nil
}

// getExtension returns the extension of the final path component, including
// the leading dot, or an empty string if the component has none.
func getExtension(relativePath string) string {
	return filepath.Ext(filepath.Base(relativePath))
}

// IsMatchingVersion checks whether a versioned short name is a timestamped
// revision of the specified original short name: the original name, a
// space, a "YYYY-MM-DD HHMMSS" timestamp, and the original extension, with
// name matching performed case-insensitively on case-insensitive volumes.
func IsMatchingVersion(shortName, shortNameVersion string) bool {
	rest := shortNameVersion

	// The versioned name starts with the original name.
	if len(rest) < len(shortName) || !namesEqual(rest[:len(shortName)], shortName) {
		return false
	}
	rest = rest[len(shortName):]

	// Validate the timestamp tag digit by digit.
	expectDigits := func(count int) bool {
		if len(rest) < count {
			return false
		}
		for i := 0; i < count; i++ {
			if rest[i] < '0' || rest[i] > '9' {
				return false
			}
		}
		rest = rest[count:]
		return true
	}
	expectChar := func(c byte) bool {
		if len(rest) == 0 || rest[0] != c {
			return false
		}
		rest = rest[1:]
		return true
	}
	if !(expectChar(' ') &&
		expectDigits(4) && expectChar('-') &&
		expectDigits(2) && expectChar('-') &&
		expectDigits(2) && expectChar(' ') &&
		expectDigits(6)) {
		return false
	}

	// The versioned name ends with the original extension.
	extension := getExtension(shortName)
	if len(rest) < len(extension) || !namesEqual(rest[:len(extension)], extension) {
		return false
	}
	rest = rest[len(extension):]

	// Nothing may follow.
	return len(rest) == 0
}

// namesEqual compares two names the way the filesystem does.
func namesEqual(a, b string) bool {
	if filesystem.CaseInsensitiveNames {
		return strings.EqualFold(a, b)
	}
	return a == b
}

// ProgressFunc receives byte deltas during cross-volume fallback copies. It
// may return an error to cancel.
type ProgressFunc = filesystem.CopyProgress

// Versioner moves items into an archive directory. Intermediate archive
// directories are created on demand, never up front, so failed or empty
// revisions leave no empty directory chains behind.
type Versioner struct {
	// versioningDir is the archive root.
	versioningDir string
	// style is the naming policy.
	style Style
	// timestamp is the rendered timestamp shared by all revisions of one
	// synchronization run.
	timestamp string
}

// New creates a versioner rooted at the specified archive directory using
// the specified naming policy. All revisions created through the returned
// versioner share a single timestamp rendered from the specified time.
func New(versioningDir string, style Style, at time.Time) (*Versioner, error) {
	// Validate the archive root.
	if versioningDir == "" {
		return nil, errors.New("versioning directory not configured")
	}

	// Render the shared timestamp.
	timestamp, err := FormatTimestamp(at)
	if err != nil {
		return nil, err
	}

	// Success.
	return &Versioner{
		versioningDir: versioningDir,
		style:         style,
		timestamp:     timestamp,
	}, nil
}

// targetPath computes the archive path for the specified relative path.
func (v *Versioner) targetPath(relativePath string) string {
	switch v.style {
	case StyleAddTimestamp:
		return filepath.Join(v.versioningDir, relativePath) + " " + v.timestamp + getExtension(relativePath)
	default:
		return filepath.Join(v.versioningDir, relativePath)
	}
}

// moveToVersioning moves an item to its archive path through the specified
// move function, creating missing intermediate archive directories on
// demand and retrying once. It returns false if the source did not exist.
func (v *Versioner) moveToVersioning(itemPath, relativePath string, move func(source, target string) error) (bool, error) {
	target := v.targetPath(relativePath)

	// Try the move directly; the archive directory chain usually exists.
	err := move(itemPath, target)
	if err == nil {
		return true, nil
	}

	// A vanished source is not an error, and not a processed item either.
	if !filesystem.AnythingExists(itemPath) {
		return false, nil
	}

	// Create missing intermediate directories and retry once. If the parent
	// already existed, the failure had another cause and propagates.
	targetDir := filepath.Dir(target)
	if !filesystem.DirExists(targetDir) {
		if mkErr := filesystem.MakeDirectory(targetDir, false); mkErr != nil {
			return false, mkErr
		}
		if err = move(itemPath, target); err == nil {
			return true, nil
		}
	}
	return false, err
}

// moveItem moves a file or symlink to the specified target: rename first, a
// copy-and-delete fallback on a cross-volume move, and target removal plus
// retry when the target name is occupied, even by an entity of a different
// type.
func moveItem(source, target string, copyDelete func(source, target string) error) error {
	removeTarget := func() error {
		if filesystem.DirExists(target) && !filesystem.SymlinkExists(target) {
			return filesystem.RemoveDirectory(target, nil, nil)
		}
		_, err := filesystem.RemoveFile(target)
		return err
	}

	// Try to move directly without copying.
	err := filesystem.Rename(source, target)
	if err == nil {
		return nil
	}
	if fserror.IsDifferentVolume(err) {
		if err := removeTarget(); err != nil {
			return err
		}
		return copyDelete(source, target)
	}
	if fserror.IsTargetExisting(err) {
		if err := removeTarget(); err != nil {
			return err
		}
		if err = filesystem.Rename(source, target); err == nil {
			return nil
		}
		if fserror.IsDifferentVolume(err) {
			return copyDelete(source, target)
		}
	}
	return err
}

// moveFile moves a file or file symlink, falling back to a transactional
// copy plus delete across volumes.
func moveFile(source, target string, onProgress ProgressFunc) error {
	copyDelete := func(source, target string) error {
		// Create the target. A newly copied target survives a failing
		// source removal.
		if filesystem.SymlinkExists(source) {
			if err := filesystem.CopySymlink(source, target, false); err != nil {
				return err
			}
		} else {
			if _, err := filesystem.CopyFile(source, target, false, true, nil, onProgress); err != nil {
				return err
			}
		}

		// Delete the source.
		_, err := filesystem.RemoveFile(source)
		return err
	}
	return moveItem(source, target, copyDelete)
}

// moveDirSymlink moves a directory symlink as a link.
func moveDirSymlink(source, target string) error {
	copyDelete := func(source, target string) error {
		if err := filesystem.CopySymlink(source, target, false); err != nil {
			return err
		}
		return filesystem.RemoveDirectory(source, nil, nil)
	}
	return moveItem(source, target, copyDelete)
}

// RevisionFile moves the file at the specified path into the archive under
// its relative path. It returns false if the source did not exist, which is
// not an error.
func (v *Versioner) RevisionFile(filePath, relativePath string, onProgress ProgressFunc) (bool, error) {
	return v.revisionFile(filePath, relativePath, nil, onProgress)
}

// revisionFile implements RevisionFile with an optional pre-move callback
// used by directory recursion, where the source is known to exist.
func (v *Versioner) revisionFile(filePath, relativePath string, onBeforeFileMove func(from, to string) error, onProgress ProgressFunc) (bool, error) {
	return v.moveToVersioning(filePath, relativePath, func(source, target string) error {
		if onBeforeFileMove != nil {
			if err := onBeforeFileMove(source, target); err != nil {
				return err
			}
		}
		return moveFile(source, target, onProgress)
	})
}

// RevisionDir moves the directory at the specified path into the archive
// under its relative path. A directory symlink is moved as a link. A
// regular directory is enumerated one level deep, files are revisioned
// first and subdirectories recursed into afterwards, and the emptied source
// directory is removed last. A missing source is a no-op; manual deletion
// of partially archived trees relies on that.
func (v *Versioner) RevisionDir(dirPath, relativePath string, onBeforeFileMove, onBeforeDirMove func(from, to string) error, onProgress ProgressFunc) error {
	if !filesystem.AnythingExists(dirPath) {
		return nil
	}
	return v.revisionDir(dirPath, relativePath, onBeforeFileMove, onBeforeDirMove, onProgress)
}

// revisionDir implements RevisionDir for a source known to exist.
func (v *Versioner) revisionDir(dirPath, relativePath string, onBeforeFileMove, onBeforeDirMove func(from, to string) error, onProgress ProgressFunc) error {
	// A directory symlink is archived as a link, never descended into.
	if filesystem.SymlinkExists(dirPath) {
		_, err := v.moveToVersioning(dirPath, relativePath, func(source, target string) error {
			if onBeforeDirMove != nil {
				if err := onBeforeDirMove(source, target); err != nil {
					return err
				}
			}
			return moveDirSymlink(source, target)
		})
		return err
	}

	// Enumerate one level. The archive directory itself is created only
	// when the first child move needs it.
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return fserror.NewErrorWithCause("Cannot enumerate directory "+fserror.QuotePath(dirPath)+".", err)
	}
	var files, dirs []string
	for _, entry := range entries {
		if entry.IsDir() && entry.Type()&os.ModeSymlink == 0 {
			dirs = append(dirs, entry.Name())
		} else if entry.Type()&os.ModeSymlink != 0 && filesystem.DirExists(filepath.Join(dirPath, entry.Name())) {
			dirs = append(dirs, entry.Name())
		} else {
			files = append(files, entry.Name())
		}
	}

	// Move files, then recurse into subdirectories.
	for _, name := range files {
		if _, err := v.revisionFile(filepath.Join(dirPath, name), filepath.Join(relativePath, name), onBeforeFileMove, onProgress); err != nil {
			return err
		}
	}
	for _, name := range dirs {
		if err := v.revisionDir(filepath.Join(dirPath, name), filepath.Join(relativePath, name), onBeforeFileMove, onBeforeDirMove, onProgress); err != nil {
			return err
		}
	}

	// Delete the emptied source directory.
	if onBeforeDirMove != nil {
		if err := onBeforeDirMove(dirPath, filepath.Join(v.versioningDir, relativePath)); err != nil {
			return err
		}
	}
	return filesystem.RemoveDirectory(dirPath, nil, nil)
}
