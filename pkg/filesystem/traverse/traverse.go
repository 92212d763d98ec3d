// Package traverse provides visitor-based single-level directory
// enumeration with typed entry callbacks, symlink follow control, and
// retryable error reporting.
package traverse

import (
	"os"
	"path/filepath"
	"runtime"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/driftsync-io/driftsync/pkg/filesystem"
	"github.com/driftsync-io/driftsync/pkg/fserror"
)

// SymlinkAction is the disposition a visitor returns for a symlink entry.
type SymlinkAction int

const (
	// SymlinkSkip reports the symlink as a link only.
	SymlinkSkip SymlinkAction = iota
	// SymlinkFollow resolves the symlink and reports its target as a file
	// or directory with the link information attached.
	SymlinkFollow
)

// ErrorResponse is the disposition a visitor returns for an enumeration
// error.
type ErrorResponse int

const (
	// ErrorRetry restarts the failed operation.
	ErrorRetry ErrorResponse = iota
	// ErrorIgnore skips the affected entry, or the whole enumeration when no
	// single entry is affected.
	ErrorIgnore
)

// SymlinkInfo describes a symlink entry.
type SymlinkInfo struct {
	// TargetPath is the raw link target.
	TargetPath string
	// LastWriteTime is the modification time of the link itself.
	LastWriteTime time.Time
}

// FileInfo describes a file entry.
type FileInfo struct {
	// Size is the file size in bytes.
	Size uint64
	// LastWriteTime is the file modification time.
	LastWriteTime time.Time
	// ID is the file identifier, if the OS provided one.
	ID filesystem.FileID
	// SymlinkInfo is set when the file was reached through a followed
	// symlink.
	SymlinkInfo *SymlinkInfo
}

// Visitor receives enumeration callbacks. OnDir returns the visitor for the
// subdirectory's own enumeration, or nil to skip descending. OnError
// receives a retry count for the failing operation and an entry name when a
// single entry is affected (empty otherwise).
type Visitor interface {
	OnFile(shortName, fullPath string, info FileInfo) error
	OnSymlink(shortName, fullPath string, info SymlinkInfo) (SymlinkAction, error)
	OnDir(shortName, fullPath string) (Visitor, error)
	OnError(message string, retryCount int, shortName string) (ErrorResponse, error)
}

// Traverse enumerates a single directory level, dispatching each entry to
// the visitor and recursing into subdirectories for which the visitor
// returns a sub-visitor. Enumeration failures restart the enumeration from
// the beginning, because mid-traversal directory cursors are unreliable on
// some systems; the visitor decides when to give up.
func Traverse(root string, visitor Visitor) error {
	// Enumerate with restart-on-error semantics.
	var entries []os.DirEntry
	for retryCount := 0; ; retryCount++ {
		var err error
		entries, err = os.ReadDir(root)
		if err == nil {
			break
		}
		response, cbErr := visitor.OnError(
			fserror.NewErrorWithCause("Cannot enumerate directory "+fserror.QuotePath(root)+".", err).Error(),
			retryCount, "",
		)
		if cbErr != nil {
			return cbErr
		}
		if response == ErrorIgnore {
			return nil
		}
	}

	// Dispatch entries.
	for _, entry := range entries {
		// Entries named "." and ".." never reach the visitor; os.ReadDir
		// already suppresses them on all supported platforms.
		shortName := normalizeShortName(entry.Name())
		fullPath := filepath.Join(root, entry.Name())
		if err := dispatchEntry(shortName, fullPath, visitor); err != nil {
			return err
		}
	}

	// Success.
	return nil
}

// dispatchEntry classifies and reports a single directory entry, retrying
// metadata queries under visitor control.
func dispatchEntry(shortName, fullPath string, visitor Visitor) error {
	// Query link-level metadata with retry.
	info, err := lstatWithRetry(shortName, fullPath, visitor)
	if err != nil || info == nil {
		return err
	}

	// Handle symlinks.
	if info.Mode()&os.ModeSymlink != 0 {
		target, readErr := filesystem.ReadSymlinkTarget(fullPath)
		if readErr != nil {
			target = ""
		}
		linkInfo := SymlinkInfo{TargetPath: target, LastWriteTime: info.ModTime()}
		action, cbErr := visitor.OnSymlink(shortName, fullPath, linkInfo)
		if cbErr != nil {
			return cbErr
		}
		if action == SymlinkSkip {
			return nil
		}

		// Resolve the target and report it in the appropriate shape.
		targetInfo, statErr := os.Stat(fullPath)
		for retryCount := 0; statErr != nil; retryCount++ {
			// A broken link that the visitor asked to follow is an entry
			// level error.
			response, cbErr := visitor.OnError(
				fserror.NewErrorWithCause("Cannot resolve symbolic link "+fserror.QuotePath(fullPath)+".", statErr).Error(),
				retryCount, shortName,
			)
			if cbErr != nil {
				return cbErr
			}
			if response != ErrorRetry {
				return nil
			}
			targetInfo, statErr = os.Stat(fullPath)
		}
		if targetInfo.IsDir() {
			subVisitor, cbErr := visitor.OnDir(shortName, fullPath)
			if cbErr != nil {
				return cbErr
			}
			if subVisitor != nil {
				return Traverse(fullPath, subVisitor)
			}
			return nil
		}
		id, _ := filesystem.GetFileID(fullPath)
		return visitor.OnFile(shortName, fullPath, FileInfo{
			Size:          uint64(targetInfo.Size()),
			LastWriteTime: targetInfo.ModTime(),
			ID:            id,
			SymlinkInfo:   &linkInfo,
		})
	}

	// Handle directories.
	if info.IsDir() {
		subVisitor, cbErr := visitor.OnDir(shortName, fullPath)
		if cbErr != nil {
			return cbErr
		}
		if subVisitor != nil {
			return Traverse(fullPath, subVisitor)
		}
		return nil
	}

	// Handle files.
	id, _ := filesystem.GetFileID(fullPath)
	return visitor.OnFile(shortName, fullPath, FileInfo{
		Size:          uint64(info.Size()),
		LastWriteTime: info.ModTime(),
		ID:            id,
	})
}

// lstatWithRetry queries link-level metadata for an entry, consulting the
// visitor on failure. A nil info with a nil error indicates that the visitor
// chose to ignore the entry.
func lstatWithRetry(shortName, fullPath string, visitor Visitor) (os.FileInfo, error) {
	for retryCount := 0; ; retryCount++ {
		info, err := os.Lstat(fullPath)
		if err == nil {
			return info, nil
		}
		if os.IsNotExist(err) {
			// The entry vanished between enumeration and query.
			return nil, nil
		}
		response, cbErr := visitor.OnError(
			fserror.NewErrorWithCause("Cannot read file attributes of "+fserror.QuotePath(fullPath)+".", err).Error(),
			retryCount, shortName,
		)
		if cbErr != nil {
			return nil, cbErr
		}
		if response == ErrorIgnore {
			return nil, nil
		}
	}
}

// normalizeShortName converts an entry name to the canonical Unicode form
// for comparison and reporting. Names can arrive in either normalization
// form on Darwin volumes, so they are pinned to the decomposed form there.
func normalizeShortName(name string) string {
	if runtime.GOOS == "darwin" {
		return norm.NFD.String(name)
	}
	return name
}
