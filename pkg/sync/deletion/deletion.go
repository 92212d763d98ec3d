// Package deletion unifies the three deletion strategies applied to items
// removed by synchronization: permanent deletion, recycle bin dispatch with
// batching through a staging directory, and versioning into an archive.
package deletion

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/driftsync-io/driftsync/pkg/filesystem"
	"github.com/driftsync-io/driftsync/pkg/fserror"
	"github.com/driftsync-io/driftsync/pkg/logging"
	"github.com/driftsync-io/driftsync/pkg/versioning"
)

// Policy selects the deletion strategy.
type Policy int

const (
	// Permanent deletes items permanently.
	Permanent Policy = iota
	// Recycler moves items to the OS recycle bin.
	Recycler
	// Versioning moves items into an archive directory.
	Versioning
)

// String provides a human-readable representation of a deletion policy.
func (p Policy) String() string {
	switch p {
	case Permanent:
		return "permanent"
	case Recycler:
		return "recycler"
	case Versioning:
		return "versioning"
	default:
		return "unknown"
	}
}

// StatusFunc receives user-facing status text. It may return an error
// (typically fserror.ErrAborted) to cancel the surrounding operation.
type StatusFunc func(text string) error

// WarningFunc receives a non-fatal warning once per distinct condition.
type WarningFunc func(text string) error

// ProgressFunc receives byte deltas for data moved during versioning
// fallback copies.
type ProgressFunc = filesystem.CopyProgress

// Handler materializes deletions for one side of one folder pair. It is
// constructed without I/O; the versioner and the recycler staging directory
// come into existence on first use. Handlers are not safe for concurrent
// use.
type Handler struct {
	// policy is the deletion strategy.
	policy Policy
	// baseDir is the base directory of the handled side.
	baseDir string
	// versioningDir is the archive root for the versioning policy.
	versioningDir string
	// versioningStyle is the archive naming policy.
	versioningStyle versioning.Style
	// timestamp is the shared revision time for this run.
	timestamp time.Time
	// onStatus receives status text for ongoing operations.
	onStatus StatusFunc
	// onWarning receives one-shot warnings.
	onWarning WarningFunc
	// logger is the handler's logger.
	logger *logging.Logger

	// versioner is created on first versioned deletion. Creation can fail,
	// which is exactly why it is deferred: a run that deletes nothing must
	// not fail on a misconfigured archive.
	versioner *versioning.Versioner
	// stagingDir is the recycler staging directory, created on first use.
	stagingDir string
	// toBeRecycled lists staged paths awaiting the batched recycler
	// dispatch.
	toBeRecycled []string
	// warnedRecyclerUnavailable suppresses repeated recycler availability
	// warnings for this base directory.
	warnedRecyclerUnavailable bool

	// Buffered status texts.
	txtRemovingFile    string
	txtRemovingSymlink string
	txtRemovingDir     string
}

// NewHandler creates a deletion handler for one side of one folder pair.
// Construction performs no I/O and cannot fail.
func NewHandler(policy Policy, versioningDir string, versioningStyle versioning.Style, timestamp time.Time, baseDir string, onStatus StatusFunc, onWarning WarningFunc, logger *logging.Logger) *Handler {
	h := &Handler{
		policy:          policy,
		baseDir:         baseDir,
		versioningDir:   versioningDir,
		versioningStyle: versioningStyle,
		timestamp:       timestamp,
		onStatus:        onStatus,
		onWarning:       onWarning,
		logger:          logger,
	}
	switch policy {
	case Permanent:
		h.txtRemovingFile = "Deleting file %x"
		h.txtRemovingDir = "Deleting folder %x"
		h.txtRemovingSymlink = "Deleting symbolic link %x"
	case Recycler:
		h.txtRemovingFile = "Moving file %x to the recycle bin"
		h.txtRemovingDir = "Moving folder %x to the recycle bin"
		h.txtRemovingSymlink = "Moving symbolic link %x to the recycle bin"
	case Versioning:
		target := fserror.QuotePath(versioningDir)
		h.txtRemovingFile = "Moving file %x to " + target
		h.txtRemovingDir = "Moving folder %x to " + target
		h.txtRemovingSymlink = "Moving symbolic link %x to " + target
	}
	return h
}

// reportStatus renders a buffered status text with the specified path.
func (h *Handler) reportStatus(template, path string) error {
	if h.onStatus == nil {
		return nil
	}
	return h.onStatus(strings.Replace(template, "%x", fserror.QuotePath(path), 1))
}

// getOrCreateVersioner creates the archive versioner on first use.
func (h *Handler) getOrCreateVersioner() (*versioning.Versioner, error) {
	if h.versioner == nil {
		versioner, err := versioning.New(h.versioningDir, h.versioningStyle, h.timestamp)
		if err != nil {
			return nil, err
		}
		h.versioner = versioner
	}
	return h.versioner, nil
}

// getOrCreateStagingDir creates the recycler staging directory under the
// base directory on first use, uniquifying its name with a bounded numeric
// suffix to guarantee exclusive ownership.
func (h *Handler) getOrCreateStagingDir() (string, error) {
	if h.stagingDir != "" {
		return h.stagingDir, nil
	}
	candidate := filepath.Join(h.baseDir, filesystem.RecycleBinStagingName+filesystem.TemporaryExtension)
	for i := 0; ; i++ {
		err := filesystem.MakeDirectory(candidate, true)
		if err == nil {
			h.stagingDir = candidate
			return candidate, nil
		}
		if !fserror.IsTargetExisting(err) || i == 10 {
			return "", err
		}
		candidate = filepath.Join(h.baseDir, fmt.Sprintf(
			"%s_%d%s", filesystem.RecycleBinStagingName, i, filesystem.TemporaryExtension,
		))
	}
}

// stageForRecycling renames an item into the staging directory, creating
// missing intermediate staging directories and retrying once. It reports
// whether the item was handled; a cross-volume rename falls back to direct
// recycling.
func (h *Handler) stageForRecycling(path, relativePath string) (bool, error) {
	stagingDir, err := h.getOrCreateStagingDir()
	if err != nil {
		return false, err
	}
	target := filepath.Join(stagingDir, relativePath)

	moveToStaging := func() (bool, error) {
		err := filesystem.Rename(path, target)
		if err == nil {
			h.toBeRecycled = append(h.toBeRecycled, target)
			return true, nil
		}
		if fserror.IsDifferentVolume(err) {
			// Batching through the staging directory requires a same-volume
			// rename; dispatch this item directly.
			return h.recycleDirectly(path)
		}
		return false, err
	}

	deleted, err := moveToStaging()
	if err == nil {
		return deleted, nil
	}

	// A vanished source is success without a processed item.
	if !filesystem.AnythingExists(path) {
		return false, nil
	}

	// Create missing intermediate staging directories and retry once.
	targetParent := filepath.Dir(target)
	if !filesystem.DirExists(targetParent) {
		if mkErr := filesystem.MakeDirectory(targetParent, false); mkErr != nil {
			return false, mkErr
		}
		return moveToStaging()
	}
	return false, err
}

// recycleDirectly dispatches a single item to the recycler, falling back to
// permanent deletion with a one-shot warning when the volume has no recycle
// bin.
func (h *Handler) recycleDirectly(path string) (bool, error) {
	existed, err := filesystem.Recycle(path)
	if err == nil {
		return existed, nil
	}
	if err != filesystem.ErrRecyclerUnavailable {
		return existed, fserror.NewErrorWithCause("Cannot move "+fserror.QuotePath(path)+" to the recycle bin.", err)
	}

	// Warn once per base directory, then delete permanently.
	if !h.warnedRecyclerUnavailable {
		h.warnedRecyclerUnavailable = true
		if h.onWarning != nil {
			warnErr := h.onWarning("The recycle bin is not available for " + fserror.QuotePath(h.baseDir) + ". Items will be deleted permanently.")
			if warnErr != nil {
				return false, warnErr
			}
		}
	}
	existed, err = filesystem.RecycleOrDelete(path)
	return existed, err
}

// RemoveFile removes the file at the specified path according to the
// handler's policy. A file carrying the engine's temporary extension is
// always deleted permanently; such entries are engine leftovers, not user
// data. onItemDeleted fires once if an item was actually processed; a
// source deleted concurrently by a third party counts as success without a
// processed item.
func (h *Handler) RemoveFile(path, relativePath string, onItemDeleted func() error, onProgress ProgressFunc) error {
	deleted := false

	if strings.HasSuffix(relativePath, filesystem.TemporaryExtension) {
		var err error
		if deleted, err = filesystem.RemoveFile(path); err != nil {
			return err
		}
	} else {
		switch h.policy {
		case Permanent:
			if err := h.reportStatus(h.txtRemovingFile, path); err != nil {
				return err
			}
			var err error
			if deleted, err = filesystem.RemoveFile(path); err != nil {
				return err
			}

		case Recycler:
			if err := h.reportStatus(h.txtRemovingFile, path); err != nil {
				return err
			}
			var err error
			if deleted, err = h.stageForRecycling(path, relativePath); err != nil {
				return err
			}

		case Versioning:
			if err := h.reportStatus(h.txtRemovingFile, path); err != nil {
				return err
			}
			versioner, err := h.getOrCreateVersioner()
			if err != nil {
				return err
			}
			if deleted, err = versioner.RevisionFile(path, relativePath, onProgress); err != nil {
				return err
			}
		}
	}

	if deleted && onItemDeleted != nil {
		return onItemDeleted()
	}
	return nil
}

// RemoveDir removes the directory at the specified path according to the
// handler's policy. Under the permanent policy onItemDeleted fires once per
// file and once per containing directory during the recursive removal;
// under the versioning policy it fires once per archived file and once per
// archived directory; under the recycler policy moving the directory is one
// logical operation and onItemDeleted fires once, irrespective of the
// number of children subsumed.
func (h *Handler) RemoveDir(path, relativePath string, onItemDeleted func() error, onProgress ProgressFunc) error {
	switch h.policy {
	case Permanent:
		notifyDeletion := func(template, entryPath string) error {
			if onItemDeleted != nil {
				if err := onItemDeleted(); err != nil {
					return err
				}
			}
			return h.reportStatus(template, entryPath)
		}
		return filesystem.RemoveDirectory(path,
			func(filePath string) error { return notifyDeletion(h.txtRemovingFile, filePath) },
			func(dirPath string) error { return notifyDeletion(h.txtRemovingDir, dirPath) },
		)

	case Recycler:
		if err := h.reportStatus(h.txtRemovingDir, path); err != nil {
			return err
		}
		deleted, err := h.stageForRecycling(path, relativePath)
		if err != nil {
			return err
		}
		if deleted && onItemDeleted != nil {
			return onItemDeleted()
		}
		return nil

	case Versioning:
		notifyMove := func(template, from, to string) error {
			if onItemDeleted != nil {
				if err := onItemDeleted(); err != nil {
					return err
				}
			}
			if h.onStatus == nil {
				return nil
			}
			text := strings.Replace(template, "%x", fserror.QuotePath(from), 1)
			text = strings.Replace(text, "%y", fserror.QuotePath(to), 1)
			return h.onStatus(text)
		}
		versioner, err := h.getOrCreateVersioner()
		if err != nil {
			return err
		}
		return versioner.RevisionDir(path, relativePath,
			func(from, to string) error { return notifyMove("Moving file %x to %y", from, to) },
			func(from, to string) error { return notifyMove("Moving folder %x to %y", from, to) },
			onProgress,
		)
	}
	return nil
}

// RemoveLink removes the symlink at the specified path according to the
// handler's policy, routing directory symlinks through directory removal
// and all others through file removal.
func (h *Handler) RemoveLink(path, relativePath string, onItemDeleted func() error, onProgress ProgressFunc) error {
	if filesystem.DirExists(path) {
		return h.RemoveDir(path, relativePath, onItemDeleted, onProgress)
	}
	return h.RemoveFile(path, relativePath, onItemDeleted, onProgress)
}

// TryCleanup submits all staged recycler items in a single dispatch and
// removes the emptied staging directory. Call it after a synchronization
// pass completes; Close performs the same work best-effort for abnormal
// exits. If allowStatus is false, no user callback fires during cleanup.
func (h *Handler) TryCleanup(allowStatus bool) error {
	if h.policy != Recycler {
		return nil
	}

	// Dispatch the staged batch.
	if len(h.toBeRecycled) > 0 {
		if allowStatus {
			if err := h.reportStatus(h.txtRemovingFile, h.stagingDir); err != nil {
				return err
			}
		}
		if err := filesystem.RecycleMultiple(h.toBeRecycled); err != nil {
			return err
		}
		h.toBeRecycled = nil
	}

	// Remove the staging directory, which holds only remnant empty
	// directory chains at this point.
	if h.stagingDir != "" {
		if err := filesystem.RemoveDirectory(h.stagingDir, nil, nil); err != nil {
			return err
		}
		h.stagingDir = ""
	}

	// Success.
	return nil
}

// Close releases the handler, attempting cleanup even under cancellation.
// Errors are logged and swallowed; no user callback fires, so an abort
// signal cannot re-raise during cleanup and leave the staging directory
// behind.
func (h *Handler) Close() {
	if err := h.TryCleanup(false); err != nil {
		h.logger.Warnf("Unable to clean up deletion handler for '%s': %s", h.baseDir, err.Error())
	}
}
