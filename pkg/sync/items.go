package sync

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/driftsync-io/driftsync/pkg/filesystem"
	"github.com/driftsync-io/driftsync/pkg/fserror"
)

// timeFromUnix converts seconds UTC to a time value.
func timeFromUnix(seconds int64) time.Time {
	return time.Unix(seconds, 0).UTC()
}

const (
	// fileTimeTolerance is the modification time tolerance below which two
	// timestamps count as equal, covering the two second precision floor of
	// FAT volumes.
	fileTimeTolerance = 2
)

// namesDifferInCaseOnly checks whether two names refer to the same entry
// under case-insensitive matching but render differently.
func namesDifferInCaseOnly(a, b string) bool {
	return a != b && strings.EqualFold(a, b)
}

// alignNameCase renames the target-side entry in place when its name
// differs from the source-side name in case only, so both sides render the
// same name afterwards.
func (s *folderPairSyncer) alignNameCase(index int, sourceSide Side) error {
	item := s.hierarchy.Item(index)
	target := item.Side(sourceSide.Opposite())
	sourceName := item.Side(sourceSide).Name
	if sourceName == "" || target.Name == "" || !namesDifferInCaseOnly(sourceName, target.Name) {
		return nil
	}
	oldPath := s.fullPath(index, sourceSide.Opposite())
	newPath := filepath.Join(filepath.Dir(oldPath), sourceName)
	if err := filesystem.Rename(oldPath, newPath); err != nil {
		return err
	}
	target.Name = sourceName
	return nil
}

// copyFileWithVerification copies a file, then optionally re-reads both
// files and compares their bytes. A mismatch removes the fresh target so no
// corrupt copy survives under the final name.
func (s *folderPairSyncer) copyFileWithVerification(sourcePath, targetPath string, onBeforeDeleteTarget func() error) (*filesystem.InSyncAttributes, error) {
	attributes, err := filesystem.CopyFile(
		sourcePath, targetPath,
		s.options.CopyFilePermissions, s.options.TransactionalFileCopy,
		onBeforeDeleteTarget, s.onCopyProgress,
	)
	if err != nil {
		return nil, err
	}

	if s.options.VerifyCopiedFiles {
		if err := s.callback.ReportStatus("Verifying file " + fserror.QuotePath(targetPath)); err != nil {
			return nil, err
		}
		equal, err := filesystem.CompareFileContent(sourcePath, targetPath, nil)
		if err != nil {
			return nil, err
		}
		if !equal {
			filesystem.RemoveFile(targetPath)
			return nil, fserror.NewDataVerification(sourcePath, targetPath)
		}
	}

	// Success.
	return attributes, nil
}

// synchronizeFile executes a file item's operation.
func (s *folderPairSyncer) synchronizeFile(index int) error {
	item := s.hierarchy.Item(index)
	switch item.Op {
	case OperationCreateNewLeft, OperationCreateNewRight:
		targetSide, _ := item.Op.TargetSide()
		sourceSide := targetSide.Opposite()
		targetPath := s.fullPath(index, targetSide)
		sourcePath := s.fullPath(index, sourceSide)

		// If creating the parent directory failed earlier, skip silently
		// rather than cascading one error per child.
		if !filesystem.DirExists(filepath.Dir(targetPath)) {
			s.hierarchy.Remove(index)
			return s.callback.UpdateTotalData(-1, -int64(item.Side(sourceSide).Size))
		}

		if err := s.callback.ReportStatus("Creating file " + fserror.QuotePath(targetPath)); err != nil {
			return err
		}
		attributes, err := s.copyFileWithVerification(sourcePath, targetPath, nil)
		if err != nil {
			// A source deleted in the meantime no longer needs creating.
			if !filesystem.AnythingExists(sourcePath) {
				s.hierarchy.Remove(index)
				return s.callback.UpdateTotalData(-1, -int64(item.Side(sourceSide).Size))
			}
			return err
		}
		s.recordCopied(item, sourceSide, attributes)
		return s.callback.UpdateProcessedData(1, 0)

	case OperationOverwriteLeft, OperationOverwriteRight:
		targetSide, _ := item.Op.TargetSide()
		sourceSide := targetSide.Opposite()
		sourcePath := s.fullPath(index, sourceSide)

		// Align the rendered name first when it differs in case only.
		if err := s.alignNameCase(index, sourceSide); err != nil {
			return err
		}

		// A followed symlink is overwritten at its final target so the link
		// itself survives.
		targetPath := s.fullPath(index, targetSide)
		if item.Side(targetSide).FollowedSymlink {
			resolved, err := filesystem.ResolveSymlinkTarget(targetPath)
			if err != nil {
				return err
			}
			targetPath = resolved
		}

		if err := s.callback.ReportStatus("Overwriting file " + fserror.QuotePath(targetPath)); err != nil {
			return err
		}

		// The old target is cleared through the deletion handler right
		// before the fresh copy takes its place, so overwritten data
		// honors the deletion policy.
		relativePath := s.hierarchy.RelativePath(index, targetSide)
		onBeforeDeleteTarget := func() error {
			return s.deleters[targetSide].RemoveFile(targetPath, relativePath, nil, s.onCopyProgress)
		}
		attributes, err := s.copyFileWithVerification(sourcePath, targetPath, onBeforeDeleteTarget)
		if err != nil {
			return err
		}
		s.recordCopied(item, sourceSide, attributes)
		return s.callback.UpdateProcessedData(1, 0)

	case OperationDeleteLeft, OperationDeleteRight:
		targetSide, _ := item.Op.TargetSide()
		targetPath := s.fullPath(index, targetSide)
		relativePath := s.hierarchy.RelativePath(index, targetSide)
		onItemDeleted := func() error { return s.callback.UpdateProcessedData(1, 0) }
		if err := s.deleters[targetSide].RemoveFile(targetPath, relativePath, onItemDeleted, s.onCopyProgress); err != nil {
			return err
		}
		s.recordDeleted(index, targetSide)
		return nil

	case OperationCopyMetadataToLeft, OperationCopyMetadataToRight:
		targetSide, _ := item.Op.TargetSide()
		sourceSide := targetSide.Opposite()
		if err := s.callback.ReportStatus("Updating attributes of " + fserror.QuotePath(s.fullPath(index, targetSide))); err != nil {
			return err
		}
		if err := s.alignNameCase(index, sourceSide); err != nil {
			return err
		}
		source := item.Side(sourceSide)
		target := item.Side(targetSide)
		if diff := source.ModTime - target.ModTime; diff > fileTimeTolerance || diff < -fileTimeTolerance {
			if err := filesystem.SetFileTime(s.fullPath(index, targetSide), timeFromUnix(source.ModTime), true); err != nil {
				return err
			}
			target.ModTime = source.ModTime
		}
		item.Op = OperationEqual
		return s.callback.UpdateProcessedData(1, 0)

	case OperationMoveLeftTarget, OperationMoveRightTarget:
		return s.synchronizeMoveTarget(index)
	}
	return nil
}

// recordCopied updates a pair after a completed copy so a subsequent
// comparison sees it as synchronized.
func (s *folderPairSyncer) recordCopied(item *Item, sourceSide Side, attributes *filesystem.InSyncAttributes) {
	source := item.Side(sourceSide)
	source.Size = attributes.Size
	source.ModTime = attributes.ModTime
	source.FileID = attributes.SourceFileID
	item.SetSynced(sourceSide, attributes.TargetFileID)
}

// recordDeleted updates a pair after a completed deletion, pruning the item
// once neither side exists.
func (s *folderPairSyncer) recordDeleted(index int, side Side) {
	item := s.hierarchy.Item(index)
	state := item.Side(side)
	state.Exists = false
	state.Size = 0
	state.FileID = filesystem.FileID{}
	item.Op = OperationDoNothing
	if !item.Side(side.Opposite()).Exists {
		s.hierarchy.Remove(index)
	}
}

// synchronizeSymlink executes a symlink item's operation. Symlinks are
// always reproduced as links: their raw target is copied and never
// followed.
func (s *folderPairSyncer) synchronizeSymlink(index int) error {
	item := s.hierarchy.Item(index)
	switch item.Op {
	case OperationCreateNewLeft, OperationCreateNewRight:
		targetSide, _ := item.Op.TargetSide()
		sourceSide := targetSide.Opposite()
		targetPath := s.fullPath(index, targetSide)
		sourcePath := s.fullPath(index, sourceSide)
		if !filesystem.DirExists(filepath.Dir(targetPath)) {
			s.hierarchy.Remove(index)
			return s.callback.UpdateTotalData(-1, 0)
		}
		if err := s.callback.ReportStatus("Creating symbolic link " + fserror.QuotePath(targetPath)); err != nil {
			return err
		}
		if err := filesystem.CopySymlink(sourcePath, targetPath, s.options.CopyFilePermissions); err != nil {
			if !filesystem.AnythingExists(sourcePath) {
				s.hierarchy.Remove(index)
				return s.callback.UpdateTotalData(-1, 0)
			}
			return err
		}
		item.SetSynced(sourceSide, filesystem.FileID{})
		return s.callback.UpdateProcessedData(1, 0)

	case OperationOverwriteLeft, OperationOverwriteRight:
		targetSide, _ := item.Op.TargetSide()
		sourceSide := targetSide.Opposite()
		if err := s.alignNameCase(index, sourceSide); err != nil {
			return err
		}
		targetPath := s.fullPath(index, targetSide)
		sourcePath := s.fullPath(index, sourceSide)
		if err := s.callback.ReportStatus("Overwriting symbolic link " + fserror.QuotePath(targetPath)); err != nil {
			return err
		}
		relativePath := s.hierarchy.RelativePath(index, targetSide)
		if err := s.deleters[targetSide].RemoveLink(targetPath, relativePath, nil, s.onCopyProgress); err != nil {
			return err
		}
		if err := filesystem.CopySymlink(sourcePath, targetPath, s.options.CopyFilePermissions); err != nil {
			return err
		}
		item.SetSynced(sourceSide, filesystem.FileID{})
		return s.callback.UpdateProcessedData(1, 0)

	case OperationDeleteLeft, OperationDeleteRight:
		targetSide, _ := item.Op.TargetSide()
		targetPath := s.fullPath(index, targetSide)
		relativePath := s.hierarchy.RelativePath(index, targetSide)
		onItemDeleted := func() error { return s.callback.UpdateProcessedData(1, 0) }
		if err := s.deleters[targetSide].RemoveLink(targetPath, relativePath, onItemDeleted, s.onCopyProgress); err != nil {
			return err
		}
		s.recordDeleted(index, targetSide)
		return nil

	case OperationCopyMetadataToLeft, OperationCopyMetadataToRight:
		targetSide, _ := item.Op.TargetSide()
		sourceSide := targetSide.Opposite()
		if err := s.callback.ReportStatus("Updating attributes of " + fserror.QuotePath(s.fullPath(index, targetSide))); err != nil {
			return err
		}
		if err := s.alignNameCase(index, sourceSide); err != nil {
			return err
		}
		source := item.Side(sourceSide)
		target := item.Side(targetSide)
		if diff := source.ModTime - target.ModTime; diff > fileTimeTolerance || diff < -fileTimeTolerance {
			if err := filesystem.SetFileTime(s.fullPath(index, targetSide), timeFromUnix(source.ModTime), false); err != nil {
				return err
			}
			target.ModTime = source.ModTime
		}
		item.Op = OperationEqual
		return s.callback.UpdateProcessedData(1, 0)
	}
	return nil
}

// synchronizeDir executes a directory item's operation.
func (s *folderPairSyncer) synchronizeDir(index int) error {
	item := s.hierarchy.Item(index)
	switch item.Op {
	case OperationCreateNewLeft, OperationCreateNewRight:
		targetSide, _ := item.Op.TargetSide()
		return s.createDirectory(index, targetSide)

	case OperationDeleteLeft, OperationDeleteRight:
		targetSide, _ := item.Op.TargetSide()
		targetPath := s.fullPath(index, targetSide)
		relativePath := s.hierarchy.RelativePath(index, targetSide)

		// Count the work the subtree was planned to contribute, so progress
		// stays aligned no matter how the policy batches the removal.
		planned := calculateSubtreeStatistics(s.hierarchy, index).ItemsToProcess()
		var fired int64
		onItemDeleted := func() error {
			fired++
			return s.callback.UpdateProcessedData(1, 0)
		}
		if err := s.deleters[targetSide].RemoveDir(targetPath, relativePath, onItemDeleted, s.onCopyProgress); err != nil {
			return err
		}
		s.hierarchy.Remove(index)
		return s.callback.UpdateProcessedData(planned-fired, 0)

	case OperationOverwriteLeft, OperationOverwriteRight,
		OperationCopyMetadataToLeft, OperationCopyMetadataToRight:
		targetSide, _ := item.Op.TargetSide()
		sourceSide := targetSide.Opposite()
		if err := s.alignNameCase(index, sourceSide); err != nil {
			return err
		}
		item.Op = OperationEqual
		return s.callback.UpdateProcessedData(1, 0)
	}
	return nil
}

// createDirectory creates a directory item on the specified side using the
// opposite side as the permission template. A source directory deleted in
// the meantime subtracts its whole subtree from the expected totals and
// prunes it from the hierarchy.
func (s *folderPairSyncer) createDirectory(index int, targetSide Side) error {
	item := s.hierarchy.Item(index)
	sourceSide := targetSide.Opposite()
	sourcePath := s.fullPath(index, sourceSide)
	targetPath := s.fullPath(index, targetSide)

	// Handle a vanished source.
	if !filesystem.DirExists(sourcePath) {
		subtree := calculateSubtreeStatistics(s.hierarchy, index)
		s.hierarchy.Remove(index)
		return s.callback.UpdateTotalData(-subtree.ItemsToProcess(), -subtree.BytesToProcess)
	}

	// Skip silently when the parent creation failed earlier.
	if !filesystem.DirExists(filepath.Dir(targetPath)) {
		subtree := calculateSubtreeStatistics(s.hierarchy, index)
		s.hierarchy.Remove(index)
		return s.callback.UpdateTotalData(-subtree.ItemsToProcess(), -subtree.BytesToProcess)
	}

	if err := s.callback.ReportStatus("Creating folder " + fserror.QuotePath(targetPath)); err != nil {
		return err
	}
	if err := filesystem.MakeDirectoryPlain(targetPath, sourcePath, s.options.CopyFilePermissions); err != nil {
		// An entity appearing at the target name in the meantime serves the
		// purpose if it is a directory.
		if !fserror.IsTargetExisting(err) || !filesystem.DirExists(targetPath) {
			return err
		}
	}
	item.SetSynced(sourceSide, filesystem.FileID{})
	return s.callback.UpdateProcessedData(1, 0)
}
