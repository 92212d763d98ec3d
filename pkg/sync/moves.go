package sync

import (
	"path/filepath"
	"strings"

	"github.com/driftsync-io/driftsync/pkg/filesystem"
	"github.com/driftsync-io/driftsync/pkg/fserror"
)

// runZeroPass resolves move pairs before any deletion takes place. Each
// file marked as a move source either renames straight to its target
// location (after eagerly creating the target's parent directories), or,
// when its current location is endangered by the deletion pass, escapes
// through a 2-step move into a scratch name at the base directory whose
// final placement runs in the creation pass. Any failure the callback
// chooses to ignore degrades the move into an independent create plus
// delete.
func (s *folderPairSyncer) runZeroPass() error {
	// Collect move sources up front; resolution mutates the hierarchy.
	var sources []int
	s.hierarchy.Walk(func(index int) error {
		item := s.hierarchy.Item(index)
		if item.Kind == KindFile &&
			(item.Op == OperationMoveLeftSource || item.Op == OperationMoveRightSource) {
			sources = append(sources, index)
		}
		return nil
	})

	for _, index := range sources {
		if s.hierarchy.Removed(index) {
			continue
		}
		for retryCount := 0; ; retryCount++ {
			err := s.resolveMove(index)
			if err == nil {
				break
			}
			if fserror.IsAborted(err) {
				return err
			}
			response, cbErr := s.callback.ReportError(err.Error(), retryCount)
			if cbErr != nil {
				return cbErr
			}
			if response == ErrorRetry {
				continue
			}

			// Degrade the move: both peers lose their cross-reference, and
			// the expected totals grow by the bytes the now-independent
			// create will transfer.
			item := s.hierarchy.Item(index)
			side, _ := item.Op.TargetSide()
			extraBytes := int64(item.Side(side).Size)
			s.hierarchy.UnlinkMovePair(index)
			if err := s.callback.UpdateTotalData(0, extraBytes); err != nil {
				return err
			}
			break
		}
	}

	// Success.
	return nil
}

// resolveMove resolves a single move source.
func (s *folderPairSyncer) resolveMove(sourceIndex int) error {
	source := s.hierarchy.Item(sourceIndex)
	side, _ := source.Op.TargetSide()
	_, targetOp := moveCounterparts(side)

	// Validate the cross-reference; a broken pair degrades to create plus
	// delete immediately.
	targetIndex := source.MoveRef
	if targetIndex == invalidIndex || s.hierarchy.Removed(targetIndex) ||
		s.hierarchy.Item(targetIndex).Op != targetOp {
		s.hierarchy.UnlinkMovePair(sourceIndex)
		return nil
	}

	// Decide between the direct rename and the 2-step escape.
	if s.parentScheduledForDeletion(sourceIndex, side) || s.hasClashingSibling(sourceIndex, side) {
		return s.escapeMoveSource(sourceIndex, targetIndex, side)
	}

	// Eagerly create the target's parent directory chain, then rename.
	if err := s.ensureParentDirectories(targetIndex, side); err != nil {
		return err
	}
	oldPath := s.fullPath(sourceIndex, side)
	newPath := s.fullPath(targetIndex, side)
	if err := s.callback.ReportStatus(
		"Moving file " + fserror.QuotePath(oldPath) + " to " + fserror.QuotePath(newPath),
	); err != nil {
		return err
	}
	if err := filesystem.Rename(oldPath, newPath); err != nil {
		return err
	}
	s.completeMove(sourceIndex, targetIndex, side)
	return s.callback.UpdateProcessedData(2, 0)
}

// escapeMoveSource performs the first half of a 2-step move: the source
// renames to a scratch name at the base directory, a temporary file pair
// pointing at the move target replaces it at the hierarchy root, and the
// original source leaves the hierarchy. The final placement executes as a
// regular move target in the creation pass.
func (s *folderPairSyncer) escapeMoveSource(sourceIndex, targetIndex int, side Side) error {
	source := s.hierarchy.Item(sourceIndex)
	sourcePath := s.fullPath(sourceIndex, side)

	// Find a scratch name at the base directory and rename the source to
	// it.
	scratchPath, err := filesystem.UnusedTemporaryName(
		filepath.Join(s.pair.Base(side), source.NameOn(side)),
	)
	if err != nil {
		return err
	}
	if err := filesystem.Rename(sourcePath, scratchPath); err != nil {
		return err
	}

	// Replace the source with a temporary base-level pair at the scratch
	// location.
	scratch := Item{
		Kind: KindFile,
		Op:   source.Op,
	}
	*scratch.Side(side) = *source.Side(side)
	scratch.Side(side).Name = filepath.Base(scratchPath)
	scratchIndex := s.hierarchy.AddItem(invalidIndex, scratch)
	s.hierarchy.LinkMovePair(scratchIndex, targetIndex)

	// Drop the original source: its cross-reference moved to the scratch
	// pair, so clear it directly rather than degrading the move.
	source.MoveRef = invalidIndex
	source.Op = OperationDoNothing
	s.hierarchy.Remove(sourceIndex)

	// Success.
	return nil
}

// synchronizeMoveTarget performs the second half of a move: the file at the
// move source's location renames to the target location, the target pair
// records both sides as in-sync at the source-side metadata, and the source
// pair leaves the hierarchy.
func (s *folderPairSyncer) synchronizeMoveTarget(targetIndex int) error {
	target := s.hierarchy.Item(targetIndex)
	side, _ := target.Op.TargetSide()

	// A degraded move never reaches this point with a valid reference; a
	// missing peer means the source already failed and was ignored.
	sourceIndex := target.MoveRef
	if sourceIndex == invalidIndex || s.hierarchy.Removed(sourceIndex) {
		s.hierarchy.UnlinkMovePair(targetIndex)
		return nil
	}

	oldPath := s.fullPath(sourceIndex, side)
	newPath := s.fullPath(targetIndex, side)
	if err := s.callback.ReportStatus(
		"Moving file " + fserror.QuotePath(oldPath) + " to " + fserror.QuotePath(newPath),
	); err != nil {
		return err
	}
	if err := filesystem.Rename(oldPath, newPath); err != nil {
		return err
	}
	s.completeMove(sourceIndex, targetIndex, side)
	return s.callback.UpdateProcessedData(2, 0)
}

// completeMove records a finished move: the target pair carries the moved
// file's metadata on the move side and counts as in-sync, and the source
// pair leaves the hierarchy.
func (s *folderPairSyncer) completeMove(sourceIndex, targetIndex int, side Side) {
	source := s.hierarchy.Item(sourceIndex)
	target := s.hierarchy.Item(targetIndex)

	moved := *source.Side(side)
	state := target.Side(side)
	name := state.Name
	if name == "" {
		name = target.NameOn(side)
	}
	*state = moved
	state.Name = name
	state.Exists = true
	target.Op = OperationEqual
	target.MoveRef = invalidIndex

	source.MoveRef = invalidIndex
	source.Op = OperationDoNothing
	source.Side(side).Exists = false
	s.hierarchy.Remove(sourceIndex)
}

// parentScheduledForDeletion checks whether any ancestor directory of the
// specified item is scheduled for deletion on the specified side, which
// would sweep the move source away before its placement.
func (s *folderPairSyncer) parentScheduledForDeletion(index int, side Side) bool {
	deleteOp := OperationDeleteLeft
	if side == SideRight {
		deleteOp = OperationDeleteRight
	}
	for parent := s.hierarchy.Parent(index); parent != invalidIndex; parent = s.hierarchy.Parent(parent) {
		if s.hierarchy.Item(parent).Op == deleteOp {
			return true
		}
	}
	return false
}

// hasClashingSibling checks whether a sibling directory or symlink occupies
// the move source's name, which a direct rename could trip over once
// deletions rearrange the parent.
func (s *folderPairSyncer) hasClashingSibling(index int, side Side) bool {
	name := s.hierarchy.Item(index).NameOn(side)
	parent := s.hierarchy.Parent(index)
	var siblings []int
	if parent == invalidIndex {
		siblings = s.hierarchy.Roots()
	} else {
		siblings = s.hierarchy.Children(parent)
	}
	for _, sibling := range siblings {
		if sibling == index || s.hierarchy.Removed(sibling) {
			continue
		}
		item := s.hierarchy.Item(sibling)
		if item.Kind == KindFile {
			continue
		}
		siblingName := item.NameOn(side)
		if siblingName == name || (filesystem.CaseInsensitiveNames && strings.EqualFold(siblingName, name)) {
			return true
		}
	}
	return false
}

// ensureParentDirectories creates the specified item's ancestor directories
// on the specified side ahead of pass order, so an eager move has a place
// to land.
func (s *folderPairSyncer) ensureParentDirectories(index int, side Side) error {
	// Collect the ancestor chain root-first.
	var chain []int
	for parent := s.hierarchy.Parent(index); parent != invalidIndex; parent = s.hierarchy.Parent(parent) {
		chain = append([]int{parent}, chain...)
	}

	// Create whatever is missing.
	for _, ancestor := range chain {
		path := s.fullPath(ancestor, side)
		if filesystem.DirExists(path) {
			continue
		}
		item := s.hierarchy.Item(ancestor)
		if item.Kind != KindDir {
			return fserror.NewError("Cannot create directory " + fserror.QuotePath(path) + ": the parent is not a directory pair.")
		}
		if err := s.createDirectory(ancestor, side); err != nil {
			return err
		}
	}

	// Success.
	return nil
}
