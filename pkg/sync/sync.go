package sync

import (
	"time"

	"github.com/driftsync-io/driftsync/pkg/filesystem"
	"github.com/driftsync-io/driftsync/pkg/fserror"
	"github.com/driftsync-io/driftsync/pkg/logging"
	"github.com/driftsync-io/driftsync/pkg/process"
	"github.com/driftsync-io/driftsync/pkg/sync/deletion"
)

// passID identifies one of the per-pair execution passes.
type passID int

const (
	// passNone marks items never dispatched by a pass.
	passNone passID = iota
	// passDelete executes deletions and size-shrinking overwrites.
	passDelete
	// passCreate executes creations, size-growing and metadata-only
	// overwrites, and move target placement.
	passCreate
)

// Synchronize materializes the sync operations recorded in the specified
// comparison against the file system. The hierarchy is owned by the caller
// but mutated for the duration of the call: operations are marked done and
// in-sync snapshots updated as items complete.
//
// Synchronize reports failures through the callback and returns normally;
// an abort raised by the callback unwinds cleanly and also returns
// normally. Per-item failures are subject to the callback's retry or ignore
// decision, while infrastructure failures abort the affected folder pair
// only.
func Synchronize(comparison []*BaseDirPair, configs []FolderPairConfig, options Options, warnings *OptionalWarnings, callback ProcessCallback, logger *logging.Logger) {
	if err := synchronize(comparison, configs, options, warnings, callback, logger); err != nil {
		if fserror.IsAborted(err) {
			return
		}
		// Top-level failures are surfaced as fatal errors; a further abort
		// from the callback has nothing left to unwind.
		callback.ReportFatalError(err.Error())
	}
}

// synchronize implements Synchronize.
func synchronize(comparison []*BaseDirPair, configs []FolderPairConfig, options Options, warnings *OptionalWarnings, callback ProcessCallback, logger *logging.Logger) error {
	// Validate input alignment.
	if len(comparison) != len(configs) {
		return fserror.NewError("Number of folder pairs does not match number of configurations.")
	}

	// Compute per-pair statistics before any I/O writes.
	if err := callback.SetPhase(PhaseScanning); err != nil {
		return err
	}
	statistics := make([]Statistics, len(comparison))
	for i, pair := range comparison {
		statistics[i] = CalculateStatistics(pair.Hierarchy)
	}

	// Run pre-flight checks.
	decisions, err := preflight(comparison, configs, statistics, warnings, callback)
	if err != nil {
		return err
	}

	// Lower the process priority for the duration of the call if requested.
	// Failure to do so never blocks synchronization.
	if options.RunWithBackgroundPriority {
		if restore, err := process.SetBackgroundPriority(); err != nil {
			logger.Warnf("Unable to lower process priority: %s", err.Error())
		} else {
			defer restore()
		}
	}

	// Acquire elevated read privileges for locked file handling where the
	// platform supports them, best-effort.
	if options.CopyLockedFiles {
		if err := filesystem.EnableBackupPrivileges(); err != nil {
			logger.Warnf("Unable to acquire backup privileges: %s", err.Error())
		}
	}

	// Announce totals for pairs that will be processed.
	if err := callback.SetPhase(PhaseSynchronizing); err != nil {
		return err
	}
	var totalItems, totalBytes int64
	for i := range comparison {
		if decisions[i] == decisionProcess {
			totalItems += statistics[i].ItemsToProcess()
			totalBytes += statistics[i].BytesToProcess
		}
	}
	if err := callback.UpdateTotalData(totalItems, totalBytes); err != nil {
		return err
	}

	// Process pairs sequentially.
	for i, pair := range comparison {
		if decisions[i] != decisionProcess {
			continue
		}
		if err := synchronizePair(pair, configs[i], options, warnings, callback, logger); err != nil {
			if fserror.IsAborted(err) {
				return err
			}
			// An infrastructure failure is fatal for this pair only.
			if cbErr := callback.ReportFatalError(err.Error()); cbErr != nil {
				return cbErr
			}
		}
	}

	// Success.
	return nil
}

// synchronizePair processes a single folder pair: it installs one deletion
// handler per side, executes the move resolution pass, the deletion pass,
// and the creation pass, then flushes the deletion handlers and persists
// the pair's state.
func synchronizePair(pair *BaseDirPair, config FolderPairConfig, options Options, warnings *OptionalWarnings, callback ProcessCallback, logger *logging.Logger) error {
	if err := callback.ReportInfo(
		"Synchronizing folder pair: " + fserror.QuotePath(pair.LeftBase) + " <-> " + fserror.QuotePath(pair.RightBase),
	); err != nil {
		return err
	}

	// Permission copying only works on volumes that store access control
	// information; note the degradation up front instead of failing per
	// item.
	if options.CopyFilePermissions {
		for _, side := range []Side{SideLeft, SideRight} {
			if supported, err := filesystem.SupportsPermissions(pair.Base(side)); err == nil && !supported {
				logger.Warnf("Volume of '%s' does not support permissions; permission copying degrades to a no-op there", pair.Base(side))
			}
		}
	}

	// Install the deletion handlers. Their staging directories are
	// guaranteed-removed on Close, even under cancellation.
	timestamp := time.Now()
	onStatus := func(text string) error { return callback.ReportStatus(text) }
	onWarning := func(text string) error {
		if warnings.SuppressRecyclerMissing {
			return nil
		}
		return callback.ReportWarning(text, &warnings.SuppressRecyclerMissing)
	}
	newHandler := func(side Side) *deletion.Handler {
		return deletion.NewHandler(
			config.DeletionPolicy, config.VersioningFolder, config.VersioningStyle,
			timestamp, pair.Base(side), onStatus, onWarning, logger,
		)
	}
	syncer := &folderPairSyncer{
		pair:      pair,
		hierarchy: pair.Hierarchy,
		config:    config,
		options:   options,
		callback:  callback,
		logger:    logger,
	}
	syncer.deleters[SideLeft] = newHandler(SideLeft)
	syncer.deleters[SideRight] = newHandler(SideRight)
	defer syncer.deleters[SideLeft].Close()
	defer syncer.deleters[SideRight].Close()

	// Execute the passes: moves resolve first, deletions free names and
	// space, creations fill them.
	if err := syncer.runZeroPass(); err != nil {
		return err
	}
	if err := syncer.runPass(passDelete); err != nil {
		return err
	}
	if err := syncer.runPass(passCreate); err != nil {
		return err
	}

	// Flush the batched recycler dispatch.
	for _, side := range []Side{SideLeft, SideRight} {
		if err := syncer.deleters[side].TryCleanup(true); err != nil {
			if fserror.IsAborted(err) {
				return err
			}
			if cbErr := callback.ReportFatalError(err.Error()); cbErr != nil {
				return cbErr
			}
		}
	}

	// Persist the pair's synchronized state, best-effort.
	if options.SaveState != nil {
		if err := options.SaveState(pair); err != nil {
			logger.Warnf("Unable to save synchronization state for '%s': %s", pair.LeftBase, err.Error())
		}
	}

	// Success.
	return nil
}

// folderPairSyncer executes the passes for one folder pair.
type folderPairSyncer struct {
	pair      *BaseDirPair
	hierarchy *Hierarchy
	config    FolderPairConfig
	options   Options
	callback  ProcessCallback
	logger    *logging.Logger
	deleters  [2]*deletion.Handler
}

// fullPath computes an item's absolute path on the specified side.
func (s *folderPairSyncer) fullPath(index int, side Side) string {
	return s.hierarchy.FullPath(s.pair.Base(side), index, side)
}

// onCopyProgress forwards byte progress to the callback, which may abort.
func (s *folderPairSyncer) onCopyProgress(bytesDelta uint64) error {
	return s.callback.UpdateProcessedData(0, int64(bytesDelta))
}

// passOf returns the pass that executes the specified item's operation.
// Size-shrinking file overwrites run in the deletion pass so freed space is
// available before the creation pass grows other files.
func passOf(item *Item) passID {
	switch item.Op {
	case OperationDeleteLeft, OperationDeleteRight:
		return passDelete
	case OperationOverwriteLeft, OperationOverwriteRight:
		if item.Kind == KindFile {
			target, _ := item.Op.TargetSide()
			if item.Side(target).Size > item.Side(target.Opposite()).Size {
				return passDelete
			}
		}
		return passCreate
	case OperationCreateNewLeft, OperationCreateNewRight,
		OperationCopyMetadataToLeft, OperationCopyMetadataToRight:
		return passCreate
	case OperationMoveLeftTarget, OperationMoveRightTarget:
		if item.Kind == KindFile {
			return passCreate
		}
		return passNone
	default:
		return passNone
	}
}

// runPass walks the hierarchy in pre-order depth-first order and executes
// every item belonging to the specified pass, wrapping each item in the
// callback-driven retry loop.
func (s *folderPairSyncer) runPass(pass passID) error {
	return s.hierarchy.Walk(func(index int) error {
		if passOf(s.hierarchy.Item(index)) != pass {
			return nil
		}
		return s.withRetry(index, func() error {
			return s.synchronizeItem(index)
		})
	})
}

// withRetry executes a per-item operation under the callback's retry
// policy: a failure is reported, and the callback chooses between retrying
// the operation and ignoring the item. An ignored item is marked skipped
// and the pass continues. An abort from the callback unwinds the pass.
func (s *folderPairSyncer) withRetry(index int, operation func() error) error {
	for retryCount := 0; ; retryCount++ {
		err := operation()
		if err == nil {
			return nil
		}
		if fserror.IsAborted(err) {
			return err
		}
		response, cbErr := s.callback.ReportError(err.Error(), retryCount)
		if cbErr != nil {
			return cbErr
		}
		if response == ErrorIgnore {
			s.hierarchy.Item(index).skipped = true
			return nil
		}
	}
}

// synchronizeItem dispatches a single item to its kind-specific handler.
func (s *folderPairSyncer) synchronizeItem(index int) error {
	switch s.hierarchy.Item(index).Kind {
	case KindFile:
		return s.synchronizeFile(index)
	case KindSymlink:
		return s.synchronizeSymlink(index)
	case KindDir:
		return s.synchronizeDir(index)
	}
	return nil
}
