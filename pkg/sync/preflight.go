package sync

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/driftsync-io/driftsync/pkg/filesystem"
	"github.com/driftsync-io/driftsync/pkg/fserror"
	"github.com/driftsync-io/driftsync/pkg/sync/deletion"
	"github.com/driftsync-io/driftsync/pkg/versioning"
)

const (
	// significantDifferenceRowThreshold is the minimum number of mismatched
	// rows before the significant difference warning can fire.
	significantDifferenceRowThreshold = 10
	// significantDifferenceRatio is the mismatched row fraction above which
	// the significant difference warning fires.
	significantDifferenceRatio = 0.5
	// conflictPreviewLimit bounds the number of conflicts listed in the
	// unresolved conflict warning.
	conflictPreviewLimit = 10
)

// FolderPairConfig carries the per-pair synchronization configuration.
type FolderPairConfig struct {
	// DetectMovedFiles enables move pair resolution.
	DetectMovedFiles bool
	// DeletionPolicy selects the deletion strategy.
	DeletionPolicy deletion.Policy
	// VersioningStyle selects the archive naming policy for the versioning
	// deletion strategy.
	VersioningStyle versioning.Style
	// VersioningFolder is the archive root for the versioning deletion
	// strategy.
	VersioningFolder string
}

// Options carries the global synchronization flags.
type Options struct {
	// VerifyCopiedFiles re-reads and compares every copied file.
	VerifyCopiedFiles bool
	// CopyLockedFiles enables elevated read access for locked files where
	// the platform supports it.
	CopyLockedFiles bool
	// CopyFilePermissions copies ownership and access control information.
	CopyFilePermissions bool
	// TransactionalFileCopy streams copies through a scratch file that is
	// renamed into place.
	TransactionalFileCopy bool
	// RunWithBackgroundPriority lowers the process priority for the
	// duration of the call.
	RunWithBackgroundPriority bool
	// SaveState, if non-nil, persists a folder pair's synchronized state
	// after its processing completes. Failures are reported as warnings.
	SaveState func(pair *BaseDirPair) error
}

// pairDecision is the pre-flight classification of a folder pair.
type pairDecision int

const (
	// decisionProcess marks a pair for processing.
	decisionProcess pairDecision = iota
	// decisionAlreadyInSync marks a pair with no pending writes.
	decisionAlreadyInSync
	// decisionSkip marks a pair excluded from processing.
	decisionSkip
)

// normalizeForComparison prepares a base path for identity comparison.
func normalizeForComparison(path string) string {
	normalized := filepath.Clean(path)
	if filesystem.CaseInsensitiveNames {
		normalized = strings.ToLower(normalized)
	}
	return normalized
}

// pathsDependent checks whether one base directory contains the other (or
// both are the same), which makes concurrent reads and writes race.
func pathsDependent(first, second string) bool {
	a := normalizeForComparison(first) + string(filepath.Separator)
	b := normalizeForComparison(second) + string(filepath.Separator)
	return strings.HasPrefix(a, b) || strings.HasPrefix(b, a)
}

// spaceRequired estimates the net number of bytes each side needs: bytes
// arriving through creates and overwrites minus bytes released by deletes
// and by the overwritten originals.
func spaceRequired(hierarchy *Hierarchy) (left, right int64) {
	hierarchy.Walk(func(index int) error {
		item := hierarchy.Item(index)
		if item.Kind != KindFile {
			return nil
		}
		switch item.Op {
		case OperationCreateNewLeft:
			left += int64(item.Right.Size)
		case OperationCreateNewRight:
			right += int64(item.Left.Size)
		case OperationOverwriteLeft:
			left += int64(item.Right.Size) - int64(item.Left.Size)
		case OperationOverwriteRight:
			right += int64(item.Left.Size) - int64(item.Right.Size)
		case OperationDeleteLeft:
			left -= int64(item.Left.Size)
		case OperationDeleteRight:
			right -= int64(item.Right.Size)
		}
		return nil
	})
	return left, right
}

// collectConflicts lists the relative paths of unresolved conflicts, up to
// the preview limit.
func collectConflicts(hierarchy *Hierarchy) []string {
	var conflicts []string
	hierarchy.Walk(func(index int) error {
		if hierarchy.Item(index).Op == OperationUnresolvedConflict && len(conflicts) < conflictPreviewLimit {
			conflicts = append(conflicts, hierarchy.RelativePath(index, SideLeft))
		}
		return nil
	})
	return conflicts
}

// preflight validates inputs, classifies folder pairs, surfaces warnings,
// and creates missing base directories. It mutates decisions to skip pairs
// with fatal configuration or racing state.
func preflight(comparison []*BaseDirPair, configs []FolderPairConfig, statistics []Statistics, warnings *OptionalWarnings, callback ProcessCallback) ([]pairDecision, error) {
	decisions := make([]pairDecision, len(comparison))

	// Probe the availability of all base directories in parallel, so a
	// single unreachable network share cannot serially block the batch.
	var candidates []string
	for _, pair := range comparison {
		for _, side := range []Side{SideLeft, SideRight} {
			if pair.Base(side) != "" && pair.BaseExisting(side) {
				candidates = append(candidates, pair.Base(side))
			}
		}
	}
	available := filesystem.DirectoriesExist(candidates, filesystem.DefaultExistenceProbeTimeout)

	// Classify each pair.
	for i, pair := range comparison {
		config := configs[i]

		// A pair whose sides coincide would race against itself.
		if normalizeForComparison(pair.LeftBase) == normalizeForComparison(pair.RightBase) {
			decisions[i] = decisionSkip
			continue
		}

		// A pair missing a base path carries nothing to synchronize.
		if pair.LeftBase == "" || pair.RightBase == "" {
			decisions[i] = decisionSkip
			continue
		}

		// Versioning without an archive folder cannot proceed.
		if config.DeletionPolicy == deletion.Versioning && config.VersioningFolder == "" {
			if err := callback.ReportFatalError(
				"No versioning folder configured for " + fserror.QuotePath(pair.LeftBase) + " | " + fserror.QuotePath(pair.RightBase) + ".",
			); err != nil {
				return nil, err
			}
			decisions[i] = decisionSkip
			continue
		}

		// A pair with no pending writes needs no work.
		if statistics[i].ItemsToProcess() == 0 {
			decisions[i] = decisionAlreadyInSync
			continue
		}

		// A base directory that existed at compare time but is unreachable
		// now cannot be processed against the compared reality.
		vanished := ""
		for _, side := range []Side{SideLeft, SideRight} {
			if pair.BaseExisting(side) && !available[pair.Base(side)] {
				vanished = pair.Base(side)
				break
			}
		}
		if vanished != "" {
			if err := callback.ReportFatalError(
				"Cannot find base folder " + fserror.QuotePath(vanished) + ".",
			); err != nil {
				return nil, err
			}
			decisions[i] = decisionSkip
			continue
		}

		decisions[i] = decisionProcess
	}

	// Detect dependent base directories across processed pairs, including a
	// pair's own two sides.
	if !warnings.SuppressDependentFolders {
		var dependent []string
		var bases []string
		for i, pair := range comparison {
			if decisions[i] != decisionProcess {
				continue
			}
			bases = append(bases, pair.LeftBase, pair.RightBase)
		}
		for i := 0; i < len(bases); i++ {
			for j := i + 1; j < len(bases); j++ {
				if normalizeForComparison(bases[i]) != normalizeForComparison(bases[j]) && pathsDependent(bases[i], bases[j]) {
					dependent = append(dependent, fserror.QuotePath(bases[i])+" <-> "+fserror.QuotePath(bases[j]))
				}
			}
		}
		if len(dependent) > 0 {
			if err := callback.ReportWarning(
				"The following folder paths are dependent from each other:\n"+strings.Join(dependent, "\n"),
				&warnings.SuppressDependentFolders,
			); err != nil {
				return nil, err
			}
		}
	}

	// Warn when a pair differs so heavily that the user may have selected
	// the wrong folders.
	if !warnings.SuppressSignificantDifference {
		var suspicious []string
		for i, pair := range comparison {
			if decisions[i] != decisionProcess {
				continue
			}
			mismatched := statistics[i].MismatchedRows()
			if mismatched >= significantDifferenceRowThreshold &&
				float64(mismatched) > significantDifferenceRatio*float64(statistics[i].Rows) {
				suspicious = append(suspicious, fserror.QuotePath(pair.LeftBase)+" <-> "+fserror.QuotePath(pair.RightBase))
			}
		}
		if len(suspicious) > 0 {
			if err := callback.ReportWarning(
				"The following folders are significantly different. Make sure you have selected the correct folders for synchronization:\n"+strings.Join(suspicious, "\n"),
				&warnings.SuppressSignificantDifference,
			); err != nil {
				return nil, err
			}
		}
	}

	// Warn on insufficient free disk space.
	if !warnings.SuppressNotEnoughDiskSpace {
		var shortages []string
		for i, pair := range comparison {
			if decisions[i] != decisionProcess {
				continue
			}
			leftNeeded, rightNeeded := spaceRequired(pair.Hierarchy)
			check := func(base string, needed int64) {
				if needed <= 0 {
					return
				}
				available, err := filesystem.FreeDiskSpace(base)
				if err != nil {
					return
				}
				if available < uint64(needed) {
					shortages = append(shortages, fmt.Sprintf(
						"%s: required %s, available %s",
						fserror.QuotePath(base),
						humanize.IBytes(uint64(needed)),
						humanize.IBytes(available),
					))
				}
			}
			check(pair.LeftBase, leftNeeded)
			check(pair.RightBase, rightNeeded)
		}
		if len(shortages) > 0 {
			if err := callback.ReportWarning(
				"Not enough free disk space available in:\n"+strings.Join(shortages, "\n"),
				&warnings.SuppressNotEnoughDiskSpace,
			); err != nil {
				return nil, err
			}
		}
	}

	// Warn on unresolved conflicts.
	if !warnings.SuppressUnresolvedConflicts {
		var lines []string
		for i, pair := range comparison {
			if decisions[i] != decisionProcess || statistics[i].Conflicts == 0 {
				continue
			}
			lines = append(lines, fserror.QuotePath(pair.LeftBase)+" <-> "+fserror.QuotePath(pair.RightBase)+":")
			for _, conflict := range collectConflicts(pair.Hierarchy) {
				lines = append(lines, "    "+conflict)
			}
			if statistics[i].Conflicts > conflictPreviewLimit {
				lines = append(lines, fmt.Sprintf("    [%d more]", statistics[i].Conflicts-conflictPreviewLimit))
			}
		}
		if len(lines) > 0 {
			if err := callback.ReportWarning(
				"The following items have unresolved conflicts and will not be synchronized:\n"+strings.Join(lines, "\n"),
				&warnings.SuppressUnresolvedConflicts,
			); err != nil {
				return nil, err
			}
		}
	}

	// Create base directories that were absent at compare time but are
	// being written to. A base that appeared on its own in the meantime is
	// a race: the sync directions were computed against a different
	// reality.
	for i, pair := range comparison {
		if decisions[i] != decisionProcess {
			continue
		}
		for _, side := range []Side{SideLeft, SideRight} {
			if pair.BaseExisting(side) || statistics[i].WritesTo(side) == 0 {
				continue
			}
			err := filesystem.MakeDirectory(pair.Base(side), true)
			if err == nil {
				continue
			}
			if fserror.IsTargetExisting(err) {
				if cbErr := callback.ReportFatalError(
					"The base folder " + fserror.QuotePath(pair.Base(side)) + " was modified between comparison and synchronization.",
				); cbErr != nil {
					return nil, cbErr
				}
			} else {
				if cbErr := callback.ReportFatalError(err.Error()); cbErr != nil {
					return nil, cbErr
				}
			}
			decisions[i] = decisionSkip
			break
		}
	}

	// Done.
	return decisions, nil
}
