package sync

// Phase identifies the current processing phase reported to the callback.
type Phase int

const (
	// PhaseNone is reported outside of any processing.
	PhaseNone Phase = iota
	// PhaseScanning is reported during pre-flight checks.
	PhaseScanning
	// PhaseSynchronizing is reported while folder pairs are processed.
	PhaseSynchronizing
)

// String provides a human-readable representation of a phase.
func (p Phase) String() string {
	switch p {
	case PhaseScanning:
		return "scanning"
	case PhaseSynchronizing:
		return "synchronizing"
	default:
		return "none"
	}
}

// ErrorResponse is the caller's disposition for a reported per-item error.
type ErrorResponse int

const (
	// ErrorRetry restarts the failed operation.
	ErrorRetry ErrorResponse = iota
	// ErrorIgnore skips the affected item and continues the pass.
	ErrorIgnore
)

// ProcessCallback receives progress and error reports during
// synchronization. Every method may return an error (typically
// fserror.ErrAborted) which unwinds the current operation cleanly; the
// engine itself never swallows such an abort except during best-effort
// cleanup.
//
// All methods are invoked synchronously from the goroutine running
// Synchronize, in observation order of the underlying events.
type ProcessCallback interface {
	// SetPhase announces a phase change.
	SetPhase(phase Phase) error
	// UpdateTotalData adjusts the expected totals by the specified deltas.
	UpdateTotalData(itemsDelta, bytesDelta int64) error
	// UpdateProcessedData adjusts the processed counters by the specified
	// deltas.
	UpdateProcessedData(itemsDelta, bytesDelta int64) error
	// ReportStatus reports transient status text.
	ReportStatus(text string) error
	// ReportInfo reports durable informational text.
	ReportInfo(text string) error
	// ReportWarning reports a non-fatal condition. The suppress flag is
	// owned by the caller and persists across runs: when already set, the
	// engine does not call ReportWarning at all, and the callee may set it
	// to suppress future reports.
	ReportWarning(text string, suppress *bool) error
	// ReportError reports a per-item failure and returns whether to retry
	// the operation or ignore the item. retryCount starts at zero.
	ReportError(text string, retryCount int) (ErrorResponse, error)
	// ReportFatalError reports a failure that aborts processing of the
	// current folder pair.
	ReportFatalError(text string) error
	// RequestUIRefresh offers the callee an idle suspension point.
	RequestUIRefresh() error
	// ForceUIRefresh demands a redraw before a long blocking operation.
	ForceUIRefresh() error
}

// OptionalWarnings carries the suppression flags for optional warnings. The
// callee reads and writes these to silence repeated warnings across runs.
type OptionalWarnings struct {
	// SuppressDependentFolders silences the overlapping base directory
	// warning.
	SuppressDependentFolders bool
	// SuppressSignificantDifference silences the large difference warning.
	SuppressSignificantDifference bool
	// SuppressNotEnoughDiskSpace silences the free space warning.
	SuppressNotEnoughDiskSpace bool
	// SuppressUnresolvedConflicts silences the unresolved conflict warning.
	SuppressUnresolvedConflicts bool
	// SuppressRecyclerMissing silences the recycler availability warning.
	SuppressRecyclerMissing bool
}
