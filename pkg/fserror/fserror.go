// Package fserror defines the typed error taxonomy shared by the filesystem
// layer and the synchronization engine. Low-level operations surface these
// types; higher layers either translate them (for example by falling back to
// copy and delete on a cross-volume rename) or re-raise them.
package fserror

import (
	"errors"
	"fmt"
	"strings"
)

// QuotePath formats a path for inclusion in a user-facing message.
func QuotePath(path string) string {
	return "\"" + path + "\""
}

// Error is the generic error type for filesystem operations. It carries a
// primary message and an optional platform-specific detail tail that is
// rendered on a separate line.
type Error struct {
	// Message is the primary message.
	Message string
	// Detail is optional low-level detail.
	Detail string
	// cause is the underlying error, if any.
	cause error
}

// NewError creates a generic error with the specified message.
func NewError(message string) *Error {
	return &Error{Message: message}
}

// NewErrorWithCause creates a generic error with the specified message and an
// underlying cause whose text is rendered as the detail tail.
func NewErrorWithCause(message string, cause error) *Error {
	detail := ""
	if cause != nil {
		detail = cause.Error()
	}
	return &Error{Message: message, Detail: detail, cause: cause}
}

// Error implements error.Error.
func (e *Error) Error() string {
	if e.Detail != "" {
		return e.Message + "\n" + e.Detail
	}
	return e.Message
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

// TargetExistingError indicates that a create or rename operation found the
// destination already present.
type TargetExistingError struct {
	*Error
}

// NewTargetExisting creates a TargetExistingError for the specified path.
func NewTargetExisting(path string) *TargetExistingError {
	return &TargetExistingError{NewError(fmt.Sprintf(
		"Cannot write %s: the name already exists.", QuotePath(path),
	))}
}

// IsTargetExisting checks whether an error indicates an existing target.
func IsTargetExisting(err error) bool {
	var target *TargetExistingError
	return errors.As(err, &target)
}

// TargetPathMissingError indicates that the parent directory of a destination
// does not exist.
type TargetPathMissingError struct {
	*Error
}

// NewTargetPathMissing creates a TargetPathMissingError for the specified
// path.
func NewTargetPathMissing(path string) *TargetPathMissingError {
	return &TargetPathMissingError{NewError(fmt.Sprintf(
		"Cannot write %s: parent directory is missing.", QuotePath(path),
	))}
}

// IsTargetPathMissing checks whether an error indicates a missing parent
// path.
func IsTargetPathMissing(err error) bool {
	var target *TargetPathMissingError
	return errors.As(err, &target)
}

// DifferentVolumeError indicates a rename across filesystem boundaries.
// Callers are expected to fall back to copy and delete.
type DifferentVolumeError struct {
	*Error
}

// NewDifferentVolume creates a DifferentVolumeError for the specified rename.
func NewDifferentVolume(oldPath, newPath string) *DifferentVolumeError {
	return &DifferentVolumeError{NewError(fmt.Sprintf(
		"Cannot move %s to %s: paths are on different volumes.",
		QuotePath(oldPath), QuotePath(newPath),
	))}
}

// IsDifferentVolume checks whether an error indicates a cross-volume rename.
func IsDifferentVolume(err error) bool {
	var target *DifferentVolumeError
	return errors.As(err, &target)
}

// FileLockedError indicates that an open-for-write failed because another
// process holds a conflicting lock. When obtainable, the names of the locking
// processes are enumerated.
type FileLockedError struct {
	*Error
	// Processes enumerates the names of locking processes, if known.
	Processes []string
}

// NewFileLocked creates a FileLockedError for the specified path.
func NewFileLocked(path string, processes []string) *FileLockedError {
	message := fmt.Sprintf("Cannot access %s: the file is locked by another process.", QuotePath(path))
	if len(processes) > 0 {
		message += "\nLocked by: " + strings.Join(processes, ", ")
	}
	return &FileLockedError{Error: NewError(message), Processes: processes}
}

// IsFileLocked checks whether an error indicates a locked file.
func IsFileLocked(err error) bool {
	var target *FileLockedError
	return errors.As(err, &target)
}

// DataVerificationError indicates that a post-copy byte comparison
// mismatched.
type DataVerificationError struct {
	*Error
}

// NewDataVerification creates a DataVerificationError for the specified
// paths.
func NewDataVerification(sourcePath, targetPath string) *DataVerificationError {
	return &DataVerificationError{NewError(fmt.Sprintf(
		"Data verification failed: %s and %s have different content.",
		QuotePath(sourcePath), QuotePath(targetPath),
	))}
}

// IsDataVerification checks whether an error indicates a verification
// mismatch.
func IsDataVerification(err error) bool {
	var target *DataVerificationError
	return errors.As(err, &target)
}

// ErrUnexpectedEndOfStream indicates that a serialized blob was truncated.
var ErrUnexpectedEndOfStream = errors.New("unexpected end of stream")

// SystemCallFailedError is the low-level wrapper for failed system calls. It
// carries the function name and the raw OS error, composed into the display
// string.
type SystemCallFailedError struct {
	// FunctionName is the name of the failed function.
	FunctionName string
	// Code is the raw OS error.
	Code error
}

// NewSystemCallFailed creates a SystemCallFailedError for the specified
// function and OS error.
func NewSystemCallFailed(functionName string, code error) *SystemCallFailedError {
	return &SystemCallFailedError{FunctionName: functionName, Code: code}
}

// Error implements error.Error.
func (e *SystemCallFailedError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.FunctionName, e.Code)
}

// Unwrap returns the raw OS error.
func (e *SystemCallFailedError) Unwrap() error {
	return e.Code
}

// ErrAborted indicates that an operation was cancelled by the caller through
// a callback. It is propagated as a value and unwinds the current pass.
var ErrAborted = errors.New("operation aborted")

// IsAborted checks whether an error indicates cancellation.
func IsAborted(err error) bool {
	return errors.Is(err, ErrAborted)
}
