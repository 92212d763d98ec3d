package fserror

import (
	"strings"
	"testing"

	"github.com/pkg/errors"
)

// TestErrorClassification tests that typed errors survive wrapping.
func TestErrorClassification(t *testing.T) {
	var err error = NewTargetExisting("/tmp/x")
	if !IsTargetExisting(err) {
		t.Error("target existing error not recognized")
	}
	wrapped := errors.Wrap(err, "while renaming")
	if !IsTargetExisting(wrapped) {
		t.Error("wrapped target existing error not recognized")
	}
	if IsDifferentVolume(err) || IsFileLocked(err) || IsTargetPathMissing(err) {
		t.Error("target existing error misclassified")
	}
}

// TestFileLockedProcesses tests locking process enumeration rendering.
func TestFileLockedProcesses(t *testing.T) {
	err := NewFileLocked("/tmp/x", []string{"editor", "indexer"})
	if !strings.Contains(err.Error(), "editor, indexer") {
		t.Error("locking processes missing from message:", err.Error())
	}
	if !IsFileLocked(err) {
		t.Error("file locked error not recognized")
	}
}

// TestDetailTail tests that low-level detail renders on its own line.
func TestDetailTail(t *testing.T) {
	cause := errors.New("underlying detail")
	err := NewErrorWithCause("Cannot read file \"/tmp/x\".", cause)
	rendered := err.Error()
	lines := strings.SplitN(rendered, "\n", 2)
	if len(lines) != 2 {
		t.Fatal("detail tail missing:", rendered)
	}
	if lines[0] != "Cannot read file \"/tmp/x\"." || lines[1] != "underlying detail" {
		t.Error("unexpected rendering:", rendered)
	}
	if errors.Cause(errors.Wrap(err, "context")) != err {
		t.Error("cause chain broken")
	}
}

// TestAborted tests abort classification.
func TestAborted(t *testing.T) {
	if !IsAborted(ErrAborted) {
		t.Error("abort sentinel not recognized")
	}
	if !IsAborted(errors.Wrap(ErrAborted, "during copy")) {
		t.Error("wrapped abort not recognized")
	}
	if IsAborted(errors.New("other")) {
		t.Error("unrelated error classified as abort")
	}
}

// TestSystemCallFailed tests the low-level wrapper rendering.
func TestSystemCallFailed(t *testing.T) {
	cause := errors.New("operation not permitted")
	err := NewSystemCallFailed("statfs", cause)
	if !strings.Contains(err.Error(), "statfs") || !strings.Contains(err.Error(), "operation not permitted") {
		t.Error("unexpected rendering:", err.Error())
	}
}
