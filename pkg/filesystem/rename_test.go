package filesystem

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/driftsync-io/driftsync/pkg/fserror"
)

// TestRename tests basic rename behavior and failure classification.
func TestRename(t *testing.T) {
	directory := t.TempDir()
	source := filepath.Join(directory, "source")
	target := filepath.Join(directory, "target")
	if err := os.WriteFile(source, []byte("content"), 0600); err != nil {
		t.Fatal("unable to create source:", err)
	}

	// Basic rename.
	if err := Rename(source, target); err != nil {
		t.Fatal("unable to rename:", err)
	}
	if AnythingExists(source) {
		t.Error("source still exists after rename")
	}
	if !FileExists(target) {
		t.Error("target missing after rename")
	}

	// Rename is its own inverse.
	if err := Rename(target, source); err != nil {
		t.Fatal("unable to rename back:", err)
	}
	if !FileExists(source) {
		t.Error("source missing after inverse rename")
	}

	// An occupied destination is classified.
	if err := os.WriteFile(target, []byte("occupied"), 0600); err != nil {
		t.Fatal("unable to occupy target:", err)
	}
	if err := Rename(source, target); !fserror.IsTargetExisting(err) {
		t.Error("expected TargetExistingError, got:", err)
	}

	// A missing destination parent is classified.
	if err := Rename(source, filepath.Join(directory, "missing", "target")); !fserror.IsTargetPathMissing(err) {
		t.Error("expected TargetPathMissingError, got:", err)
	}
}

// TestRenameDisplacingClash tests the clash workaround when the
// destination name is occupied.
func TestRenameDisplacingClash(t *testing.T) {
	directory := t.TempDir()
	source := filepath.Join(directory, "item.new")
	clash := filepath.Join(directory, "item")
	if err := os.WriteFile(source, []byte("replacement"), 0600); err != nil {
		t.Fatal("unable to create source:", err)
	}
	if err := os.WriteFile(clash, []byte("original"), 0600); err != nil {
		t.Fatal("unable to create clash:", err)
	}

	// A plain rename refuses.
	if err := Rename(source, clash); !fserror.IsTargetExisting(err) {
		t.Fatal("expected TargetExistingError, got:", err)
	}

	// The displacing rename never clobbers a genuinely occupied name.
	if err := RenameDisplacingClash(source, clash); !fserror.IsTargetExisting(err) {
		t.Fatal("expected TargetExistingError, got:", err)
	}
	if content, readErr := os.ReadFile(clash); readErr != nil {
		t.Fatal("unable to read target:", readErr)
	} else if string(content) != "original" {
		t.Error("unexpected target content:", string(content))
	}
	if content, readErr := os.ReadFile(source); readErr != nil {
		t.Fatal("unable to read source:", readErr)
	} else if string(content) != "replacement" {
		t.Error("unexpected source content:", string(content))
	}
}
