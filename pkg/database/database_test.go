package database

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/driftsync-io/driftsync/pkg/fserror"
)

// TestSaveLoadRoundTrip tests database persistence.
func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	state := NewPairState()
	state.RunID = "sync_0000000000000000000000000000000000000000000"
	state.SavedAt = 1700000000
	state.Entries["sub/a.txt"] = EntryState{
		Size:    42,
		ModTime: 1600000000,
		LeftID:  FileID{Valid: true, Device: 1, Index: 2},
		RightID: FileID{Valid: true, Device: 3, Index: 4},
	}

	if err := Save(path, state); err != nil {
		t.Fatal("unable to save state:", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal("unable to load state:", err)
	}
	if loaded.InstanceID != state.InstanceID || loaded.RunID != state.RunID || loaded.SavedAt != state.SavedAt {
		t.Error("state header mismatch")
	}
	entry, ok := loaded.Entries["sub/a.txt"]
	if !ok {
		t.Fatal("entry missing after round trip")
	}
	if entry.Size != 42 || entry.ModTime != 1600000000 || !entry.LeftID.Valid || entry.RightID.Index != 4 {
		t.Error("entry state mismatch:", entry)
	}
}

// TestLoadTruncated tests that a truncated blob surfaces the stream error.
func TestLoadTruncated(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	state := NewPairState()
	if err := Save(path, state); err != nil {
		t.Fatal("unable to save state:", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal("unable to read blob:", err)
	}

	// Truncate in the middle of the payload.
	if err := os.WriteFile(path, data[:len(data)-5], 0600); err != nil {
		t.Fatal("unable to truncate blob:", err)
	}
	if _, err := Load(path); !errors.Is(err, fserror.ErrUnexpectedEndOfStream) {
		t.Error("expected end-of-stream error, got:", err)
	}

	// Truncate inside the header.
	if err := os.WriteFile(path, data[:6], 0600); err != nil {
		t.Fatal("unable to truncate blob:", err)
	}
	if _, err := Load(path); !errors.Is(err, fserror.ErrUnexpectedEndOfStream) {
		t.Error("expected end-of-stream error, got:", err)
	}
}

// TestLoadCorrupted tests that payload corruption is detected.
func TestLoadCorrupted(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	if err := Save(path, NewPairState()); err != nil {
		t.Fatal("unable to save state:", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal("unable to read blob:", err)
	}
	data[len(data)-1] ^= 0xff
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatal("unable to corrupt blob:", err)
	}
	if _, err := Load(path); !errors.Is(err, fserror.ErrUnexpectedEndOfStream) {
		t.Error("expected end-of-stream error, got:", err)
	}
}

// TestLoadMissing tests that a missing database is reported as such.
func TestLoadMissing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), FileName)); !os.IsNotExist(err) {
		t.Error("expected not-exist error, got:", err)
	}
}
