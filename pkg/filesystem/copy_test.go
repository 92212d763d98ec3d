package filesystem

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/driftsync-io/driftsync/pkg/fserror"
)

// TestCopyFileTransactional tests the transactional copy contract: content
// and modification time carry over, attributes are returned, and no scratch
// file survives.
func TestCopyFileTransactional(t *testing.T) {
	directory := t.TempDir()
	source := filepath.Join(directory, "source.bin")
	target := filepath.Join(directory, "target.bin")
	content := bytes.Repeat([]byte("transactional"), 1000)
	if err := os.WriteFile(source, content, 0600); err != nil {
		t.Fatal("unable to create source file:", err)
	}
	modTime := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := os.Chtimes(source, modTime, modTime); err != nil {
		t.Fatal("unable to set source time:", err)
	}

	// Copy with progress tracking.
	var progressed uint64
	attributes, err := CopyFile(source, target, false, true, nil, func(delta uint64) error {
		progressed += delta
		return nil
	})
	if err != nil {
		t.Fatal("unable to copy file:", err)
	}

	// Validate the target.
	copied, err := os.ReadFile(target)
	if err != nil {
		t.Fatal("unable to read target:", err)
	}
	if !bytes.Equal(copied, content) {
		t.Error("target content differs from source")
	}
	info, err := os.Stat(target)
	if err != nil {
		t.Fatal("unable to stat target:", err)
	}
	if !info.ModTime().Truncate(time.Second).Equal(modTime) {
		t.Error("target modification time differs:", info.ModTime())
	}

	// Validate the returned attributes.
	if attributes.Size != uint64(len(content)) {
		t.Error("unexpected size in attributes:", attributes.Size)
	}
	if attributes.ModTime != modTime.Unix() {
		t.Error("unexpected modification time in attributes:", attributes.ModTime)
	}
	if attributes.ModTime != info.ModTime().Unix() {
		t.Error("attributes disagree with on-disk modification time")
	}
	if progressed != uint64(len(content)) {
		t.Error("unexpected progress total:", progressed)
	}

	// No scratch file may survive.
	entries, err := os.ReadDir(directory)
	if err != nil {
		t.Fatal("unable to enumerate directory:", err)
	}
	for _, entry := range entries {
		if strings.Contains(entry.Name(), TemporaryExtension) {
			t.Error("scratch file left behind:", entry.Name())
		}
	}
}

// TestCopyFileAborted tests that an abort raised through the progress
// callback leaves no target behind.
func TestCopyFileAborted(t *testing.T) {
	directory := t.TempDir()
	source := filepath.Join(directory, "source.bin")
	target := filepath.Join(directory, "target.bin")
	if err := os.WriteFile(source, []byte("abort me"), 0600); err != nil {
		t.Fatal("unable to create source file:", err)
	}

	_, err := CopyFile(source, target, false, true, nil, func(delta uint64) error {
		return fserror.ErrAborted
	})
	if !fserror.IsAborted(err) {
		t.Fatal("expected abort, got:", err)
	}
	if AnythingExists(target) {
		t.Error("target exists after aborted copy")
	}
	if AnythingExists(target + TemporaryExtension) {
		t.Error("scratch exists after aborted copy")
	}
}

// TestCopyFileOverwriteCallback tests that the pre-delete callback fires
// before the target is replaced.
func TestCopyFileOverwriteCallback(t *testing.T) {
	directory := t.TempDir()
	source := filepath.Join(directory, "source.bin")
	target := filepath.Join(directory, "target.bin")
	if err := os.WriteFile(source, []byte("fresh"), 0600); err != nil {
		t.Fatal("unable to create source file:", err)
	}
	if err := os.WriteFile(target, []byte("stale"), 0600); err != nil {
		t.Fatal("unable to create target file:", err)
	}

	fired := false
	onBeforeDeleteTarget := func() error {
		fired = true
		// The callback owns target disposal.
		_, err := RemoveFile(target)
		return err
	}
	if _, err := CopyFile(source, target, false, true, onBeforeDeleteTarget, nil); err != nil {
		t.Fatal("unable to copy file:", err)
	}
	if !fired {
		t.Error("pre-delete callback did not fire")
	}
	if content, err := os.ReadFile(target); err != nil {
		t.Fatal("unable to read target:", err)
	} else if string(content) != "fresh" {
		t.Error("unexpected target content:", string(content))
	}
}

// TestCompareFileContent tests the verification comparison.
func TestCompareFileContent(t *testing.T) {
	directory := t.TempDir()
	first := filepath.Join(directory, "first")
	second := filepath.Join(directory, "second")
	third := filepath.Join(directory, "third")
	if err := os.WriteFile(first, []byte("identical"), 0600); err != nil {
		t.Fatal("unable to create file:", err)
	}
	if err := os.WriteFile(second, []byte("identical"), 0600); err != nil {
		t.Fatal("unable to create file:", err)
	}
	if err := os.WriteFile(third, []byte("different!"), 0600); err != nil {
		t.Fatal("unable to create file:", err)
	}

	if equal, err := CompareFileContent(first, second, nil); err != nil {
		t.Fatal("unable to compare files:", err)
	} else if !equal {
		t.Error("identical files compared unequal")
	}
	if equal, err := CompareFileContent(first, third, nil); err != nil {
		t.Fatal("unable to compare files:", err)
	} else if equal {
		t.Error("different files compared equal")
	}
}
