package watching

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/driftsync-io/driftsync/pkg/filesystem"
)

const (
	// eventSettleTime is the time allowed for notifications to arrive.
	eventSettleTime = 500 * time.Millisecond
)

// collectChanges polls the watcher until the deadline, accumulating
// changes.
func collectChanges(t *testing.T, watcher *DirWatcher, deadline time.Duration) []Change {
	t.Helper()
	var collected []Change
	expire := time.After(deadline)
	for {
		select {
		case <-expire:
			return collected
		default:
		}
		changes, err := watcher.GetChanges()
		if err != nil {
			return collected
		}
		collected = append(collected, changes...)
		time.Sleep(10 * time.Millisecond)
	}
}

// TestWatchCycle tests create, update, and delete notification for a file.
// It's not an exhaustive exercise of the watching code, more of a litmus
// test.
func TestWatchCycle(t *testing.T) {
	directory := t.TempDir()
	watcher, err := NewDirWatcher(directory, nil)
	if err != nil {
		t.Fatal("unable to create watcher:", err)
	}
	defer watcher.Terminate()

	// Create a file.
	path := filepath.Join(directory, "watched.txt")
	if err := os.WriteFile(path, []byte("x"), 0600); err != nil {
		t.Fatal("unable to create file:", err)
	}
	changes := collectChanges(t, watcher, eventSettleTime)
	if !containsChange(changes, ActionCreate, path) {
		t.Error("create notification missing:", changes)
	}

	// Update it.
	if err := os.WriteFile(path, []byte("xy"), 0600); err != nil {
		t.Fatal("unable to update file:", err)
	}
	changes = collectChanges(t, watcher, eventSettleTime)
	if !containsChange(changes, ActionUpdate, path) {
		t.Error("update notification missing:", changes)
	}

	// Remove it.
	if err := os.Remove(path); err != nil {
		t.Fatal("unable to remove file:", err)
	}
	changes = collectChanges(t, watcher, eventSettleTime)
	if !containsChange(changes, ActionDelete, path) {
		t.Error("delete notification missing:", changes)
	}
}

// TestWatchExtendsIntoNewDirectories tests that a freshly created
// subdirectory is covered.
func TestWatchExtendsIntoNewDirectories(t *testing.T) {
	directory := t.TempDir()
	watcher, err := NewDirWatcher(directory, nil)
	if err != nil {
		t.Fatal("unable to create watcher:", err)
	}
	defer watcher.Terminate()

	// Create a subdirectory and give the watcher a moment to extend.
	subdir := filepath.Join(directory, "fresh")
	if err := os.Mkdir(subdir, 0700); err != nil {
		t.Fatal("unable to create directory:", err)
	}
	collectChanges(t, watcher, eventSettleTime)

	// A file inside the new subdirectory must notify.
	path := filepath.Join(subdir, "inner.txt")
	if err := os.WriteFile(path, []byte("x"), 0600); err != nil {
		t.Fatal("unable to create file:", err)
	}
	changes := collectChanges(t, watcher, eventSettleTime)
	if !containsChange(changes, ActionCreate, path) {
		t.Error("notification from new subdirectory missing:", changes)
	}
}

// TestWatchIgnoresArtifacts tests that engine artifacts never surface.
func TestWatchIgnoresArtifacts(t *testing.T) {
	directory := t.TempDir()
	watcher, err := NewDirWatcher(directory, nil)
	if err != nil {
		t.Fatal("unable to create watcher:", err)
	}
	defer watcher.Terminate()

	names := []string{
		"scratch" + filesystem.TemporaryExtension,
		"sync" + filesystem.DatabaseExtension,
		"sync" + filesystem.LockExtension,
		".DS_Store",
	}
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(directory, name), []byte("x"), 0600); err != nil {
			t.Fatal("unable to create artifact:", err)
		}
	}
	changes := collectChanges(t, watcher, eventSettleTime)
	if len(changes) != 0 {
		t.Error("artifact notifications surfaced:", changes)
	}
}

// TestIsIgnoredPath tests artifact path classification.
func TestIsIgnoredPath(t *testing.T) {
	cases := []struct {
		path     string
		expected bool
	}{
		{filepath.Join("base", "file.txt"), false},
		{filepath.Join("base", "file.txt.ffs_tmp"), true},
		{filepath.Join("base", "RecycleBin.ffs_tmp", "deep", "file.txt"), true},
		{filepath.Join("base", "sync.ffs_db"), true},
		{filepath.Join("base", "sync.ffs_lock"), true},
		{filepath.Join("base", ".DS_Store"), true},
		{filepath.Join("base", "ffs_tmp"), false},
	}
	for _, testCase := range cases {
		if ignored := IsIgnoredPath(testCase.path); ignored != testCase.expected {
			t.Errorf("IsIgnoredPath(%q) = %v, expected %v", testCase.path, ignored, testCase.expected)
		}
	}
}

// containsChange checks a change list for a specific entry.
func containsChange(changes []Change, action Action, path string) bool {
	for _, change := range changes {
		if change.Action == action && change.Path == path {
			return true
		}
	}
	return false
}
