package monitor

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/driftsync-io/driftsync/pkg/filesystem/watching"
)

// TestWaitForMissingDirs tests that waiting completes once all directories
// exist.
func TestWaitForMissingDirs(t *testing.T) {
	directory := t.TempDir()
	pending := filepath.Join(directory, "pending")

	// Create the directory shortly after waiting begins.
	go func() {
		time.Sleep(50 * time.Millisecond)
		os.Mkdir(pending, 0700)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := WaitForMissingDirs(ctx, []string{directory, pending}, 10*time.Millisecond, nil); err != nil {
		t.Fatal("waiting failed:", err)
	}
}

// TestRunDebounce tests the debounce contract: a burst of changes yields
// exactly one execution once the configured idle window passes quietly.
func TestRunDebounce(t *testing.T) {
	directory := t.TempDir()

	var mutex sync.Mutex
	var executions []watching.Change
	executed := make(chan struct{}, 16)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, []string{directory}, Config{
			Delay:         150 * time.Millisecond,
			CheckInterval: 10 * time.Millisecond,
		}, Callbacks{
			Execute: func(last watching.Change) error {
				mutex.Lock()
				executions = append(executions, last)
				mutex.Unlock()
				executed <- struct{}{}
				return nil
			},
		}, nil)
	}()

	// The initial appearance of the directory triggers a first execution
	// after the delay.
	select {
	case <-executed:
	case <-time.After(5 * time.Second):
		t.Fatal("initial execution missing")
	}

	// Produce a burst of changes with gaps shorter than the delay; the
	// timer must keep resetting and fire exactly once afterwards.
	path := filepath.Join(directory, "busy.txt")
	for i := 0; i < 3; i++ {
		if err := os.WriteFile(path, []byte{byte(i)}, 0600); err != nil {
			t.Fatal("unable to write file:", err)
		}
		time.Sleep(50 * time.Millisecond)
	}
	select {
	case <-executed:
	case <-time.After(5 * time.Second):
		t.Fatal("post-change execution missing")
	}

	// No further executions may trail in.
	select {
	case <-executed:
		t.Error("command executed more than once per quiescent batch")
	case <-time.After(400 * time.Millisecond):
	}

	// Shut down.
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("monitor did not terminate")
	}

	mutex.Lock()
	defer mutex.Unlock()
	if len(executions) != 2 {
		t.Error("unexpected execution count:", len(executions))
	}
	if len(executions) == 2 && executions[1].Path != path {
		t.Error("unexpected last change:", executions[1])
	}
}

// TestIgnoredPatterns tests glob-based change filtering.
func TestIgnoredPatterns(t *testing.T) {
	dirs := []string{filepath.Join("/", "base")}
	patterns := []string{"logs/**", "*.swp"}
	cases := []struct {
		path     string
		expected bool
	}{
		{filepath.Join("/", "base", "logs", "x", "y.log"), true},
		{filepath.Join("/", "base", "edit.swp"), true},
		{filepath.Join("/", "base", "data.txt"), false},
	}
	for _, testCase := range cases {
		change := watching.Change{Action: watching.ActionUpdate, Path: testCase.path}
		if result := ignored(change, dirs, patterns); result != testCase.expected {
			t.Errorf("ignored(%q) = %v, expected %v", testCase.path, result, testCase.expected)
		}
	}
}
