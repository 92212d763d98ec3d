// Package monitor couples directory watching with an external command
// runner: it waits for all watched base directories to exist, coalesces
// change notifications with a configurable debounce window, and fires the
// command at most once per quiescent batch.
package monitor

import (
	"context"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/driftsync-io/driftsync/pkg/filesystem"
	"github.com/driftsync-io/driftsync/pkg/filesystem/watching"
	"github.com/driftsync-io/driftsync/pkg/logging"
)

const (
	// DefaultCheckInterval is the default period of the base directory
	// existence probe. The OS watcher alone is unreliable for base
	// directory removal, so the probe runs alongside it.
	DefaultCheckInterval = time.Second
)

// Config carries the monitor configuration.
type Config struct {
	// Delay is the debounce window: the command fires once no change has
	// arrived for this long. Every new change resets the window.
	Delay time.Duration
	// CheckInterval overrides the existence probe period. It defaults to
	// DefaultCheckInterval and exists for testing.
	CheckInterval time.Duration
	// IgnorePatterns are glob patterns (with ** support) matched against
	// paths relative to each watched directory; matching changes do not
	// trigger the command.
	IgnorePatterns []string
}

// Callbacks carries the monitor's outbound calls.
type Callbacks struct {
	// Execute runs the external command for a quiescent batch, receiving
	// the last observed change.
	Execute func(last watching.Change) error
	// OnRefresh is an idle suspension point, invoked once per probe while
	// waiting for missing directories and, while watching, on each probe
	// tick that neither observes a change nor executes the command.
	OnRefresh func() error
}

// Run drives the monitor state machine until the context is cancelled or a
// callback fails: it alternates between waiting for all directories to
// exist and actively watching them, returning to the waiting state whenever
// a directory goes missing.
func Run(ctx context.Context, dirs []string, config Config, callbacks Callbacks, logger *logging.Logger) error {
	checkInterval := config.CheckInterval
	if checkInterval <= 0 {
		checkInterval = DefaultCheckInterval
	}

	for {
		// Wait until every directory exists.
		if err := WaitForMissingDirs(ctx, dirs, checkInterval, callbacks.OnRefresh); err != nil {
			return err
		}
		logger.Infof("All watched directories available, monitoring %d folder(s)", len(dirs))

		// Watch until a directory disappears.
		if err := watchActive(ctx, dirs, config, checkInterval, callbacks, logger); err != nil {
			return err
		}
		logger.Infof("A watched directory became unavailable, waiting")
	}
}

// WaitForMissingDirs polls once per interval until every specified
// directory exists, invoking the refresh callback between probes.
func WaitForMissingDirs(ctx context.Context, dirs []string, interval time.Duration, onRefresh func() error) error {
	for {
		allExist := true
		for _, dir := range dirs {
			if !filesystem.DirExists(dir) {
				allExist = false
				break
			}
		}
		if allExist {
			return nil
		}
		if onRefresh != nil {
			if err := onRefresh(); err != nil {
				return err
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

// ignored checks a change against the configured ignore patterns.
func ignored(change watching.Change, dirs []string, patterns []string) bool {
	for _, pattern := range patterns {
		for _, dir := range dirs {
			relative, err := filepath.Rel(dir, change.Path)
			if err != nil {
				continue
			}
			if matched, err := doublestar.Match(pattern, filepath.ToSlash(relative)); err == nil && matched {
				return true
			}
		}
	}
	return false
}

// watchActive implements the active state: it installs one watcher per
// directory and loops on the probe tick, debouncing changes and firing the
// command once per quiescent window. It returns nil when a directory goes
// missing, handing control back to the waiting state.
func watchActive(ctx context.Context, dirs []string, config Config, checkInterval time.Duration, callbacks Callbacks, logger *logging.Logger) error {
	// Install the watchers. A directory that vanished since the existence
	// check sends us straight back to waiting.
	watchers := make([]*watching.DirWatcher, 0, len(dirs))
	terminateAll := func() {
		for _, w := range watchers {
			w.Terminate()
		}
	}
	for _, dir := range dirs {
		w, err := watching.NewDirWatcher(dir, logger)
		if err != nil {
			terminateAll()
			logger.Warnf("Unable to watch '%s': %s", dir, err.Error())
			return nil
		}
		watchers = append(watchers, w)
	}
	defer terminateAll()

	// The appearance of the directories counts as the initial change: a
	// first execution fires once the debounce window passes quietly.
	nextExecTime := time.Now().Add(config.Delay)
	lastChange := watching.Change{Action: watching.ActionCreate, Path: dirs[0]}

	ticker := time.NewTicker(checkInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		// Probe base directory existence; the watcher alone cannot be
		// trusted to notice removal.
		for _, dir := range dirs {
			if !filesystem.DirExists(dir) {
				return nil
			}
		}

		// Drain the change buffers. Every observed change resets the
		// debounce window.
		sawChange := false
		for _, w := range watchers {
			changes, err := w.GetChanges()
			if err != nil {
				return nil
			}
			for _, change := range changes {
				if ignored(change, dirs, config.IgnorePatterns) {
					continue
				}
				lastChange = change
				sawChange = true
			}
		}
		if sawChange {
			nextExecTime = time.Now().Add(config.Delay)
			continue
		}

		// An idle tick with an armed timer past its deadline executes the
		// command exactly once for this batch.
		if !nextExecTime.IsZero() && !time.Now().Before(nextExecTime) {
			if err := callbacks.Execute(lastChange); err != nil {
				return err
			}
			nextExecTime = time.Time{}
			continue
		}

		if callbacks.OnRefresh != nil {
			if err := callbacks.OnRefresh(); err != nil {
				return err
			}
		}
	}
}
