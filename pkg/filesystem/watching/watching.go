// Package watching provides recursive directory change monitoring. The OS
// notification primitive is non-recursive, so the watcher explicitly
// enumerates subdirectories and watches each, extending coverage as new
// directories appear.
package watching

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/driftsync-io/driftsync/pkg/filesystem"
	"github.com/driftsync-io/driftsync/pkg/logging"
)

// Action classifies a filesystem change.
type Action int

const (
	// ActionCreate indicates a newly appeared entry.
	ActionCreate Action = iota
	// ActionUpdate indicates modified content or attributes.
	ActionUpdate
	// ActionDelete indicates a removed entry. Renames surface as a delete
	// of the old path plus a create of the new path, never as an update.
	ActionDelete
)

// String provides a human-readable representation of an action.
func (a Action) String() string {
	switch a {
	case ActionCreate:
		return "create"
	case ActionUpdate:
		return "update"
	case ActionDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Change is a single coalesced change notification.
type Change struct {
	// Action is the change classification.
	Action Action
	// Path is the affected absolute path.
	Path string
}

// ErrWatchTerminated indicates that the watcher has been terminated.
var ErrWatchTerminated = errors.New("watch terminated")

// IsIgnoredPath indicates whether or not a path refers to an engine
// artifact or platform metadata that never constitutes a user change: any
// path element carrying the engine's temporary, database, or lock
// extension, and Finder metadata files.
func IsIgnoredPath(path string) bool {
	for _, element := range strings.Split(path, string(filepath.Separator)) {
		if strings.HasSuffix(element, filesystem.TemporaryExtension) ||
			strings.HasSuffix(element, filesystem.DatabaseExtension) ||
			strings.HasSuffix(element, filesystem.LockExtension) ||
			element == ".DS_Store" {
			return true
		}
	}
	return false
}

// DirWatcher monitors one directory tree. A worker goroutine collects
// notifications into a buffer; the owning goroutine drains the buffer with
// GetChanges. Only the buffer is shared, and it is protected by a mutex
// held just long enough to swap the accumulated batch out.
type DirWatcher struct {
	// root is the watched directory.
	root string
	// watcher is the underlying notification source.
	watcher *fsnotify.Watcher
	// logger is the watcher's logger.
	logger *logging.Logger

	// mutex protects the fields below.
	mutex sync.Mutex
	// pending is the accumulated change batch.
	pending []Change
	// failure is the terminal watch failure, if any.
	failure error
	// terminated indicates that the watcher has shut down.
	terminated bool
}

// NewDirWatcher starts watching the specified directory tree.
func NewDirWatcher(root string, logger *logging.Logger) (*DirWatcher, error) {
	notifier, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "unable to create watcher")
	}
	w := &DirWatcher{
		root:    root,
		watcher: notifier,
		logger:  logger,
	}

	// Cover the existing tree before events start flowing.
	if err := w.watchRecursively(root); err != nil {
		notifier.Close()
		return nil, err
	}

	// Start the collection worker.
	go w.run()

	// Success.
	return w, nil
}

// watchRecursively registers the specified directory and all directories
// beneath it. Symlinked directories are not descended into; their target
// trees belong to other watch roots.
func (w *DirWatcher) watchRecursively(dir string) error {
	if err := w.watcher.Add(dir); err != nil {
		return errors.Wrapf(err, "unable to watch %s", dir)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return errors.Wrapf(err, "unable to enumerate %s", dir)
	}
	for _, entry := range entries {
		if !entry.IsDir() || entry.Type()&os.ModeSymlink != 0 {
			continue
		}
		child := filepath.Join(dir, entry.Name())
		if IsIgnoredPath(child) {
			continue
		}
		if err := w.watchRecursively(child); err != nil {
			// A subtree that vanished mid-enumeration resolves itself
			// through a pending delete notification.
			w.logger.Debugf("Unable to extend watch to '%s': %s", child, err.Error())
		}
	}
	return nil
}

// run collects notifications until the underlying source closes.
func (w *DirWatcher) run() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.handleFailure(err)
		}
	}
}

// handleEvent converts a raw notification into change entries.
func (w *DirWatcher) handleEvent(event fsnotify.Event) {
	path := event.Name
	if IsIgnoredPath(path) {
		return
	}

	// Removal of the watch root means the device or directory went away;
	// synthesize a single delete of the root so the monitor loop treats the
	// base directory as missing.
	if (event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)) && path == w.root {
		w.handleFailure(errors.New("watch root removed"))
		return
	}

	switch {
	case event.Has(fsnotify.Create):
		w.append(Change{Action: ActionCreate, Path: path})
		// A freshly created directory extends the watch; entries that
		// appeared before the watch was in place are reported on the spot.
		if info, err := os.Lstat(path); err == nil && info.IsDir() && info.Mode()&os.ModeSymlink == 0 {
			if err := w.watchRecursively(path); err != nil {
				w.logger.Debugf("Unable to extend watch to '%s': %s", path, err.Error())
			}
		}
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		// A rename surfaces as a delete of the old path; the new path
		// arrives separately as a create.
		w.append(Change{Action: ActionDelete, Path: path})
	case event.Has(fsnotify.Write), event.Has(fsnotify.Chmod):
		// Directory modification times change whenever children come and
		// go; the child notifications already carry that signal.
		if info, err := os.Lstat(path); err == nil && info.IsDir() {
			return
		}
		w.append(Change{Action: ActionUpdate, Path: path})
	}
}

// handleFailure records a terminal failure, releases the notification
// handle promptly, and synthesizes the root deletion entry.
func (w *DirWatcher) handleFailure(err error) {
	w.mutex.Lock()
	alreadyFailed := w.failure != nil
	if !alreadyFailed {
		w.failure = err
		w.pending = append(w.pending, Change{Action: ActionDelete, Path: w.root})
	}
	w.mutex.Unlock()
	if !alreadyFailed {
		w.watcher.Close()
	}
}

// append adds a change to the pending batch, coalescing immediate
// duplicates.
func (w *DirWatcher) append(change Change) {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	if n := len(w.pending); n > 0 && w.pending[n-1] == change {
		return
	}
	w.pending = append(w.pending, change)
}

// GetChanges drains and returns the accumulated change batch. After a
// terminal watch failure, the final batch ends with the synthesized root
// deletion; subsequent calls return ErrWatchTerminated.
func (w *DirWatcher) GetChanges() ([]Change, error) {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	if len(w.pending) == 0 && (w.failure != nil || w.terminated) {
		return nil, ErrWatchTerminated
	}
	changes := w.pending
	w.pending = nil
	return changes, nil
}

// Root returns the watched directory.
func (w *DirWatcher) Root() string {
	return w.root
}

// Terminate stops watching and releases all resources.
func (w *DirWatcher) Terminate() error {
	w.mutex.Lock()
	if w.terminated || w.failure != nil {
		w.mutex.Unlock()
		return nil
	}
	w.terminated = true
	w.mutex.Unlock()
	return w.watcher.Close()
}
