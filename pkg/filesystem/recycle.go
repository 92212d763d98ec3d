package filesystem

import (
	"errors"
)

// ErrRecyclerUnavailable indicates that the volume containing a path has no
// recycle bin. Callers decide whether to fall back to permanent deletion.
var ErrRecyclerUnavailable = errors.New("recycle bin not available for this volume")

// RecycleOrDelete moves the entry at the specified path to the OS recycle
// bin, falling back to permanent deletion when the recycler is unavailable
// on the containing volume. It returns false with a nil error if nothing
// existed at the path.
func RecycleOrDelete(path string) (bool, error) {
	existed, err := Recycle(path)
	if err == nil || !errors.Is(err, ErrRecyclerUnavailable) {
		return existed, err
	}

	// Fall back to permanent deletion.
	if DirExists(path) && !SymlinkExists(path) {
		return true, RemoveDirectory(path, nil, nil)
	}
	return RemoveFile(path)
}

// RecycleMultiple moves a batch of entries to the OS recycle bin in a single
// dispatch where the platform supports one. Entries that no longer exist are
// skipped silently.
func RecycleMultiple(paths []string) error {
	return recycleMultiple(paths)
}
