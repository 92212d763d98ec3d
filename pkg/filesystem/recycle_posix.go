//go:build !windows

package filesystem

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// trashDirectories resolves the trash layout for the volume containing the
// specified path following the freedesktop.org trash specification: the home
// trash for entries on the home volume, and no trash otherwise. Network and
// removable volumes without a trash directory report unavailability so
// callers can fall back to permanent deletion.
func trashDirectories(path string) (filesDir, infoDir string, err error) {
	// Resolve the home trash root.
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, homeErr := os.UserHomeDir()
		if homeErr != nil {
			return "", "", ErrRecyclerUnavailable
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	trashRoot := filepath.Join(dataHome, "Trash")

	// The home trash only serves entries on the same volume: a cross-volume
	// rename into it would degrade to a copy.
	pathID, err1 := GetFileID(filepath.Dir(path))
	trashID, err2 := GetFileID(dataHome)
	if err1 != nil || err2 != nil || !pathID.Valid() || !trashID.Valid() || pathID.Device != trashID.Device {
		return "", "", ErrRecyclerUnavailable
	}

	return filepath.Join(trashRoot, "files"), filepath.Join(trashRoot, "info"), nil
}

// Recycle moves the entry at the specified path to the trash. It returns
// false with a nil error if nothing existed at the path, and
// ErrRecyclerUnavailable if the containing volume has no trash.
func Recycle(path string) (bool, error) {
	// Nothing to do for a missing entry.
	if !AnythingExists(path) {
		return false, nil
	}

	// Resolve the trash layout.
	filesDir, infoDir, err := trashDirectories(path)
	if err != nil {
		return true, err
	}
	if err := os.MkdirAll(filesDir, 0700); err != nil {
		return true, ErrRecyclerUnavailable
	}
	if err := os.MkdirAll(infoDir, 0700); err != nil {
		return true, ErrRecyclerUnavailable
	}

	// Find an unused name in the trash.
	name := filepath.Base(path)
	trashedPath := filepath.Join(filesDir, name)
	for i := 2; AnythingExists(trashedPath); i++ {
		extension := filepath.Ext(name)
		stem := strings.TrimSuffix(name, extension)
		trashedPath = filepath.Join(filesDir, fmt.Sprintf("%s.%d%s", stem, i, extension))
	}

	// Write the trashinfo record first so the entry stays restorable.
	absolute, err := filepath.Abs(path)
	if err != nil {
		absolute = path
	}
	info := fmt.Sprintf(
		"[Trash Info]\nPath=%s\nDeletionDate=%s\n",
		absolute, time.Now().Format("2006-01-02T15:04:05"),
	)
	infoPath := filepath.Join(infoDir, filepath.Base(trashedPath)+".trashinfo")
	if err := os.WriteFile(infoPath, []byte(info), 0600); err != nil {
		return true, errors.Wrap(err, "unable to write trash metadata")
	}

	// Move the entry into the trash.
	if err := os.Rename(path, trashedPath); err != nil {
		os.Remove(infoPath)
		if os.IsNotExist(err) {
			return false, nil
		}
		return true, errors.Wrap(err, "unable to move entry to trash")
	}

	// Success.
	return true, nil
}

// recycleMultiple moves a batch of entries to the trash. POSIX systems have
// no batched dispatch, so entries are recycled one at a time.
func recycleMultiple(paths []string) error {
	for _, path := range paths {
		if _, err := Recycle(path); err != nil {
			return err
		}
	}
	return nil
}
