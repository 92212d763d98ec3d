package filesystem

import (
	"fmt"
	"strings"
)

const (
	// TemporaryExtension is the extension used for engine-private
	// intermediate files and directories: transactional copy scratch files,
	// 2-step move scratch names, and the recycler staging directory. A
	// leftover entry with this extension found at startup is safe to delete.
	TemporaryExtension = ".ffs_tmp"
	// DatabaseExtension is the extension used for synchronization state
	// database files.
	DatabaseExtension = ".ffs_db"
	// LockExtension is the extension used for external lock coordination
	// files. The engine consumes but never produces these.
	LockExtension = ".ffs_lock"

	// RecycleBinStagingName is the base name of the recycler staging
	// directory created under a base directory.
	RecycleBinStagingName = "RecycleBin"

	// maximumTemporaryNameAttempts bounds the number of suffixed candidates
	// probed when a temporary name collides.
	maximumTemporaryNameAttempts = 10
)

// IsTemporaryName indicates whether or not a name carries the engine's
// temporary extension.
func IsTemporaryName(name string) bool {
	return strings.HasSuffix(name, TemporaryExtension)
}

// UnusedTemporaryName finds an unused temporary name derived from the
// specified path by appending the temporary extension, uniquifying with a
// numeric suffix on collision. The probe is inherently racy; callers must be
// prepared for creation at the returned name to fail.
func UnusedTemporaryName(path string) (string, error) {
	// Try the plain scratch name first.
	candidate := path + TemporaryExtension
	if !AnythingExists(candidate) {
		return candidate, nil
	}

	// Probe suffixed candidates.
	for i := 0; i < maximumTemporaryNameAttempts; i++ {
		candidate = fmt.Sprintf("%s_%d%s", path, i, TemporaryExtension)
		if !AnythingExists(candidate) {
			return candidate, nil
		}
	}

	// All candidates were taken.
	return "", fmt.Errorf("unable to find unused temporary name for %s", path)
}
