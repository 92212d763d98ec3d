//go:build !windows

package filesystem

import (
	"os"
	"syscall"

	"github.com/pkg/errors"
)

// SupportsPermissions indicates whether or not the volume containing the
// specified path supports POSIX permissions. Local POSIX filesystems always
// do; the probe exists for parity with platforms where FAT-style volumes do
// not.
func SupportsPermissions(path string) (bool, error) {
	if _, err := os.Stat(path); err != nil {
		return false, errors.Wrap(err, "unable to probe path")
	}
	return true, nil
}

// CopyPermissions copies mode bits and ownership from the source entry to
// the target entry.
func CopyPermissions(sourcePath, targetPath string) error {
	// Query the source.
	info, err := os.Stat(sourcePath)
	if err != nil {
		return errors.Wrap(err, "unable to read source attributes")
	}

	// Copy mode bits.
	if err := os.Chmod(targetPath, info.Mode().Perm()); err != nil {
		return errors.Wrap(err, "unable to set mode bits")
	}

	// Copy ownership.
	if stat, ok := info.Sys().(*syscall.Stat_t); ok {
		if err := os.Lchown(targetPath, int(stat.Uid), int(stat.Gid)); err != nil {
			return errors.Wrap(err, "unable to set ownership")
		}
	}

	// Success.
	return nil
}

// copySymlinkOwnership copies ownership from a source link to a target link,
// best-effort.
func copySymlinkOwnership(sourceLink, targetLink string) {
	if info, err := os.Lstat(sourceLink); err == nil {
		if stat, ok := info.Sys().(*syscall.Stat_t); ok {
			os.Lchown(targetLink, int(stat.Uid), int(stat.Gid))
		}
	}
}
