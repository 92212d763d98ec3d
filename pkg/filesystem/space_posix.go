//go:build !windows

package filesystem

import (
	"golang.org/x/sys/unix"

	"github.com/driftsync-io/driftsync/pkg/fserror"
)

// FreeDiskSpace returns the number of bytes available to the calling process
// on the volume containing the specified path.
func FreeDiskSpace(path string) (uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, fserror.NewSystemCallFailed("statfs", err)
	}
	return uint64(stat.Bavail) * uint64(stat.Bsize), nil
}
