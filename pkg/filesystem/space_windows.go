//go:build windows

package filesystem

import (
	"golang.org/x/sys/windows"

	"github.com/driftsync-io/driftsync/pkg/fserror"
)

// FreeDiskSpace returns the number of bytes available to the calling process
// on the volume containing the specified path.
func FreeDiskSpace(path string) (uint64, error) {
	pathPointer, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return 0, fserror.NewSystemCallFailed("UTF16PtrFromString", err)
	}
	var freeBytesAvailable, totalBytes, totalFreeBytes uint64
	if err := windows.GetDiskFreeSpaceEx(pathPointer, &freeBytesAvailable, &totalBytes, &totalFreeBytes); err != nil {
		return 0, fserror.NewSystemCallFailed("GetDiskFreeSpaceEx", err)
	}
	return freeBytesAvailable, nil
}
