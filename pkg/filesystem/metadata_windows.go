//go:build windows

package filesystem

import (
	"golang.org/x/sys/windows"

	"github.com/driftsync-io/driftsync/pkg/fserror"
)

// fileIDFromHandle extracts a file identifier from an open handle.
func fileIDFromHandle(handle windows.Handle) (FileID, error) {
	var info windows.ByHandleFileInformation
	if err := windows.GetFileInformationByHandle(handle, &info); err != nil {
		return FileID{}, err
	}
	return FileID{
		Device: uint64(info.VolumeSerialNumber),
		Index:  uint64(info.FileIndexHigh)<<32 | uint64(info.FileIndexLow),
		valid:  true,
	}, nil
}

// fileIDByPath queries the identifier of the file object at the specified
// path, following symlinks. The file index is only obtainable through an
// open handle, so a temporary read-attributes handle is used.
func fileIDByPath(path string) (FileID, error) {
	pathPointer, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return FileID{}, fserror.NewSystemCallFailed("UTF16PtrFromString", err)
	}
	handle, err := windows.CreateFile(
		pathPointer,
		windows.FILE_READ_ATTRIBUTES,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE|windows.FILE_SHARE_DELETE,
		nil,
		windows.OPEN_EXISTING,
		windows.FILE_FLAG_BACKUP_SEMANTICS,
		0,
	)
	if err != nil {
		return FileID{}, fserror.NewSystemCallFailed("CreateFile", err)
	}
	defer windows.CloseHandle(handle)
	return fileIDFromHandle(handle)
}
