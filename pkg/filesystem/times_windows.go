//go:build windows

package filesystem

import (
	"time"

	"golang.org/x/sys/windows"

	"github.com/driftsync-io/driftsync/pkg/fserror"
)

// setSymlinkTime sets the modification time of a symlink itself using a
// reparse-point-aware handle.
func setSymlinkTime(path string, modTime time.Time) error {
	pathPointer, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return fserror.NewSystemCallFailed("UTF16PtrFromString", err)
	}
	handle, err := windows.CreateFile(
		pathPointer,
		windows.FILE_WRITE_ATTRIBUTES,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE|windows.FILE_SHARE_DELETE,
		nil,
		windows.OPEN_EXISTING,
		windows.FILE_FLAG_BACKUP_SEMANTICS|windows.FILE_FLAG_OPEN_REPARSE_POINT,
		0,
	)
	if err != nil {
		return fserror.NewSystemCallFailed("CreateFile", err)
	}
	defer windows.CloseHandle(handle)
	writeTime := windows.NsecToFiletime(modTime.UnixNano())
	if err := windows.SetFileTime(handle, nil, nil, &writeTime); err != nil {
		return fserror.NewSystemCallFailed("SetFileTime", err)
	}
	return nil
}

// setCreationTime sets the creation time of the entry at the specified path.
func setCreationTime(path string, creationTime time.Time) error {
	pathPointer, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return fserror.NewSystemCallFailed("UTF16PtrFromString", err)
	}
	handle, err := windows.CreateFile(
		pathPointer,
		windows.FILE_WRITE_ATTRIBUTES,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE|windows.FILE_SHARE_DELETE,
		nil,
		windows.OPEN_EXISTING,
		windows.FILE_FLAG_BACKUP_SEMANTICS,
		0,
	)
	if err != nil {
		return fserror.NewSystemCallFailed("CreateFile", err)
	}
	defer windows.CloseHandle(handle)
	created := windows.NsecToFiletime(creationTime.UnixNano())
	if err := windows.SetFileTime(handle, &created, nil, nil); err != nil {
		return fserror.NewSystemCallFailed("SetFileTime", err)
	}
	return nil
}
