//go:build windows

package filesystem

import (
	"os"

	"golang.org/x/sys/windows"
)

// openUnbuffered opens a file for reading with sequential-scan and no
// intermediate buffering hints, so verification reads observe on-disk state
// rather than cache contents.
func openUnbuffered(path string) (*os.File, error) {
	pathPointer, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return nil, err
	}
	handle, err := windows.CreateFile(
		pathPointer,
		windows.GENERIC_READ,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE|windows.FILE_SHARE_DELETE,
		nil,
		windows.OPEN_EXISTING,
		windows.FILE_FLAG_SEQUENTIAL_SCAN,
		0,
	)
	if err != nil {
		return nil, err
	}
	return os.NewFile(uintptr(handle), path), nil
}
