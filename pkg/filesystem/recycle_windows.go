//go:build windows

package filesystem

import (
	"strings"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/driftsync-io/driftsync/pkg/fserror"
)

var (
	modshell32            = windows.NewLazySystemDLL("shell32.dll")
	procSHFileOperationW  = modshell32.NewProc("SHFileOperationW")
	procSHQueryRecycleBin = modshell32.NewProc("SHQueryRecycleBinW")
)

const (
	foDelete          = 0x0003
	fofAllowUndo      = 0x0040
	fofNoConfirmation = 0x0010
	fofSilent         = 0x0004
	fofNoErrorUI      = 0x0400
)

// shFileOpStruct mirrors SHFILEOPSTRUCTW.
type shFileOpStruct struct {
	hwnd                  uintptr
	wFunc                 uint32
	pFrom                 *uint16
	pTo                   *uint16
	fFlags                uint16
	fAnyOperationsAborted int32
	hNameMappings         uintptr
	lpszProgressTitle     *uint16
}

// shellDelete dispatches a recycle operation for the specified
// double-null-terminated path list.
func shellDelete(paths []string) error {
	// Encode the path list.
	var encoded []uint16
	for _, path := range paths {
		pathEncoded, err := windows.UTF16FromString(path)
		if err != nil {
			return fserror.NewSystemCallFailed("UTF16FromString", err)
		}
		encoded = append(encoded, pathEncoded...)
	}
	encoded = append(encoded, 0)

	// Dispatch the operation.
	operation := shFileOpStruct{
		wFunc:  foDelete,
		pFrom:  &encoded[0],
		fFlags: fofAllowUndo | fofNoConfirmation | fofSilent | fofNoErrorUI,
	}
	if ret, _, _ := procSHFileOperationW.Call(uintptr(unsafe.Pointer(&operation))); ret != 0 {
		return fserror.NewSystemCallFailed("SHFileOperation", windows.Errno(ret))
	}
	return nil
}

// recycleBinAvailable probes whether the volume containing the specified
// path has a recycle bin. Network shares do not.
func recycleBinAvailable(path string) bool {
	// UNC paths never have a recycle bin.
	if strings.HasPrefix(path, `\\`) {
		return false
	}
	rootPointer, err := windows.UTF16PtrFromString(volumeRoot(path))
	if err != nil {
		return false
	}
	var info struct {
		cbSize      uint32
		_           uint32
		i64Size     uint64
		i64NumItems uint64
	}
	info.cbSize = uint32(unsafe.Sizeof(info))
	ret, _, _ := procSHQueryRecycleBin.Call(
		uintptr(unsafe.Pointer(rootPointer)), uintptr(unsafe.Pointer(&info)),
	)
	return ret == 0
}

// Recycle moves the entry at the specified path to the recycle bin. It
// returns false with a nil error if nothing existed at the path, and
// ErrRecyclerUnavailable if the containing volume has no recycle bin.
func Recycle(path string) (bool, error) {
	if !AnythingExists(path) {
		return false, nil
	}
	if !recycleBinAvailable(path) {
		return true, ErrRecyclerUnavailable
	}
	if err := shellDelete([]string{path}); err != nil {
		return true, err
	}
	return true, nil
}

// recycleMultiple moves a batch of entries to the recycle bin in a single
// shell dispatch.
func recycleMultiple(paths []string) error {
	// Drop entries that vanished in the meantime.
	var remaining []string
	for _, path := range paths {
		if AnythingExists(path) {
			remaining = append(remaining, path)
		}
	}
	if len(remaining) == 0 {
		return nil
	}
	return shellDelete(remaining)
}
