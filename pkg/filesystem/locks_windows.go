//go:build windows

package filesystem

import (
	"errors"
	"unsafe"

	"golang.org/x/sys/windows"
)

// isLockViolation indicates whether or not an error represents a conflicting
// lock held by another process.
func isLockViolation(err error) bool {
	var errno windows.Errno
	if errors.As(err, &errno) {
		return errno == windows.ERROR_SHARING_VIOLATION || errno == windows.ERROR_LOCK_VIOLATION
	}
	return false
}

var (
	modrstrtmgr       = windows.NewLazySystemDLL("rstrtmgr.dll")
	procRmStartSession     = modrstrtmgr.NewProc("RmStartSession")
	procRmRegisterResources = modrstrtmgr.NewProc("RmRegisterResources")
	procRmGetList          = modrstrtmgr.NewProc("RmGetList")
	procRmEndSession       = modrstrtmgr.NewProc("RmEndSession")
)

// rmProcessInfo mirrors RM_PROCESS_INFO.
type rmProcessInfo struct {
	process          rmUniqueProcess
	appName          [256]uint16
	serviceShortName [64]uint16
	applicationType  uint32
	appStatus        uint32
	tsSessionID      uint32
	restartable      int32
}

// rmUniqueProcess mirrors RM_UNIQUE_PROCESS.
type rmUniqueProcess struct {
	processID        uint32
	processStartTime windows.Filetime
}

// lockingProcessNames enumerates the names of processes holding locks on the
// specified path using the Restart Manager. Failures yield an empty result;
// enumeration is best-effort only.
func lockingProcessNames(path string) []string {
	// Start a Restart Manager session.
	var sessionHandle uint32
	var sessionKey [windows.MAX_PATH]uint16
	if ret, _, _ := procRmStartSession.Call(
		uintptr(unsafe.Pointer(&sessionHandle)), 0, uintptr(unsafe.Pointer(&sessionKey[0])),
	); ret != 0 {
		return nil
	}
	defer procRmEndSession.Call(uintptr(sessionHandle))

	// Register the path of interest.
	pathPointer, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return nil
	}
	resources := []*uint16{pathPointer}
	if ret, _, _ := procRmRegisterResources.Call(
		uintptr(sessionHandle), 1, uintptr(unsafe.Pointer(&resources[0])), 0, 0, 0, 0,
	); ret != 0 {
		return nil
	}

	// Query the affected applications.
	var needed, count, rebootReasons uint32
	count = 8
	processes := make([]rmProcessInfo, count)
	if ret, _, _ := procRmGetList.Call(
		uintptr(sessionHandle),
		uintptr(unsafe.Pointer(&needed)),
		uintptr(unsafe.Pointer(&count)),
		uintptr(unsafe.Pointer(&processes[0])),
		uintptr(unsafe.Pointer(&rebootReasons)),
	); ret != 0 {
		return nil
	}

	// Extract application names.
	var names []string
	for i := uint32(0); i < count && int(i) < len(processes); i++ {
		if name := windows.UTF16ToString(processes[i].appName[:]); name != "" {
			names = append(names, name)
		}
	}
	return names
}
