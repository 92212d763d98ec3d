//go:build windows

package process

import (
	"golang.org/x/sys/windows"

	"github.com/driftsync-io/driftsync/pkg/fserror"
)

const (
	// processModeBackgroundBegin enters background processing mode, which
	// lowers CPU, I/O, and memory priority together.
	processModeBackgroundBegin = 0x00100000
	// processModeBackgroundEnd leaves background processing mode.
	processModeBackgroundEnd = 0x00200000
)

// setBackgroundPriority enters background processing mode for the current
// process.
func setBackgroundPriority() (func(), error) {
	handle := windows.CurrentProcess()
	if err := windows.SetPriorityClass(handle, processModeBackgroundBegin); err != nil {
		return nil, fserror.NewSystemCallFailed("SetPriorityClass", err)
	}
	return func() {
		windows.SetPriorityClass(handle, processModeBackgroundEnd)
	}, nil
}
