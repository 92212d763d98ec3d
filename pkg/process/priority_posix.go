//go:build !windows

package process

import (
	"golang.org/x/sys/unix"

	"github.com/driftsync-io/driftsync/pkg/fserror"
)

// backgroundNiceValue is the niceness applied for background operation.
const backgroundNiceValue = 10

// setBackgroundPriority lowers the scheduling priority of the current
// process. Restoration raises the priority again, which may require
// privileges; its failure is silent.
func setBackgroundPriority() (func(), error) {
	previous, err := unix.Getpriority(unix.PRIO_PROCESS, 0)
	if err != nil {
		return nil, fserror.NewSystemCallFailed("getpriority", err)
	}
	if err := unix.Setpriority(unix.PRIO_PROCESS, 0, backgroundNiceValue); err != nil {
		return nil, fserror.NewSystemCallFailed("setpriority", err)
	}
	return func() {
		unix.Setpriority(unix.PRIO_PROCESS, 0, previous)
	}, nil
}
