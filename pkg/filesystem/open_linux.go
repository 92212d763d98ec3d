//go:build linux

package filesystem

import (
	"os"

	"golang.org/x/sys/unix"
)

// adviseSequentialUncached hints the kernel that the file will be read
// sequentially exactly once, discouraging cache retention.
func adviseSequentialUncached(file *os.File) {
	unix.Fadvise(int(file.Fd()), 0, 0, unix.FADV_SEQUENTIAL)
	unix.Fadvise(int(file.Fd()), 0, 0, unix.FADV_NOREUSE)
}
