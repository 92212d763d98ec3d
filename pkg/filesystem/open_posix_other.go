//go:build !windows && !linux

package filesystem

import (
	"os"
)

// adviseSequentialUncached hints the kernel about sequential single-pass
// reading. No hint is available on this platform.
func adviseSequentialUncached(_ *os.File) {}
