//go:build !windows

package filesystem

import (
	"os"
)

// openUnbuffered opens a file for reading with a hint to bypass write-back
// caching. POSIX systems lack a portable unbuffered open, so the caching
// hint is applied per-platform where one exists and the open otherwise
// degrades to a plain read-only open.
func openUnbuffered(path string) (*os.File, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	adviseSequentialUncached(file)
	return file, nil
}
