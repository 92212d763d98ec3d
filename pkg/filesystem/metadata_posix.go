//go:build !windows

package filesystem

import (
	"os"
	"syscall"

	"github.com/driftsync-io/driftsync/pkg/fserror"
)

// fileIDFromInfo extracts a file identifier from file metadata.
func fileIDFromInfo(info os.FileInfo) FileID {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return FileID{}
	}
	return FileID{
		Device: uint64(stat.Dev),
		Index:  uint64(stat.Ino),
		valid:  true,
	}
}

// fileIDByPath queries the identifier of the file object at the specified
// path, following symlinks.
func fileIDByPath(path string) (FileID, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileID{}, fserror.NewErrorWithCause("Cannot read file attributes of "+fserror.QuotePath(path)+".", err)
	}
	return fileIDFromInfo(info), nil
}
