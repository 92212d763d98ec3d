package filesystem

import (
	"os"
	"time"

	"github.com/mutagen-io/extstat"
	"github.com/pkg/errors"

	"github.com/driftsync-io/driftsync/pkg/fserror"
)

// FileID identifies a file object on disk as a (device, file index) pair.
// Equality of valid identifiers implies that two paths refer to the same
// underlying file object. The zero value is the unset identifier, used when
// the OS did not provide identity information.
type FileID struct {
	// Device is the device identifier.
	Device uint64
	// Index is the inode number or file index on the device.
	Index uint64
	// valid indicates whether or not the identifier is set.
	valid bool
}

// Valid indicates whether or not the identifier is set.
func (i FileID) Valid() bool {
	return i.valid
}

// Equal checks two identifiers for equality. Unset identifiers never compare
// equal, not even to each other.
func (i FileID) Equal(other FileID) bool {
	return i.valid && other.valid && i.Device == other.Device && i.Index == other.Index
}

// Filesize returns the size of the file at the specified path, following
// symlinks. It fails if nothing exists at the path or if the path refers to
// a directory.
func Filesize(path string) (uint64, error) {
	// Query metadata.
	info, err := os.Stat(path)
	if err != nil {
		return 0, fserror.NewErrorWithCause("Cannot read file attributes of "+fserror.QuotePath(path)+".", err)
	}

	// Reject directories.
	if info.IsDir() {
		return 0, fserror.NewError("Cannot read file size of " + fserror.QuotePath(path) + ": the path is a directory.")
	}

	// Success.
	return uint64(info.Size()), nil
}

// ModificationTime returns the modification time of the entry at the
// specified path. If followSymlink is false, the time of the link itself is
// returned.
func ModificationTime(path string, followSymlink bool) (time.Time, error) {
	// Query metadata.
	var info os.FileInfo
	var err error
	if followSymlink {
		info, err = os.Stat(path)
	} else {
		info, err = os.Lstat(path)
	}
	if err != nil {
		return time.Time{}, fserror.NewErrorWithCause("Cannot read file attributes of "+fserror.QuotePath(path)+".", err)
	}

	// Success.
	return info.ModTime(), nil
}

// CreationTime returns the creation (birth) time of the file at the
// specified path, when the platform records one. On filesystems without
// birth time support, the reported value degrades to the change time.
func CreationTime(path string) (time.Time, error) {
	stat, err := extstat.NewFromFileName(path)
	if err != nil {
		return time.Time{}, errors.Wrap(err, "unable to query extended file statistics")
	}
	return stat.BirthTime, nil
}

// GetFileID returns the identifier of the file object at the specified path,
// following symlinks. An unset identifier with a nil error is returned when
// the platform provides no identity information.
func GetFileID(path string) (FileID, error) {
	return fileIDByPath(path)
}
