package filesystem

import (
	"os"
)

// FileExists indicates whether or not a file exists at the specified path.
// Symlinks are followed, so a symlink to a file counts as a file. The probe
// never fails; inaccessible paths report false.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// DirExists indicates whether or not a directory exists at the specified
// path. Symlinks are followed, so a symlink to a directory counts as a
// directory.
func DirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// SymlinkExists indicates whether or not a symlink exists at the specified
// path. Broken symlinks count as existing.
func SymlinkExists(path string) bool {
	info, err := os.Lstat(path)
	return err == nil && info.Mode()&os.ModeSymlink != 0
}

// AnythingExists indicates whether or not anything (file, directory, or
// symlink, including a broken symlink) exists at the specified path.
func AnythingExists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}
