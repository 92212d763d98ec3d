//go:build linux || darwin || freebsd

package filesystem

import (
	"github.com/pkg/xattr"
)

// copyExtendedAttributes copies extended attributes from the source file to
// the target file. Volumes without extended attribute support make this a
// no-op; individual attribute failures abort the copy.
func copyExtendedAttributes(sourcePath, targetPath string) error {
	// Enumerate source attributes. An unsupported volume yields an empty
	// listing or an ENOTSUP-class failure, both of which are fine to treat
	// as nothing to copy.
	names, err := xattr.List(sourcePath)
	if err != nil {
		return nil
	}

	// Copy each attribute.
	for _, name := range names {
		value, err := xattr.Get(sourcePath, name)
		if err != nil {
			return err
		}
		if err := xattr.Set(targetPath, name, value); err != nil {
			return err
		}
	}

	// Success.
	return nil
}
