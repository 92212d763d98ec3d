//go:build windows

package filesystem

import (
	"os"

	"github.com/hectane/go-acl"
	"github.com/pkg/errors"

	"golang.org/x/sys/windows"
)

// SupportsPermissions indicates whether or not the volume containing the
// specified path supports access control information. FAT-family volumes do
// not.
func SupportsPermissions(path string) (bool, error) {
	// Resolve the volume root.
	volumePath, err := windows.UTF16PtrFromString(volumeRoot(path))
	if err != nil {
		return false, errors.Wrap(err, "unable to convert volume path")
	}

	// Query volume capabilities.
	var flags uint32
	if err := windows.GetVolumeInformation(volumePath, nil, 0, nil, nil, &flags, nil, 0); err != nil {
		return false, errors.Wrap(err, "unable to query volume information")
	}

	// Check for persistent ACL support.
	return flags&windows.FILE_PERSISTENT_ACLS != 0, nil
}

// volumeRoot computes the root path of the volume containing the specified
// path.
func volumeRoot(path string) string {
	if len(path) >= 2 && path[1] == ':' {
		return path[:2] + "\\"
	}
	return path
}

// CopyPermissions copies the discretionary access control list and basic
// mode information from the source entry to the target entry.
func CopyPermissions(sourcePath, targetPath string) error {
	// Query the source security descriptor.
	descriptor, err := windows.GetNamedSecurityInfo(
		sourcePath,
		windows.SE_FILE_OBJECT,
		windows.DACL_SECURITY_INFORMATION|windows.OWNER_SECURITY_INFORMATION|windows.GROUP_SECURITY_INFORMATION,
	)
	if err != nil {
		return errors.Wrap(err, "unable to read source security information")
	}

	// Extract components.
	owner, _, err := descriptor.Owner()
	if err != nil {
		return errors.Wrap(err, "unable to extract owner")
	}
	group, _, err := descriptor.Group()
	if err != nil {
		return errors.Wrap(err, "unable to extract group")
	}
	dacl, _, err := descriptor.DACL()
	if err != nil {
		return errors.Wrap(err, "unable to extract DACL")
	}

	// Apply to the target.
	if err := acl.Apply(targetPath, false, false); err != nil {
		return errors.Wrap(err, "unable to reset target access control")
	}
	if err := windows.SetNamedSecurityInfo(
		targetPath,
		windows.SE_FILE_OBJECT,
		windows.DACL_SECURITY_INFORMATION|windows.OWNER_SECURITY_INFORMATION|windows.GROUP_SECURITY_INFORMATION,
		owner, group, dacl, nil,
	); err != nil {
		return errors.Wrap(err, "unable to write target security information")
	}

	// Mirror the basic writability attribute.
	if info, err := os.Stat(sourcePath); err == nil {
		os.Chmod(targetPath, info.Mode().Perm())
	}

	// Success.
	return nil
}

// copySymlinkOwnership copies ownership from a source link to a target link.
// Link ownership is carried by the security descriptor copy on Windows, so
// this is a no-op.
func copySymlinkOwnership(_, _ string) {}
