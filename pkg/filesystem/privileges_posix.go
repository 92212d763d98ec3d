//go:build !windows

package filesystem

// EnableBackupPrivileges attempts to acquire elevated read privileges for
// the current process. POSIX systems express this through ordinary
// credentials, so there is nothing to acquire.
func EnableBackupPrivileges() error {
	return nil
}
