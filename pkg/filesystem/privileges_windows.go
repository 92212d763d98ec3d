//go:build windows

package filesystem

import (
	"github.com/Microsoft/go-winio"
)

// EnableBackupPrivileges attempts to acquire the backup and restore
// privileges for the current process, allowing reads of files whose access
// control would otherwise deny them. Acquisition requires administrative
// rights; failure is reported but callers treat it as best-effort.
func EnableBackupPrivileges() error {
	return winio.EnableProcessPrivileges([]string{
		winio.SeBackupPrivilege,
		winio.SeRestorePrivilege,
	})
}
