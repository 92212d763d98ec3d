//go:build windows

package monitor

// platformShell returns the shell and its command flag.
func platformShell() (string, string) {
	return "cmd", "/c"
}
