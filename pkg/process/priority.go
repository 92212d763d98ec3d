// Package process adjusts process-wide execution priority so long
// synchronization runs stay out of the foreground workload's way.
package process

// SetBackgroundPriority lowers the priority of the current process and
// returns a function restoring the previous priority. On Windows the process
// enters background processing mode, which lowers CPU and I/O priority
// together; on other platforms only the CPU niceness changes and the I/O
// priority stays as it is. Both the
// lowering and the restoration are best-effort: a process that cannot
// change its priority still synchronizes correctly.
func SetBackgroundPriority() (restore func(), err error) {
	return setBackgroundPriority()
}
