// Package filesystem provides the path and file primitive layer used by the
// synchronization engine: existence probes, metadata queries, rename and
// removal primitives with typed failure classification, directory creation,
// symlink reproduction, transactional file copying, and recycle bin
// dispatch.
//
// Operations in this package are either atomic or document the partial state
// they may leave behind. Transient errors are not retried at this layer;
// retry policy belongs to the synchronization orchestrator.
package filesystem
