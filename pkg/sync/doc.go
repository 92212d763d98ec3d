// Package sync implements the synchronization orchestrator: it takes a
// compared folder hierarchy with per-item sync directions already assigned
// and materializes those decisions against the file system, resolving
// inter-item dependencies by executing a move resolution pass, a deletion
// pass, and a creation pass per folder pair.
package sync
