package filesystem

import (
	"time"
)

const (
	// DefaultExistenceProbeTimeout is the default join timeout for
	// asynchronous directory existence probes. It bounds the wait on
	// unreachable network shares.
	DefaultExistenceProbeTimeout = 20 * time.Second
)

// DirectoriesExist probes the existence of the specified directories in
// parallel, one detached probe per candidate, joining them against one
// shared deadline of the specified timeout. A probe that fails or is still
// outstanding when the deadline passes reports its
// directory as missing. The result maps each input path to its probe
// outcome.
func DirectoriesExist(paths []string, timeout time.Duration) map[string]bool {
	// Launch one probe per candidate. Buffered channels keep late probes
	// from leaking goroutines past the join.
	type probe struct {
		path   string
		result chan bool
	}
	probes := make([]probe, 0, len(paths))
	for _, path := range paths {
		p := probe{path: path, result: make(chan bool, 1)}
		probes = append(probes, p)
		go func(path string, result chan<- bool) {
			result <- DirExists(path)
		}(p.path, p.result)
	}

	// Join each probe against the shared deadline. Once the deadline fires,
	// every outstanding probe counts as missing.
	deadline := time.After(timeout)
	expired := false
	results := make(map[string]bool, len(paths))
	for _, p := range probes {
		if expired {
			results[p.path] = false
			continue
		}
		select {
		case exists := <-p.result:
			results[p.path] = exists
		case <-deadline:
			expired = true
			results[p.path] = false
		}
	}

	// Done.
	return results
}
