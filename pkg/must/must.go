// Package must provides best-effort cleanup helpers whose failures are worth
// logging but never worth propagating.
package must

import (
	"io"
	"os"

	"github.com/driftsync-io/driftsync/pkg/logging"
)

// Close closes a closer and logs any failure.
func Close(c io.Closer, logger *logging.Logger) {
	if err := c.Close(); err != nil {
		logger.Warnf("Unable to close: %s", err.Error())
	}
}

// OSRemove removes a filesystem entry and logs any failure.
func OSRemove(name string, logger *logging.Logger) {
	if err := os.Remove(name); err != nil {
		logger.Warnf("Unable to remove '%s': %s", name, err.Error())
	}
}

// OSRemoveAll recursively removes a filesystem entry and logs any failure.
func OSRemoveAll(name string, logger *logging.Logger) {
	if err := os.RemoveAll(name); err != nil {
		logger.Warnf("Unable to remove '%s': %s", name, err.Error())
	}
}
