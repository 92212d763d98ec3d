package driftsync

import (
	"fmt"
)

const (
	// VersionMajor represents the current major version of DriftSync.
	VersionMajor = 1
	// VersionMinor represents the current minor version of DriftSync.
	VersionMinor = 3
	// VersionPatch represents the current patch version of DriftSync.
	VersionPatch = 0
)

// Version provides a stringified version of the current DriftSync version.
var Version string

func init() {
	// Compute the stringified version.
	Version = fmt.Sprintf("%d.%d.%d", VersionMajor, VersionMinor, VersionPatch)
}
