//go:build !windows && !darwin

package filesystem

// CaseInsensitiveNames indicates whether or not the platform's default
// filesystems compare names case-insensitively.
const CaseInsensitiveNames = false
