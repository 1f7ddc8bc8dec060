// Package buildinfo carries the version metadata stamped into release binaries.
package buildinfo

// Release builds override these via -ldflags; the defaults identify a local
// development build.
var (
	// Version is the released version string.
	Version = "dev"

	// Commit is the short git SHA the binary was built from.
	Commit = "none"

	// BuildDate is the UTC build timestamp.
	BuildDate = "unknown"
)
