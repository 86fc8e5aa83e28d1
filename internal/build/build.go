// Package build holds version information injected at link time.
package build

// Build metadata, overridden via -ldflags "-X".
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)
