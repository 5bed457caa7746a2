// Package version exposes build version information.
package version

import "fmt"

// Set at build time via -ldflags "-X .../internal/version.Version=..."
var (
	Version = "dev"
	Commit  = ""
)

// Info returns the human-readable version string.
func Info() string {
	if Commit == "" {
		return fmt.Sprintf("passh %s", Version)
	}
	return fmt.Sprintf("passh %s (%s)", Version, Commit)
}
