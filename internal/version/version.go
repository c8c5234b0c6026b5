// Package version exposes build-time version information.
package version

import "fmt"

// Version is the service current released version.
// This value can be overridden at build time using ldflags:
//
//	go build -ldflags "-X .../internal/version.Version=v0.3.0"
var Version = "0.0.0-dev"

// GitCommit is the git commit hash at build time.
var GitCommit = "unknown"

// GetCurrentVersion returns the version string appropriate for the run mode.
func GetCurrentVersion(mode string) string {
	if mode == "dev" || mode == "demo" {
		return Version + "+" + mode
	}
	return Version
}

// String returns the version string with optional commit hash.
func String() string {
	if GitCommit != "" && GitCommit != "unknown" {
		shortCommit := GitCommit
		if len(shortCommit) > 8 {
			shortCommit = shortCommit[:8]
		}
		return fmt.Sprintf("%s-%s", Version, shortCommit)
	}
	return Version
}
