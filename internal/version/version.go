// Package version exposes the build version of the wallcheb binary.
package version

// Version is the semantic version of the build.
// Overridden at build time via -ldflags "-X github.com/aristath/wallcheb/internal/version.Version=...".
var Version = "0.3.0-dev"
