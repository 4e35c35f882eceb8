// Package version holds build metadata injected with -ldflags.
package version

var (
	// Version is the semantic version.
	Version = "v0.0.0-dev"

	// GitCommit is the git commit hash.
	GitCommit = "unknown"

	// BuildTime is the build timestamp.
	BuildTime = "unknown"
)

// Info returns a one-line description such as
// "v1.2.0 (3f2c1ab, built 2026-10-01T12:00:00Z)".
func Info() string {
	return Version + " (" + GitCommit + ", built " + BuildTime + ")"
}
