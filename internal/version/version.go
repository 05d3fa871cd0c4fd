// Package version holds build metadata injected via ldflags.
package version

// Build information. Overridden at build time with
// -ldflags "-X github.com/studyping/studyping/internal/version.Version=...".
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)
