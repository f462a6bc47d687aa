// Package version holds build-time metadata injected via ldflags.
package version

import "golang.org/x/mod/semver"

// These variables are set at build time using -ldflags:
//
//	-X 'github.com/janekbaraniewski/keydash/internal/version.Version=...'
//	-X 'github.com/janekbaraniewski/keydash/internal/version.CommitHash=...'
//	-X 'github.com/janekbaraniewski/keydash/internal/version.BuildDate=...'
var (
	Version    = "dev"
	CommitHash = "unknown"
	BuildDate  = "unknown"
)

// String returns a formatted version string.
func String() string {
	return Version + " (" + CommitHash + ") built " + BuildDate
}

// IsRelease reports whether Version is a stable semver tag rather than a
// development or pre-release build.
func IsRelease() bool {
	v := Version
	if v != "" && v[0] != 'v' {
		v = "v" + v
	}
	return semver.IsValid(v) && semver.Prerelease(v) == "" && semver.Build(v) == ""
}
