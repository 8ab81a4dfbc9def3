package version

import (
	"golang.org/x/mod/semver"
)

// Version is the service current released version.
// This value can be overridden at build time using ldflags:
//
//	go build -ldflags "-X github.com/narrinai/companion/internal/version.Version=v0.4.0"
var Version = "0.0.0-dev"

// DevVersion is the service current development version.
var DevVersion = Version

// GitCommit is the git commit hash at build time.
// Set via ldflags: -X github.com/narrinai/companion/internal/version.GitCommit=$(git rev-parse HEAD)
var GitCommit = "unknown"

// BuildTime is the build timestamp in RFC3339 format.
var BuildTime = "unknown"

func GetCurrentVersion(mode string) string {
	if mode == "dev" || mode == "demo" {
		return DevVersion
	}
	return Version
}

// IsVersionGreaterOrEqualThan returns true if version is greater than or equal to target.
// Both arguments may omit the leading "v".
func IsVersionGreaterOrEqualThan(version, target string) bool {
	if len(version) == 0 || version[0] != 'v' {
		version = "v" + version
	}
	if len(target) == 0 || target[0] != 'v' {
		target = "v" + target
	}
	return semver.Compare(version, target) >= 0
}
