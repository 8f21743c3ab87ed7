package versioncheck

import "time"

// VersionCache records when the release feed was last consulted.
type VersionCache struct {
	LastCheckTime time.Time `json:"last_check_time"`
	LatestVersion string    `json:"latest_version,omitempty"`
}

// GitHubRelease represents the GitHub API response for a release.
type GitHubRelease struct {
	TagName    string `json:"tag_name"`
	Prerelease bool   `json:"prerelease"`
}

// releaseURL is the GitHub API endpoint for the latest histedit release.
// This is a var (not const) to allow overriding in tests.
var releaseURL = "https://api.github.com/repos/entireio/histedit/releases/latest"

const (
	// checkInterval is the duration between version checks.
	checkInterval = 24 * time.Hour

	// httpTimeout is the timeout for HTTP requests to the GitHub API.
	httpTimeout = 2 * time.Second

	// cacheFileName is stored in the per-user config directory.
	cacheFileName = "version_check.json"

	// userAgent identifies histedit to the GitHub API.
	userAgent = "histedit-cli"
)
