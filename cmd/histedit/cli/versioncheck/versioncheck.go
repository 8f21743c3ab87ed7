// Package versioncheck tells the user when a newer histedit release exists.
// All failures are silent: a version notice must never break a command.
package versioncheck

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/entireio/histedit/cmd/histedit/cli/jsonutil"
	"github.com/entireio/histedit/cmd/histedit/cli/logging"
	"github.com/entireio/histedit/cmd/histedit/cli/paths"

	"github.com/spf13/cobra"
	"golang.org/x/mod/semver"
)

// CheckAndNotify checks for a newer release at most once a day and prints a
// notice to the command's stderr when the running version is outdated.
func CheckAndNotify(ctx context.Context, cmd *cobra.Command, currentVersion string) {
	if cmd.Hidden {
		return
	}

	// Skip checks for dev builds
	if currentVersion == "dev" || currentVersion == "" {
		return
	}

	ctx = logging.WithComponent(ctx, "versioncheck")

	configDir, err := paths.GlobalConfigDir()
	if err != nil {
		return
	}
	//nolint:gosec // ~/.config/histedit is in the user's home directory, 0o755 is appropriate
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return
	}
	cacheFile := filepath.Join(configDir, cacheFileName)

	cache, err := loadCache(cacheFile)
	if err != nil {
		cache = &VersionCache{}
	}

	if time.Since(cache.LastCheckTime) < checkInterval {
		return
	}

	latestVersion, err := fetchLatestVersion(ctx)

	// Always update cache to avoid retrying on every CLI invocation
	cache.LastCheckTime = time.Now()
	if err == nil {
		cache.LatestVersion = latestVersion
	}
	if saveErr := saveCache(cacheFile, cache); saveErr != nil {
		logging.Debug(ctx, "version check: failed to save cache",
			slog.String("error", saveErr.Error()))
	}

	if err != nil {
		logging.Debug(ctx, "version check: failed to fetch latest version",
			slog.String("error", err.Error()))
		return
	}

	if isOutdated(currentVersion, latestVersion) {
		printNotification(cmd, currentVersion, latestVersion)
	}
}

// loadCache reads the cache file. Returns an error if it is missing or corrupted.
func loadCache(filePath string) (*VersionCache, error) {
	data, err := os.ReadFile(filePath) //nolint:gosec // path is built from the config directory
	if err != nil {
		return nil, fmt.Errorf("reading cache file: %w", err)
	}

	var cache VersionCache
	if err := json.Unmarshal(data, &cache); err != nil {
		return nil, fmt.Errorf("parsing cache: %w", err)
	}
	return &cache, nil
}

// saveCache writes the cache through a temp file and rename.
func saveCache(filePath string, cache *VersionCache) error {
	data, err := jsonutil.MarshalIndentWithNewline(cache, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling cache: %w", err)
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(filePath), ".version_check_tmp_")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmpFile.Name())

	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("writing cache: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpFile.Name(), filePath); err != nil {
		return fmt.Errorf("renaming cache file: %w", err)
	}
	return nil
}

// fetchLatestVersion asks the GitHub API for the latest stable release tag.
func fetchLatestVersion(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, httpTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, releaseURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching release info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	// Limit to 1MB
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	version, err := parseGitHubRelease(body)
	if err != nil {
		return "", fmt.Errorf("parsing release: %w", err)
	}
	return version, nil
}

// parseGitHubRelease extracts the tag of a stable release.
func parseGitHubRelease(body []byte) (string, error) {
	var release GitHubRelease
	if err := json.Unmarshal(body, &release); err != nil {
		return "", fmt.Errorf("parsing JSON: %w", err)
	}
	if release.Prerelease {
		return "", errors.New("only prerelease versions available")
	}
	if release.TagName == "" {
		return "", errors.New("empty tag name")
	}
	return release.TagName, nil
}

// isOutdated reports whether current is an older semantic version than latest.
func isOutdated(current, latest string) bool {
	if !strings.HasPrefix(current, "v") {
		current = "v" + current
	}
	if !strings.HasPrefix(latest, "v") {
		latest = "v" + latest
	}
	return semver.Compare(current, latest) < 0
}

// updateCommand returns the update instruction matching how the binary was installed.
func updateCommand() string {
	const goInstall = "go install github.com/entireio/histedit/cmd/histedit@latest"

	execPath, err := os.Executable()
	if err != nil {
		return goInstall
	}

	// Resolve symlinks to find the real path (Homebrew symlinks from bin/ to Cellar/)
	realPath, err := filepath.EvalSymlinks(execPath)
	if err != nil {
		realPath = execPath
	}
	if strings.Contains(realPath, "/Cellar/") || strings.Contains(realPath, "/homebrew/") {
		return "brew upgrade histedit"
	}
	return goInstall
}

func printNotification(cmd *cobra.Command, current, latest string) {
	fmt.Fprintf(cmd.ErrOrStderr(), "\nA newer version of histedit is available: %s (current: %s)\nRun '%s' to update.\n",
		latest, current, updateCommand())
}
