package versioncheck

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/entireio/histedit/cmd/histedit/cli/paths"

	"github.com/spf13/cobra"
)

func TestIsOutdated(t *testing.T) {
	tests := []struct {
		current string
		latest  string
		want    bool
		desc    string
	}{
		{"1.0.0", "1.0.1", true, "patch version bump"},
		{"1.0.0", "1.1.0", true, "minor version bump"},
		{"1.0.0", "2.0.0", true, "major version bump"},
		{"1.0.1", "1.0.0", false, "current is newer"},
		{"1.0.0", "1.0.0", false, "same version"},
		{"v1.0.0", "1.0.1", true, "mixed v prefix"},
		{"1.0.0-rc1", "1.0.0", true, "prerelease in current"},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			if got := isOutdated(tt.current, tt.latest); got != tt.want {
				t.Errorf("isOutdated(%q, %q) = %v, want %v", tt.current, tt.latest, got, tt.want)
			}
		})
	}
}

func TestCacheRoundTrip(t *testing.T) {
	file := filepath.Join(t.TempDir(), cacheFileName)
	want := &VersionCache{LastCheckTime: time.Now().Round(time.Second), LatestVersion: "v1.2.3"}

	if err := saveCache(file, want); err != nil {
		t.Fatalf("saveCache() error = %v", err)
	}
	got, err := loadCache(file)
	if err != nil {
		t.Fatalf("loadCache() error = %v", err)
	}
	if !got.LastCheckTime.Equal(want.LastCheckTime) || got.LatestVersion != want.LatestVersion {
		t.Errorf("loadCache() = %+v, want %+v", got, want)
	}
}

func TestParseGitHubRelease(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    string
		wantErr bool
	}{
		{"valid release", `{"tag_name": "v1.2.3", "prerelease": false}`, "v1.2.3", false},
		{"prerelease", `{"tag_name": "v2.0.0-rc1", "prerelease": true}`, "", true},
		{"empty tag", `{"tag_name": "", "prerelease": false}`, "", true},
		{"invalid json", `not json`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseGitHubRelease([]byte(tt.body))
			if (err != nil) != tt.wantErr {
				t.Errorf("parseGitHubRelease() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("parseGitHubRelease() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUpdateCommand(t *testing.T) {
	cmd := updateCommand()
	if cmd != "brew upgrade histedit" && !strings.HasPrefix(cmd, "go install ") {
		t.Errorf("updateCommand() = %q", cmd)
	}
}

// setupCheckAndNotifyTest points HOME at a temp dir and the release URL at serverURL.
func setupCheckAndNotifyTest(t *testing.T, serverURL string) (*cobra.Command, *bytes.Buffer) {
	t.Helper()

	t.Setenv("HOME", t.TempDir())

	orig := releaseURL
	releaseURL = serverURL
	t.Cleanup(func() { releaseURL = orig })

	var buf bytes.Buffer
	cmd := &cobra.Command{Use: "test"}
	cmd.SetErr(&buf)
	return cmd, &buf
}

func newVersionServer(t *testing.T, version string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != userAgent {
			t.Errorf("User-Agent header = %q, want %q", r.Header.Get("User-Agent"), userAgent)
		}
		w.Header().Set("Content-Type", "application/json")
		//nolint:errcheck // test helper
		json.NewEncoder(w).Encode(GitHubRelease{TagName: version})
	}))
	t.Cleanup(server.Close)
	return server
}

func TestCheckAndNotify_SkipsHiddenAndDevBuilds(t *testing.T) {
	server := newVersionServer(t, "v9.9.9")
	cmd, buf := setupCheckAndNotifyTest(t, server.URL)

	CheckAndNotify(context.Background(), cmd, "dev")
	CheckAndNotify(context.Background(), cmd, "")
	cmd.Hidden = true
	CheckAndNotify(context.Background(), cmd, "1.0.0")

	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}

func TestCheckAndNotify_SkipsWhenCacheIsFresh(t *testing.T) {
	server := newVersionServer(t, "v9.9.9")
	cmd, buf := setupCheckAndNotifyTest(t, server.URL)

	configDir, err := paths.GlobalConfigDir()
	if err != nil {
		t.Fatalf("GlobalConfigDir() error = %v", err)
	}
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := saveCache(filepath.Join(configDir, cacheFileName), &VersionCache{LastCheckTime: time.Now()}); err != nil {
		t.Fatalf("saveCache() error = %v", err)
	}

	CheckAndNotify(context.Background(), cmd, "1.0.0")

	if buf.Len() != 0 {
		t.Errorf("expected no output when cache is fresh, got %q", buf.String())
	}
}

func TestCheckAndNotify_PrintsNotificationWhenOutdated(t *testing.T) {
	server := newVersionServer(t, "v2.0.0")
	cmd, buf := setupCheckAndNotifyTest(t, server.URL)

	CheckAndNotify(context.Background(), cmd, "1.0.0")

	output := buf.String()
	if !strings.Contains(output, "v2.0.0") || !strings.Contains(output, "1.0.0") {
		t.Errorf("expected notification with both versions, got %q", output)
	}
}

func TestCheckAndNotify_NoNotificationWhenUpToDate(t *testing.T) {
	server := newVersionServer(t, "v1.0.0")
	cmd, buf := setupCheckAndNotifyTest(t, server.URL)

	CheckAndNotify(context.Background(), cmd, "1.0.0")

	if buf.Len() != 0 {
		t.Errorf("expected no output when up to date, got %q", buf.String())
	}
}

func TestCheckAndNotify_FetchFailureUpdatesCache(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	cmd, buf := setupCheckAndNotifyTest(t, server.URL)

	CheckAndNotify(context.Background(), cmd, "1.0.0")

	if buf.Len() != 0 {
		t.Errorf("expected no output on fetch failure, got %q", buf.String())
	}

	configDir, err := paths.GlobalConfigDir()
	if err != nil {
		t.Fatalf("GlobalConfigDir() error = %v", err)
	}
	cache, err := loadCache(filepath.Join(configDir, cacheFileName))
	if err != nil {
		t.Fatalf("loadCache() error = %v", err)
	}
	if time.Since(cache.LastCheckTime) > time.Minute {
		t.Errorf("cache LastCheckTime not updated after fetch failure: %v", cache.LastCheckTime)
	}
}
