// Package settings provides configuration loading for histedit.
// It is separate from cli so logging and telemetry can read it without
// importing the command layer.
package settings

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/entireio/histedit/cmd/histedit/cli/history"
	"github.com/entireio/histedit/cmd/histedit/cli/paths"
)

// Settings is the merged histedit configuration.
type Settings struct {
	// LogLevel sets the logging verbosity (debug, info, warn, error).
	// Can be overridden by HISTEDIT_LOG_LEVEL environment variable.
	// Defaults to "info".
	LogLevel string `json:"log_level,omitempty"`

	// ProgressInterval is the number of commits between progress updates
	// and cancellation checks during a rewrite.
	ProgressInterval int `json:"progress_interval,omitempty"`

	// Telemetry controls anonymous usage analytics.
	// nil = never chosen (disabled), true = opted in, false = opted out
	Telemetry *bool `json:"telemetry,omitempty"`

	// SecretScan refuses new commit messages that look like they contain
	// credentials. nil means enabled.
	SecretScan *bool `json:"secret_scan,omitempty"`

	// Pager pipes long output through $PAGER when stdout is a terminal.
	// nil means enabled.
	Pager *bool `json:"pager,omitempty"`
}

// Load reads the per-user settings file and then applies the per-repository
// file found under gitDir. Keys present in a later file override earlier
// ones. Missing files are not an error. gitDir may be empty.
func Load(gitDir string) (*Settings, error) {
	settings := &Settings{}

	files := make([]string, 0, 2)
	if global, err := paths.GlobalSettingsPath(); err == nil {
		files = append(files, global)
	}
	if gitDir != "" {
		files = append(files, paths.RepoSettingsPath(gitDir))
	}

	for _, file := range files {
		data, err := os.ReadFile(file) //nolint:gosec // path is built from the home or git directory
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("reading settings file %s: %w", file, err)
		}
		if err := mergeJSON(settings, data); err != nil {
			return nil, fmt.Errorf("merging settings file %s: %w", file, err)
		}
	}

	applyDefaults(settings)
	return settings, nil
}

// mergeJSON merges JSON data into existing settings.
// Only keys present in the JSON override existing settings.
func mergeJSON(settings *Settings, data []byte) error {
	// Parse into a map to check which fields are present
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parsing JSON: %w", err)
	}

	if logLevelRaw, ok := raw["log_level"]; ok {
		var ll string
		if err := json.Unmarshal(logLevelRaw, &ll); err != nil {
			return fmt.Errorf("parsing log_level field: %w", err)
		}
		if ll != "" {
			settings.LogLevel = ll
		}
	}

	if intervalRaw, ok := raw["progress_interval"]; ok {
		var n int
		if err := json.Unmarshal(intervalRaw, &n); err != nil {
			return fmt.Errorf("parsing progress_interval field: %w", err)
		}
		settings.ProgressInterval = n
	}

	for key, target := range map[string]**bool{
		"telemetry":   &settings.Telemetry,
		"secret_scan": &settings.SecretScan,
		"pager":       &settings.Pager,
	} {
		value, ok := raw[key]
		if !ok {
			continue
		}
		var b bool
		if err := json.Unmarshal(value, &b); err != nil {
			return fmt.Errorf("parsing %s field: %w", key, err)
		}
		*target = &b
	}

	return nil
}

func applyDefaults(settings *Settings) {
	if settings.ProgressInterval < 1 {
		settings.ProgressInterval = history.DefaultProgressInterval
	}
}

// TelemetryEnabled reports whether the user opted in to telemetry.
func (s *Settings) TelemetryEnabled() bool {
	return s.Telemetry != nil && *s.Telemetry
}

// SecretScanEnabled reports whether new messages are checked for secrets.
func (s *Settings) SecretScanEnabled() bool {
	return s.SecretScan == nil || *s.SecretScan
}

// PagerEnabled reports whether long output may be paged.
func (s *Settings) PagerEnabled() bool {
	return s.Pager == nil || *s.Pager
}
