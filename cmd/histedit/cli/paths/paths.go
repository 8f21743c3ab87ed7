package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
)

// BackupRefPrefix is the reserved namespace for pre-rewrite backups.
// It sits outside refs/heads/ and refs/tags/ so backups never show up as
// branches or tags, and is left alone by push/fetch refspecs by default.
const BackupRefPrefix = "refs/histedit/backup/"

// Directory constants, relative to the git directory
const (
	HisteditDir      = "histedit"
	LogsDir          = "histedit/logs"
	SettingsFileName = "settings.json"
)

// GlobalConfigDirName is the per-user config directory, relative to $HOME.
const GlobalConfigDirName = ".config/histedit"

// ReflogPrefix starts every reflog message histedit writes.
const ReflogPrefix = "histedit: "

// shortIDLength is the number of hex characters shown for abbreviated ids.
const shortIDLength = 8

// BackupRefName returns the backup reference for a branch short name.
// Example: "feature/x" -> "refs/histedit/backup/feature/x"
func BackupRefName(branch string) plumbing.ReferenceName {
	return plumbing.ReferenceName(BackupRefPrefix + branch)
}

// BranchFromBackupRef extracts the branch short name from a backup reference.
// Returns false if name is not in the backup namespace.
func BranchFromBackupRef(name plumbing.ReferenceName) (string, bool) {
	branch, found := strings.CutPrefix(name.String(), BackupRefPrefix)
	if !found || branch == "" {
		return "", false
	}
	return branch, true
}

// ShortID returns the first 8 characters of an id, or the id itself if shorter.
func ShortID(id string) string {
	if len(id) > shortIDLength {
		return id[:shortIDLength]
	}
	return id
}

// RewriteReflogMessage is the reflog entry recorded when a branch is rewritten.
func RewriteReflogMessage(target plumbing.Hash) string {
	return fmt.Sprintf("%srewrote commit %s", ReflogPrefix, ShortID(target.String()))
}

// BackupReflogMessage is the reflog entry recorded when a backup is taken.
func BackupReflogMessage(branch string) string {
	return fmt.Sprintf("%sbackup of %s before rewrite", ReflogPrefix, branch)
}

// RestoreReflogMessage is the reflog entry recorded when a backup is restored.
func RestoreReflogMessage(branch string) string {
	return fmt.Sprintf("%srestored %s from backup", ReflogPrefix, branch)
}

// LogsPath returns the directory log files are written to for a git directory.
func LogsPath(gitDir string) string {
	return filepath.Join(gitDir, LogsDir)
}

// RepoSettingsPath returns the per-repository settings file for a git directory.
func RepoSettingsPath(gitDir string) string {
	return filepath.Join(gitDir, HisteditDir, SettingsFileName)
}

// GlobalSettingsPath returns the per-user settings file.
func GlobalSettingsPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, GlobalConfigDirName, SettingsFileName), nil
}

// GlobalConfigDir returns the per-user config directory.
func GlobalConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, GlobalConfigDirName), nil
}
