package cli

import (
	"context"
	"fmt"
	"runtime"

	"github.com/entireio/histedit/cmd/histedit/cli/settings"
	"github.com/entireio/histedit/cmd/histedit/cli/telemetry"
	"github.com/entireio/histedit/cmd/histedit/cli/versioncheck"

	"github.com/spf13/cobra"
)

const gettingStarted = `

Getting Started:
  Run 'histedit log' to find the commit you want to change, then
  'histedit edit <commit> --author-email new@example.com' to rewrite it.
  Every rewrite backs up the branch first; 'histedit backup restore'
  puts it back.

`

const accessibilityHelp = `
Environment Variables:
  ACCESSIBLE            Set to any value (e.g., ACCESSIBLE=1) to enable accessibility
                        mode. This uses simpler text prompts instead of interactive
                        TUI elements, which works better with screen readers.
  HISTEDIT_LOG_LEVEL    Log level for the per-repository log files
                        (debug, info, warn, error).
  PAGER                 Program used to page long output (default: less).
`

// Version information (can be set at build time)
var (
	Version = "dev"
	Commit  = "unknown"
)

// NewRootCmd builds the histedit command tree.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&globalOptions{})
}

func newRootCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "histedit",
		Short: "Edit commit metadata deep in a branch's history",
		Long: "Change the author, committer, dates or message of any commit on the current\n" +
			"branch. Every descendant is rebuilt so the branch stays consistent, and trees\n" +
			"are never touched." + gettingStarted + accessibilityHelp,
		// Let main.go handle error printing to avoid duplication
		SilenceErrors: true,
		SilenceUsage:  true,
		// Hide completion command from help but keep it functional
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			versioncheck.CheckAndNotify(cmd.Context(), cmd, Version)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.repoPath, "repo", "C", ".", "Run as if histedit was started in `path`")

	cmd.AddCommand(newInfoCmd(opts))
	cmd.AddCommand(newLogCmd(opts))
	cmd.AddCommand(newShowCmd(opts))
	cmd.AddCommand(newFindCmd(opts))
	cmd.AddCommand(newEditCmd(opts))
	cmd.AddCommand(newBackupCmd(opts))
	cmd.AddCommand(newVersionCmd())

	// Replace default help command with custom one that supports -t flag
	cmd.SetHelpCommand(NewHelpCmd(cmd))

	return cmd
}

// Execute runs the command tree and reports the executed command to
// telemetry when the user opted in.
func Execute(ctx context.Context) error {
	opts := &globalOptions{}
	root := newRootCmd(opts)

	executed, err := root.ExecuteContextC(ctx)
	trackCommand(opts, executed, err == nil)
	return err //nolint:wrapcheck // main prints cobra and command errors as they are
}

func trackCommand(opts *globalOptions, cmd *cobra.Command, succeeded bool) {
	// Without a repository only the global settings file applies.
	s := opts.settings
	if s == nil {
		loaded, err := settings.Load("")
		if err != nil {
			return
		}
		s = loaded
	}

	client := telemetry.NewClient(Version, s.Telemetry)
	defer client.Close()
	client.TrackCommand(cmd, succeeded)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "histedit %s (%s)\n", Version, Commit)
			fmt.Fprintf(w, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(w, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}
