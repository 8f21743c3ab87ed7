package cli

import (
	"errors"
	"fmt"

	"github.com/entireio/histedit/cmd/histedit/cli/history"
	"github.com/entireio/histedit/cmd/histedit/cli/jsonutil"
	"github.com/entireio/histedit/cmd/histedit/cli/paths"

	"github.com/spf13/cobra"
)

// backupEntry is the --json form of a backup.
type backupEntry struct {
	Branch string `json:"branch"`
	Ref    string `json:"ref"`
	Exists bool   `json:"exists"`
	Commit string `json:"commit,omitempty"`
}

func toBackupEntry(s history.BackupState) backupEntry {
	e := backupEntry{Branch: s.Branch, Ref: s.Ref.String(), Exists: s.Exists}
	if s.Exists {
		e.Commit = s.BackedUpID.String()
	}
	return e
}

func newBackupCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Inspect or restore the tip saved before the last rewrite",
		Long: `Every edit saves the branch tip under refs/histedit/backup/<branch> before
it writes anything, replacing the previous backup of that branch. Backups are
never shown as branches or tags and are never removed automatically.

Backup names follow branch names, so a leftover backup of "a" blocks an edit
of "a/b" (and the reverse) until it is restored or deleted with
'git update-ref -d refs/histedit/backup/a'.`,
	}

	cmd.AddCommand(newBackupStatusCmd(opts))
	cmd.AddCommand(newBackupListCmd(opts))
	cmd.AddCommand(newBackupRestoreCmd(opts))
	return cmd
}

func newBackupStatusCmd(opts *globalOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status [branch]",
		Short: "Show whether a branch has a backup",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := opts.openRepo(cmd)
			if err != nil {
				return err
			}
			defer repo.close()

			branch, err := branchArg(repo, args)
			if err != nil {
				return err
			}
			state, err := history.NewBackupManager(repo.store).Check(repo.ctx, branch)
			if err != nil {
				return fmt.Errorf("checking backup: %w", err)
			}

			w := cmd.OutOrStdout()
			if asJSON {
				return jsonutil.Write(w, toBackupEntry(state)) //nolint:wrapcheck // already wrapped by jsonutil
			}
			if !state.Exists {
				fmt.Fprintf(w, "No backup for %s.\n", branch)
				return nil
			}
			fmt.Fprintf(w, "Backup of %s: %s (%s)\n", branch, idStyle.Render(state.BackedUpID.String()), state.Ref)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}

func newBackupListCmd(opts *globalOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every branch that has a backup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, err := opts.openRepo(cmd)
			if err != nil {
				return err
			}
			defer repo.close()

			states, err := history.NewBackupManager(repo.store).List(repo.ctx)
			if err != nil {
				return err //nolint:wrapcheck // already wrapped by the backup manager
			}

			w := cmd.OutOrStdout()
			if asJSON {
				entries := make([]backupEntry, 0, len(states))
				for _, s := range states {
					entries = append(entries, toBackupEntry(s))
				}
				return jsonutil.Write(w, entries) //nolint:wrapcheck // already wrapped by jsonutil
			}
			if len(states) == 0 {
				fmt.Fprintln(w, "No backups.")
				return nil
			}
			for _, s := range states {
				fmt.Fprintf(w, "%s %s\n", idStyle.Render(paths.ShortID(s.BackedUpID.String())), s.Branch)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}

func newBackupRestoreCmd(opts *globalOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "restore [branch]",
		Short: "Reset a branch to its backup and remove the backup",
		Long: `Reset a branch to the tip it had before its last rewrite, then remove the
backup. Defaults to the current branch. Commits made on the branch since the
rewrite are no longer reachable from it afterwards.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := opts.openRepo(cmd)
			if err != nil {
				return err
			}
			defer repo.close()

			branch, err := branchArg(repo, args)
			if err != nil {
				return err
			}
			backups := history.NewBackupManager(repo.store)

			w, errW := cmd.OutOrStdout(), cmd.ErrOrStderr()
			if !yes {
				state, err := backups.Check(repo.ctx, branch)
				if err != nil {
					return fmt.Errorf("checking backup: %w", err)
				}
				if !state.Exists {
					return fmt.Errorf("%w for branch %s", history.ErrNoBackup, branch)
				}
				ok, err := confirm(
					fmt.Sprintf("Reset %s to %s?", branch, paths.ShortID(state.BackedUpID.String())),
					"Commits made on the branch since the rewrite will no longer be reachable from it.",
				)
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(errW, "Aborted. Nothing was changed.")
					return nil
				}
			}

			restored, err := backups.Restore(repo.ctx, branch)
			var cleanup *history.RestoreError
			if errors.As(err, &cleanup) {
				fmt.Fprintf(errW, "%s %v\n", warnStyle.Render("Warning:"), cleanup.Err)
				fmt.Fprintf(errW, "The backup is still at %s.\n", paths.BackupRefName(branch))
				err = nil
			}
			if err != nil {
				return err //nolint:wrapcheck // history errors name the branch
			}

			fmt.Fprintf(w, "Restored %s to %s.\n", branch, idStyle.Render(paths.ShortID(restored.String())))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

// branchArg returns the branch named on the command line, or the current one.
func branchArg(repo *repoSession, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	return repo.currentBranch()
}
