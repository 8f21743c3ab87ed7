package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/entireio/histedit/cmd/histedit/cli/history"
	"github.com/entireio/histedit/cmd/histedit/cli/jsonutil"
	"github.com/entireio/histedit/cmd/histedit/cli/logging"
	"github.com/entireio/histedit/cmd/histedit/cli/paths"
	"github.com/entireio/histedit/redact"

	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/cobra"
)

// errNoOverrides is returned when edit is run without anything to change.
var errNoOverrides = errors.New("nothing to change: pass at least one --author-*, --committer-* or --message flag")

// editResult is the --json output of edit.
type editResult struct {
	Branch           string `json:"branch"`
	DryRun           bool   `json:"dry_run"`
	OldTarget        string `json:"old_target"`
	NewTarget        string `json:"new_target,omitempty"`
	OldTip           string `json:"old_tip"`
	NewTip           string `json:"new_tip,omitempty"`
	CommitsRewritten int    `json:"commits_rewritten"`
	BackupRef        string `json:"backup_ref,omitempty"`
}

func newEditCmd(opts *globalOptions) *cobra.Command {
	flags := &editFlags{}

	cmd := &cobra.Command{
		Use:   "edit <commit>",
		Short: "Change the author, committer or message of a commit",
		Long: `Change the author, committer, dates or message of a commit on the current
branch. The commit and every commit that descends from it are rebuilt with
new ids; trees, parent order and all other metadata are kept. Commits that
do not descend from it, including the other side of a merge, keep their ids.

Before anything is written the branch tip is saved under
refs/histedit/backup/<branch>. Run 'histedit backup restore' to undo.

The branch is only moved if nobody else moved it during the rewrite.`,
		Example: `  histedit edit HEAD~3 --author-email me@example.com
  histedit edit 3f2a9c4e --author-date 2024-01-15T09:30:00+02:00
  histedit edit HEAD -F message.txt --dry-run`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEdit(cmd, opts, flags, args[0])
		},
	}

	flags.register(cmd)
	return cmd
}

func runEdit(cmd *cobra.Command, opts *globalOptions, flags *editFlags, rev string) error {
	overrides, err := flags.overrides(cmd)
	if err != nil {
		return err
	}
	if overrides.IsEmpty() {
		return errNoOverrides
	}

	repo, err := opts.openRepo(cmd)
	if err != nil {
		return err
	}
	defer repo.close()
	ctx := logging.WithComponent(repo.ctx, "edit")

	target, err := repo.resolve(rev)
	if err != nil {
		return err
	}

	w, errW := cmd.OutOrStdout(), cmd.ErrOrStderr()

	if overrides.Message != nil && repo.settings.SecretScanEnabled() && !flags.allowSecrets {
		if findings := redact.Scan(*overrides.Message); len(findings) > 0 {
			logging.Warn(ctx, "new message rejected by secret scan",
				slog.Int("findings", len(findings)),
				slog.String("first_rule", findings[0].RuleID),
				slog.String("subject", (&history.Commit{Message: *overrides.Message}).Subject()),
			)
			printSecretFindings(errW, findings)
			return NewSilentError(errors.New("new message looks like it contains credentials"))
		}
	}

	progress := newProgressLine(errW)
	rw := history.NewRewriter(repo.store, history.RewriterOptions{
		Progress:         progress.update,
		ProgressInterval: repo.settings.ProgressInterval,
	})

	plan, err := rw.Preview(ctx, target.ID, overrides)
	if err != nil {
		return explainRewriteError(err)
	}

	if flags.dryRun {
		if flags.asJSON {
			return jsonutil.Write(w, editResult{ //nolint:wrapcheck // already wrapped by jsonutil
				Branch:           plan.Branch,
				DryRun:           true,
				OldTarget:        target.ID.String(),
				OldTip:           plan.OldTip.String(),
				CommitsRewritten: len(plan.Rebuild),
			})
		}
		fmt.Fprint(w, formatPlan(plan))
		fmt.Fprintln(w, dimStyle.Render("Dry run: nothing was written."))
		return nil
	}

	if !flags.yes {
		fmt.Fprint(errW, formatPlan(plan))
		ok, err := confirm(
			fmt.Sprintf("Rewrite %d commit(s) on %s?", len(plan.Rebuild), plan.Branch),
			"The current tip is backed up first and can be restored with 'histedit backup restore'.",
		)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(errW, "Aborted. Nothing was changed.")
			return nil
		}
	}

	outcome, err := rw.Rewrite(ctx, target.ID, overrides)
	progress.finish()
	if err != nil {
		outcome, err = recoverReferenceUpdate(ctx, errW, rw, flags.yes, err)
		if err != nil {
			return explainRewriteError(err)
		}
	}

	if flags.asJSON {
		return jsonutil.Write(w, editResult{ //nolint:wrapcheck // already wrapped by jsonutil
			Branch:           outcome.Branch,
			OldTarget:        outcome.OldTarget.String(),
			NewTarget:        outcome.NewTarget.String(),
			OldTip:           outcome.OldTip.String(),
			NewTip:           outcome.NewTip.String(),
			CommitsRewritten: outcome.CommitsRewritten,
			BackupRef:        outcome.BackupRef.String(),
		})
	}
	fmt.Fprint(w, formatOutcome(outcome))
	return nil
}

// recoverReferenceUpdate offers to retry the final branch move when every
// commit was created but the reference write failed. Any other error is
// returned unchanged.
func recoverReferenceUpdate(ctx context.Context, errW io.Writer, rw *history.Rewriter, yes bool, err error) (*history.RewriteOutcome, error) {
	var updateErr *history.ReferenceUpdateError
	if !errors.As(err, &updateErr) {
		return nil, err
	}

	fmt.Fprintf(errW, "%s %v\n", warnStyle.Render("Branch update failed:"), updateErr.Err)
	fmt.Fprintln(errW, "All rewritten commits exist; only the branch move is missing.")

	retry := yes
	if !yes {
		ok, promptErr := confirm("Retry the branch update?", "")
		if promptErr != nil {
			return nil, err
		}
		retry = ok
	}
	if !retry {
		return nil, err
	}

	if retryErr := rw.RetryReferenceUpdate(ctx, updateErr.Pending); retryErr != nil {
		return nil, retryErr //nolint:wrapcheck // history errors are already descriptive
	}
	return updateErr.Outcome, nil
}

// explainRewriteError adds a hint for errors the user can act on.
func explainRewriteError(err error) error {
	var conflict *history.ConcurrentModificationError
	var clash *history.BackupConflictError
	switch {
	case errors.Is(err, history.ErrDetachedHead):
		return fmt.Errorf("%w: check out the branch you want to edit first", err)
	case errors.Is(err, history.ErrTargetNotFound):
		return fmt.Errorf("%w (only commits on the current branch can be edited)", err)
	case errors.As(err, &conflict):
		return fmt.Errorf("%w; nothing was changed, run the edit again", err)
	case errors.As(err, &clash):
		return fmt.Errorf("%w; nothing was changed. Restore that backup or delete it with 'git update-ref -d %s'", err, clash.Existing)
	default:
		return err
	}
}

func formatPlan(plan *history.RewritePlan) string {
	var sb strings.Builder
	t := plan.Target

	fmt.Fprintf(&sb, "%s %s on %s\n", headerStyle.Render("Editing"), idStyle.Render(paths.ShortID(t.ID.String())), plan.Branch)
	writeChange(&sb, "Author:   ", formatHistorySignature(t.Author), formatHistorySignature(plan.Author))
	writeChange(&sb, "Committer:", formatHistorySignature(t.Committer), formatHistorySignature(plan.Committer))
	if plan.Message != t.Message {
		sb.WriteString("Message:\n")
		sb.WriteString(messageDiff(t.Message, plan.Message))
	}
	fmt.Fprintf(&sb, "%d of %d commits will be rebuilt.\n", len(plan.Rebuild), plan.Walked)
	return sb.String()
}

func writeChange(sb *strings.Builder, label, before, after string) {
	if before == after {
		fmt.Fprintf(sb, "%s %s\n", label, dimStyle.Render(before))
		return
	}
	fmt.Fprintf(sb, "%s %s\n", label, removedStyle.Render("- "+before))
	fmt.Fprintf(sb, "%s %s\n", strings.Repeat(" ", len(label)), addedStyle.Render("+ "+after))
}

// messageDiff renders a line diff of two commit messages.
func messageDiff(before, after string) string {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var sb strings.Builder
	for _, d := range diffs {
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			line = strings.TrimSuffix(line, "\n")
			switch d.Type {
			case diffmatchpatch.DiffInsert:
				sb.WriteString(addedStyle.Render("  + "+line) + "\n")
			case diffmatchpatch.DiffDelete:
				sb.WriteString(removedStyle.Render("  - "+line) + "\n")
			case diffmatchpatch.DiffEqual:
				sb.WriteString("    " + line + "\n")
			}
		}
	}
	return sb.String()
}

func formatOutcome(o *history.RewriteOutcome) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Rewrote %d commit(s) on %s.\n", o.CommitsRewritten, o.Branch)
	fmt.Fprintf(&sb, "  commit %s -> %s\n", idStyle.Render(paths.ShortID(o.OldTarget.String())), idStyle.Render(paths.ShortID(o.NewTarget.String())))
	fmt.Fprintf(&sb, "  tip    %s -> %s\n", idStyle.Render(paths.ShortID(o.OldTip.String())), idStyle.Render(paths.ShortID(o.NewTip.String())))
	fmt.Fprintf(&sb, "Previous tip saved as %s; undo with 'histedit backup restore'.\n", o.BackupRef)
	return sb.String()
}

func printSecretFindings(w io.Writer, findings []redact.Finding) {
	fmt.Fprintln(w, warnStyle.Render("Refusing to use the new message: it looks like it contains credentials."))
	for _, f := range findings {
		fmt.Fprintf(w, "  line %d: %s %s\n", f.Line, f.RuleID, f.Preview)
	}
	fmt.Fprintln(w, `Pass --allow-secrets to use it anyway, or set "secret_scan": false in settings.`)
}

// progressLine draws "Rewriting commits n/total" on a terminal. On anything
// else it stays silent.
type progressLine struct {
	w       io.Writer
	enabled bool
	drawn   bool
}

func newProgressLine(w io.Writer) *progressLine {
	return &progressLine{w: w, enabled: isTerminalWriter(w)}
}

func (p *progressLine) update(current, total int) {
	if !p.enabled {
		return
	}
	fmt.Fprintf(p.w, "\rRewriting commits %d/%d", current, total)
	p.drawn = true
}

func (p *progressLine) finish() {
	if p.drawn {
		fmt.Fprintln(p.w)
		p.drawn = false
	}
}
