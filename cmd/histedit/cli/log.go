package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/entireio/histedit/cmd/histedit/cli/history"
	"github.com/entireio/histedit/cmd/histedit/cli/jsonutil"
	"github.com/entireio/histedit/cmd/histedit/cli/paths"

	"github.com/spf13/cobra"
)

const listTimeLayout = "2006-01-02 15:04"

func newLogCmd(opts *globalOptions) *cobra.Command {
	var (
		offset int
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "log",
		Short: "List commits reachable from HEAD, newest first",
		Long: `List commits reachable from HEAD, newest first. Parents always come after
their children; otherwise commits are ordered by committer time.

Each subject is cut to 72 characters.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if offset < 0 {
				return errors.New("--offset must not be negative")
			}

			repo, err := opts.openRepo(cmd)
			if err != nil {
				return err
			}
			defer repo.close()

			commits, err := repo.query().List(repo.ctx, offset, limit)
			if err != nil {
				return fmt.Errorf("listing commits: %w", err)
			}

			w := cmd.OutOrStdout()
			if asJSON {
				return jsonutil.Write(w, commits) //nolint:wrapcheck // already wrapped by jsonutil
			}
			if len(commits) == 0 {
				fmt.Fprintln(w, "No commits.")
				return nil
			}
			outputWithPager(repo.ctx, w, formatCommitList(commits), repo.settings.PagerEnabled())
			return nil
		},
	}

	cmd.Flags().IntVar(&offset, "offset", 0, "Skip this many commits")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Show at most this many commits (0 shows all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}

func formatCommitList(commits []history.CommitSummary) string {
	var sb strings.Builder
	for _, c := range commits {
		sb.WriteString(formatCommitLine(c, c.ShortMessage))
	}
	return sb.String()
}

// formatCommitLine renders one "<id> <subject> (<author>, <date>)" row.
func formatCommitLine(c history.CommitSummary, subject string) string {
	when := time.Unix(c.AuthorTime, 0).Format(listTimeLayout)
	return fmt.Sprintf("%s %s %s\n",
		idStyle.Render(paths.ShortID(c.ID)),
		subject,
		dimStyle.Render(fmt.Sprintf("(%s, %s)", c.AuthorName, when)),
	)
}
