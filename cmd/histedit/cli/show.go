package cli

import (
	"fmt"
	"strings"

	"github.com/entireio/histedit/cmd/histedit/cli/history"
	"github.com/entireio/histedit/cmd/histedit/cli/jsonutil"

	"github.com/spf13/cobra"
)

func newShowCmd(opts *globalOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <commit>",
		Short: "Show the full metadata of one commit",
		Long: `Show the full metadata of one commit: both signatures with their time zone
offsets, the parents, the tree and the complete message.

<commit> can be a full or abbreviated id, a branch name, or an expression
such as HEAD~2.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := opts.openRepo(cmd)
			if err != nil {
				return err
			}
			defer repo.close()

			id, err := repo.store.ResolveRevision(args[0])
			if err != nil {
				return fmt.Errorf("cannot resolve revision %q: %w", args[0], err)
			}
			detail, err := repo.query().Detail(repo.ctx, id)
			if err != nil {
				return err //nolint:wrapcheck // ResolutionError names the commit
			}

			w := cmd.OutOrStdout()
			if asJSON {
				return jsonutil.Write(w, detail) //nolint:wrapcheck // already wrapped by jsonutil
			}
			fmt.Fprint(w, formatCommitDetail(detail))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}

func formatCommitDetail(d history.CommitDetail) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "%s %s\n", headerStyle.Render("commit"), idStyle.Render(d.ID))
	switch {
	case d.IsMerge:
		fmt.Fprintf(&sb, "Merge:     %s\n", strings.Join(d.Parents, " "))
	case len(d.Parents) == 1:
		fmt.Fprintf(&sb, "Parent:    %s\n", d.Parents[0])
	default:
		fmt.Fprintln(&sb, "Parent:    (root commit)")
	}
	fmt.Fprintf(&sb, "Tree:      %s\n", d.Tree)
	fmt.Fprintf(&sb, "Author:    %s\n", formatSignatureDetail(d.Author))
	fmt.Fprintf(&sb, "Committer: %s\n", formatSignatureDetail(d.Committer))
	sb.WriteString("\n")

	for _, line := range strings.Split(strings.TrimRight(d.Message, "\n"), "\n") {
		fmt.Fprintf(&sb, "    %s\n", line)
	}
	return sb.String()
}
