package cli

import (
	"fmt"

	"github.com/entireio/histedit/cmd/histedit/cli/jsonutil"

	"github.com/spf13/cobra"
)

func newInfoCmd(opts *globalOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show the repository, current branch and commit count",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, err := opts.openRepo(cmd)
			if err != nil {
				return err
			}
			defer repo.close()

			info, err := repo.query().Open(repo.ctx)
			if err != nil {
				return fmt.Errorf("reading repository: %w", err)
			}

			w := cmd.OutOrStdout()
			if asJSON {
				return jsonutil.Write(w, info) //nolint:wrapcheck // already wrapped by jsonutil
			}
			fmt.Fprintf(w, "%s %s\n", headerStyle.Render("Repository:"), info.Path)
			fmt.Fprintf(w, "%s %s\n", headerStyle.Render("Branch:    "), info.Branch)
			fmt.Fprintf(w, "%s %d\n", headerStyle.Render("Commits:   "), info.CommitCount)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}
