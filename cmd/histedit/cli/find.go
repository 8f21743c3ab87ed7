package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/entireio/histedit/cmd/histedit/cli/history"
	"github.com/entireio/histedit/cmd/histedit/cli/jsonutil"

	"github.com/spf13/cobra"
)

const defaultFindLimit = 20

func newFindCmd(opts *globalOptions) *cobra.Command {
	var (
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "find <query>",
		Short: "Fuzzy-search commit subjects on the current branch",
		Long: `Fuzzy-search the subjects of every commit reachable from HEAD.
Characters of the query must appear in order but need not be adjacent, so
"fxprs" finds "Fix parser". Best matches are listed first.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.TrimSpace(args[0])
			if query == "" {
				return errors.New("query must not be empty")
			}

			repo, err := opts.openRepo(cmd)
			if err != nil {
				return err
			}
			defer repo.close()

			results, err := repo.query().Search(repo.ctx, query, limit)
			if err != nil {
				return fmt.Errorf("searching commits: %w", err)
			}

			w := cmd.OutOrStdout()
			if asJSON {
				return jsonutil.Write(w, results) //nolint:wrapcheck // already wrapped by jsonutil
			}
			if len(results) == 0 {
				fmt.Fprintf(w, "No commit subject matches %q.\n", query)
				return nil
			}
			for _, r := range results {
				fmt.Fprint(w, formatCommitLine(r.CommitSummary, highlightMatches(r)))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", defaultFindLimit, "Show at most this many matches (0 shows all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}

// highlightMatches styles the matched characters of the subject. Match
// indexes are byte offsets into the subject.
func highlightMatches(r history.SearchResult) string {
	matched := make(map[int]bool, len(r.MatchedIndexes))
	for _, i := range r.MatchedIndexes {
		matched[i] = true
	}

	var sb strings.Builder
	for i, ch := range r.ShortMessage {
		if matched[i] {
			sb.WriteString(matchStyle.Render(string(ch)))
			continue
		}
		sb.WriteRune(ch)
	}
	return sb.String()
}
