package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// NewHelpCmd replaces cobra's help command with one that can also print the
// whole command tree (hidden -t flag).
func NewHelpCmd(rootCmd *cobra.Command) *cobra.Command {
	var showTree bool

	helpCmd := &cobra.Command{
		Use:   "help [command]",
		Short: "Help about any command",
		Long: `Provides help for any histedit subcommand.
Simply type '` + rootCmd.Name() + ` help [command]' for full details.`,
		Run: func(cmd *cobra.Command, args []string) {
			if showTree {
				writeCommandTree(cmd.OutOrStdout(), rootCmd)
				return
			}

			target, _, err := rootCmd.Find(args)
			if err != nil || target == nil {
				target = rootCmd
			}
			target.Help() //nolint:errcheck,gosec // Help() only fails on write errors to stdout
		},
	}

	helpCmd.Flags().BoolVarP(&showTree, "tree", "t", false, "Show full command tree")
	helpCmd.Flags().MarkHidden("tree") //nolint:errcheck,gosec // flag is defined above

	return helpCmd
}

func writeCommandTree(w io.Writer, root *cobra.Command) {
	fmt.Fprintln(w, root.Name())
	writeSubtree(w, root, "")
}

func writeSubtree(w io.Writer, parent *cobra.Command, indent string) {
	children := visibleSubcommands(parent)
	for i, sub := range children {
		connector, nextIndent := "├── ", indent+"│   "
		if i == len(children)-1 {
			connector, nextIndent = "└── ", indent+"    "
		}

		line := indent + connector + sub.Name()
		if sub.Short != "" {
			line += " - " + sub.Short
		}
		fmt.Fprintln(w, line)
		writeSubtree(w, sub, nextIndent)
	}
}

func visibleSubcommands(cmd *cobra.Command) []*cobra.Command {
	var visible []*cobra.Command
	for _, sub := range cmd.Commands() {
		if !sub.Hidden && sub.Name() != "help" {
			visible = append(visible, sub)
		}
	}
	return visible
}
