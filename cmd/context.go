package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/resolvebot/resolvebot/internal/issuectx"
)

var contextCmd = &cobra.Command{
	Use:   "context <issue-number>",
	Short: "Collect and print an issue's full discussion context",
	Long: `Collect the issue's body, comments, review threads, reduced diff, and
recursively referenced issues, and print the serialized context document.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		number, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid issue number %q", args[0])
		}
		return contextRun(cmd, number)
	},
}

func init() {
	rootCmd.AddCommand(contextCmd)
}

func contextRun(cmd *cobra.Command, number int) error {
	ctx := cmd.Context()

	gh, slug, err := newGitHubClient(ctx)
	if err != nil {
		return err
	}
	ui.VerboseLog("Collecting context for %s#%d", slug, number)

	node, err := newCollector(gh).Collect(ctx, number)
	if err != nil {
		return err
	}

	fmt.Fprintln(ui.Out, issuectx.Serialize(node))
	return nil
}
