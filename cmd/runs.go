package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/resolvebot/resolvebot/internal/models"
	"github.com/resolvebot/resolvebot/internal/output"
	"github.com/resolvebot/resolvebot/internal/store"
)

var (
	runsIssue  int
	runsStatus string
	runsLimit  int
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List past resolution runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runsListRun(cmd)
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show one run in detail",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runsShowRun(cmd, args[0])
	},
}

func init() {
	runsCmd.Flags().IntVar(&runsIssue, "issue", 0, "Filter by issue number")
	runsCmd.Flags().StringVar(&runsStatus, "status", "", "Filter by status (running, succeeded, failed)")
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "Maximum number of runs to show")
	runsCmd.AddCommand(runsShowCmd)
	rootCmd.AddCommand(runsCmd)
}

func runsListRun(cmd *cobra.Command) error {
	s, err := getStore()
	if err != nil {
		return err
	}

	runs, err := s.ListRuns(cmd.Context(), store.RunListFilter{
		IssueNumber: runsIssue,
		Status:      models.RunStatus(runsStatus),
		Limit:       runsLimit,
	})
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		ui.Info("No runs recorded")
		return nil
	}

	table := ui.Table([]string{"ID", "ISSUE", "STATUS", "FIXES", "PR", "STARTED"})
	for _, run := range runs {
		table.Append([]string{
			run.ID,
			fmt.Sprintf("#%d", run.IssueNumber),
			output.StatusColor(string(run.Status)),
			fmt.Sprintf("%d", run.FixAttempts),
			run.PRURL,
			run.StartedAt.Local().Format(time.DateTime),
		})
	}
	return table.Render()
}

func runsShowRun(cmd *cobra.Command, id string) error {
	s, err := getStore()
	if err != nil {
		return err
	}

	run, err := s.GetRun(cmd.Context(), id)
	if err != nil {
		return err
	}

	fmt.Fprintf(ui.Out, "ID:             %s\n", run.ID)
	fmt.Fprintf(ui.Out, "Issue:          #%d (%s)\n", run.IssueNumber, run.Repo)
	fmt.Fprintf(ui.Out, "Branch:         %s\n", run.Branch)
	fmt.Fprintf(ui.Out, "Status:         %s\n", output.StatusColor(string(run.Status)))
	fmt.Fprintf(ui.Out, "Model:          %s\n", run.Model)
	fmt.Fprintf(ui.Out, "Coder:          %s\n", run.CoderBackend)
	fmt.Fprintf(ui.Out, "Fix attempts:   %d\n", run.FixAttempts)
	fmt.Fprintf(ui.Out, "Tests passed:   %v\n", run.TestsPassed)
	if run.CommitMessage != "" {
		fmt.Fprintf(ui.Out, "Commit message: %s\n", run.CommitMessage)
	}
	if run.PRURL != "" {
		fmt.Fprintf(ui.Out, "Pull request:   %s\n", run.PRURL)
	}
	if run.Error != "" {
		fmt.Fprintf(ui.Out, "Error:          %s\n", output.Red(run.Error))
	}
	fmt.Fprintf(ui.Out, "Started:        %s\n", run.StartedAt.Local().Format(time.DateTime))
	if run.EndedAt != nil {
		fmt.Fprintf(ui.Out, "Ended:          %s\n", run.EndedAt.Local().Format(time.DateTime))
	}
	return nil
}
