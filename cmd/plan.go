package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/resolvebot/resolvebot/internal/issuectx"
	"github.com/resolvebot/resolvebot/internal/planner"
	"github.com/resolvebot/resolvebot/internal/repopack"
	"github.com/resolvebot/resolvebot/internal/runner"
)

var planOut string

var planCmd = &cobra.Command{
	Use:   "plan <issue-number>",
	Short: "Generate a resolution plan for an issue without applying it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		number, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid issue number %q", args[0])
		}
		return planRun(cmd, number)
	},
}

func init() {
	planCmd.Flags().StringVar(&planOut, "out", "", "Write the plan as YAML to this file instead of stdout")
	rootCmd.AddCommand(planCmd)
}

func planRun(cmd *cobra.Command, number int) error {
	ctx := cmd.Context()

	gh, slug, err := newGitHubClient(ctx)
	if err != nil {
		return err
	}

	ui.Info("Collecting context for %s#%d", slug, number)
	node, err := newCollector(gh).Collect(ctx, number)
	if err != nil {
		return err
	}
	issueContext := issuectx.Serialize(node)

	cwd, err := os.Getwd()
	if err != nil {
		return err
	}

	ui.Info("Packing repository")
	repoContext, err := repopack.Pack(ctx, runner.New(cwd), cwd, repopack.Options{
		Include: viper.GetStringSlice("repopack.include"),
		Exclude: viper.GetStringSlice("repopack.exclude"),
	})
	if err != nil {
		ui.Warning("Repository packing failed, planning from issue context only: %v", err)
		repoContext = ""
	}

	client, err := newLLMClient()
	if err != nil {
		return err
	}
	p := planner.New(client, ui, viper.GetString("llm.reasoning_effort"), cwd)

	ui.Info("Requesting plan from %s", viper.GetString("llm.model"))
	var plan *planner.ResolutionPlan
	if viper.GetBool("llm.two_stage") {
		plan, err = p.TwoStage(ctx, repoContext, issueContext)
	} else {
		plan, err = p.SingleStage(ctx, repoContext, issueContext)
	}
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(plan)
	if err != nil {
		return fmt.Errorf("marshal plan: %w", err)
	}

	if planOut != "" {
		if dryRun {
			ui.DryRunMsg("Would write plan to %s", planOut)
			return nil
		}
		if err := os.WriteFile(planOut, data, 0644); err != nil {
			return fmt.Errorf("write plan: %w", err)
		}
		ui.Success("Plan written to %s", planOut)
		return nil
	}

	fmt.Fprint(ui.Out, string(data))
	return nil
}
