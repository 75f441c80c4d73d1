package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/resolvebot/resolvebot/internal/coder"
	"github.com/resolvebot/resolvebot/internal/fixloop"
	"github.com/resolvebot/resolvebot/internal/git"
	"github.com/resolvebot/resolvebot/internal/githubapi"
	"github.com/resolvebot/resolvebot/internal/issuectx"
	"github.com/resolvebot/resolvebot/internal/models"
	"github.com/resolvebot/resolvebot/internal/planner"
	"github.com/resolvebot/resolvebot/internal/pr"
	"github.com/resolvebot/resolvebot/internal/repopack"
	"github.com/resolvebot/resolvebot/internal/runner"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <issue-number>",
	Short: "Resolve an issue end to end and open a pull request",
	Long: `Run the full pipeline for an issue: collect its discussion context,
generate a resolution plan, apply the change with the configured coding
tool, run the test command with automated fix retries, and open a pull
request summarizing the run.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		number, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid issue number %q", args[0])
		}
		return resolveRun(cmd, number)
	},
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}

func resolveRun(cmd *cobra.Command, number int) error {
	ctx := cmd.Context()

	gh, slug, err := newGitHubClient(ctx)
	if err != nil {
		return err
	}

	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	gc := git.NewClient()
	repoRoot, err := gc.RepoRoot(cwd)
	if err != nil {
		return fmt.Errorf("not inside a git repository: %w", err)
	}
	if dirty, err := gc.IsDirty(repoRoot); err != nil {
		return err
	} else if dirty {
		return fmt.Errorf("working tree has uncommitted changes, commit or stash them first")
	}

	if dryRun {
		ui.DryRunMsg("Would resolve %s#%d on branch %s", slug, number, git.BranchName(number))
		return nil
	}

	s, err := getStore()
	if err != nil {
		return err
	}
	run := &models.Run{
		IssueNumber:  number,
		Repo:         slug,
		Branch:       git.BranchName(number),
		Model:        viper.GetString("llm.model"),
		CoderBackend: viper.GetString("coder.backend"),
	}
	if err := s.CreateRun(ctx, run); err != nil {
		return err
	}

	url, runErr := resolvePipeline(ctx, gh, gc, repoRoot, number, run)

	ended := time.Now().UTC()
	run.EndedAt = &ended
	if runErr != nil {
		run.Status = models.RunStatusFailed
		run.Error = runErr.Error()
	} else {
		run.Status = models.RunStatusSucceeded
		run.PRURL = url
	}
	if err := s.UpdateRun(ctx, run); err != nil {
		ui.Warning("Failed to record run outcome: %v", err)
	}

	if runErr != nil {
		return runErr
	}
	ui.Success("Pull request created: %s", url)
	return nil
}

// resolvePipeline runs the stages after preflight. It mutates run with the
// per-stage results the run record tracks.
func resolvePipeline(ctx context.Context, gh githubapi.Client, gc git.Client, repoRoot string, number int, run *models.Run) (string, error) {
	// 1. Collect issue context
	ui.Info("Collecting context for #%d", number)
	node, err := newCollector(gh).Collect(ctx, number)
	if err != nil {
		return "", err
	}
	issueContext := issuectx.Serialize(node)

	// 2. Pack the repository for the planning prompt
	r := runner.New(repoRoot)
	ui.Info("Packing repository")
	repoContext, err := repopack.Pack(ctx, r, repoRoot, repopack.Options{
		Include: viper.GetStringSlice("repopack.include"),
		Exclude: viper.GetStringSlice("repopack.exclude"),
	})
	if err != nil {
		ui.Warning("Repository packing failed, planning from issue context only: %v", err)
		repoContext = ""
	}

	// 3. Generate the plan
	client, err := newLLMClient()
	if err != nil {
		return "", err
	}
	p := planner.New(client, ui, viper.GetString("llm.reasoning_effort"), repoRoot)

	ui.Info("Requesting plan from %s", viper.GetString("llm.model"))
	var plan *planner.ResolutionPlan
	if viper.GetBool("llm.two_stage") {
		plan, err = p.TwoStage(ctx, repoContext, issueContext)
	} else {
		plan, err = p.SingleStage(ctx, repoContext, issueContext)
	}
	if err != nil {
		return "", err
	}

	// 4. Branch and apply the change
	branch := git.BranchName(number)
	if err := gc.CreateBranch(repoRoot, branch); err != nil {
		return "", err
	}

	c, err := coder.New(viper.GetString("coder.backend"), viper.GetString("coder.command"), r)
	if err != nil {
		return "", err
	}
	ui.Info("Applying change with %s", viper.GetString("coder.backend"))
	prompt := fmt.Sprintf("Resolve the GitHub issue described below.\n\n%s", issueContext)
	if _, err := c.Apply(ctx, prompt, plan); err != nil {
		return "", err
	}

	dirty, err := gc.IsDirty(repoRoot)
	if err != nil {
		return "", err
	}
	if !dirty {
		return "", fmt.Errorf("coding tool made no changes to the working tree")
	}

	// 5. Test with bounded fix retries
	loop := fixloop.New(r, c, ui, viper.GetString("test.command"), viper.GetInt("test.max_attempts"))
	testResult, err := loop.Run(ctx)
	if err != nil {
		return "", err
	}
	run.TestsPassed = testResult.Success
	run.FixAttempts = testResult.Attempts

	// 6. Commit and push
	commitMessage := plan.CommitMessage
	if commitMessage == "" {
		commitMessage = fmt.Sprintf("Resolve #%d: %s", number, node.Title)
	}
	run.CommitMessage = commitMessage

	if err := gc.AddAll(repoRoot); err != nil {
		return "", err
	}
	if err := gc.Commit(repoRoot, commitMessage); err != nil {
		return "", err
	}
	if err := gc.Push(repoRoot, branch); err != nil {
		return "", err
	}

	// 7. Open the pull request
	base := viper.GetString("pr.base")
	if base == "" {
		base, _ = gc.DefaultBranch(repoRoot)
	}
	url, err := pr.Create(ctx, gh, pr.Input{
		IssueNumber: number,
		IssueTitle:  node.Title,
		ContextDoc:  issueContext,
		Plan:        plan,
		TestResult:  testResult,
		BodyLimit:   viper.GetInt("pr.body_limit"),
	}, branch, base, viper.GetBool("pr.draft"))
	if err != nil {
		return "", err
	}
	return url, nil
}
