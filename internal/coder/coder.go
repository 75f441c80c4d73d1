// Package coder drives the CLI coding tool that applies a resolution plan to
// the working tree.
package coder

import (
	"context"
	"fmt"
	"strings"

	"github.com/resolvebot/resolvebot/internal/planner"
	"github.com/resolvebot/resolvebot/internal/runner"
)

// Coder applies a change described by prompt (and optionally a structured
// plan) to the repository and returns the tool's transcript.
type Coder interface {
	Apply(ctx context.Context, prompt string, plan *planner.ResolutionPlan) (string, error)
}

// New returns the backend named by the config value. command overrides the
// executable when the tool is not on PATH under its default name.
func New(backend, command string, r runner.Runner) (Coder, error) {
	switch backend {
	case "claude":
		return &claudeCoder{runner: r, command: defaultCommand(command, "claude")}, nil
	case "aider":
		return &aiderCoder{runner: r, command: defaultCommand(command, "aider")}, nil
	case "codex":
		return &codexCoder{runner: r, command: defaultCommand(command, "codex")}, nil
	default:
		return nil, fmt.Errorf("unknown coder backend %q (expected claude, aider, or codex)", backend)
	}
}

func defaultCommand(command, fallback string) string {
	if command != "" {
		return command
	}
	return fallback
}

// claudeCoder runs Claude Code headless with the prompt as positional
// argument.
type claudeCoder struct {
	runner  runner.Runner
	command string
}

func (c *claudeCoder) Apply(ctx context.Context, prompt string, plan *planner.ResolutionPlan) (string, error) {
	args := []string{"-p", "--dangerously-skip-permissions"}
	args = append(args, combinePrompt(prompt, plan))
	res, err := c.runner.Run(ctx, c.command, args...)
	if err != nil {
		return "", fmt.Errorf("run %s: %w", c.command, err)
	}
	if res.ExitCode != 0 {
		return res.Stdout, fmt.Errorf("%s exited with status %d: %s", c.command, res.ExitCode, firstLines(res.Stderr, 5))
	}
	return res.Stdout, nil
}

// aiderCoder runs aider non-interactively. The plan's file list is passed as
// positional file arguments so aider loads them into its chat up front.
type aiderCoder struct {
	runner  runner.Runner
	command string
}

func (c *aiderCoder) Apply(ctx context.Context, prompt string, plan *planner.ResolutionPlan) (string, error) {
	args := []string{"--yes-always", "--no-auto-commits", "--message", combinePrompt(prompt, plan)}
	if plan != nil {
		args = append(args, plan.FilePaths...)
	}
	res, err := c.runner.Run(ctx, c.command, args...)
	if err != nil {
		return "", fmt.Errorf("run %s: %w", c.command, err)
	}
	if res.ExitCode != 0 {
		return res.Stdout, fmt.Errorf("%s exited with status %d: %s", c.command, res.ExitCode, firstLines(res.Stderr, 5))
	}
	return res.Stdout, nil
}

// codexCoder runs the Codex CLI in full-auto exec mode.
type codexCoder struct {
	runner  runner.Runner
	command string
}

func (c *codexCoder) Apply(ctx context.Context, prompt string, plan *planner.ResolutionPlan) (string, error) {
	args := []string{"exec", "--full-auto", combinePrompt(prompt, plan)}
	res, err := c.runner.Run(ctx, c.command, args...)
	if err != nil {
		return "", fmt.Errorf("run %s: %w", c.command, err)
	}
	if res.ExitCode != 0 {
		return res.Stdout, fmt.Errorf("%s exited with status %d: %s", c.command, res.ExitCode, firstLines(res.Stderr, 5))
	}
	return res.Stdout, nil
}

// combinePrompt appends the structured plan, when one was extracted, below
// the base prompt so the tool sees both the raw context and the plan.
func combinePrompt(prompt string, plan *planner.ResolutionPlan) string {
	if plan == nil || plan.Empty() {
		return prompt
	}
	var sb strings.Builder
	sb.WriteString(prompt)
	if plan.Plan != "" {
		sb.WriteString("\n\n## Implementation plan\n\n")
		sb.WriteString(plan.Plan)
	}
	if len(plan.FilePaths) > 0 {
		sb.WriteString("\n\n## Files expected to change\n\n")
		for _, p := range plan.FilePaths {
			sb.WriteString("- ")
			sb.WriteString(p)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func firstLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	return strings.Join(lines, "\n")
}
