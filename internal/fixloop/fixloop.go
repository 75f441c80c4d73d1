// Package fixloop runs the configured test command with bounded automatic
// fix retries through the coding tool.
package fixloop

import (
	"context"
	"fmt"
	"strings"

	"github.com/resolvebot/resolvebot/internal/coder"
	"github.com/resolvebot/resolvebot/internal/output"
	"github.com/resolvebot/resolvebot/internal/runner"
	"github.com/resolvebot/resolvebot/internal/textutil"
)

// Result is the outcome of the loop. FixLog accumulates the coding tool's
// responses across attempts; it stays empty when the first test run passes.
// LastError carries the final failure summary and is set iff Success is
// false.
type Result struct {
	Success   bool
	Attempts  int
	FixLog    string
	LastError string
}

// Loop retries a test command, delegating failures to a coding tool.
type Loop struct {
	runner      runner.Runner
	coder       coder.Coder
	ui          *output.UI
	testCommand string
	maxAttempts int
}

// New configures a loop. An empty testCommand makes Run a no-op success.
func New(r runner.Runner, c coder.Coder, ui *output.UI, testCommand string, maxAttempts int) *Loop {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Loop{
		runner:      r,
		coder:       c,
		ui:          ui,
		testCommand: testCommand,
		maxAttempts: maxAttempts,
	}
}

// Run executes up to maxAttempts test runs. Every failure except the last
// triggers one coding-tool fix, so a persistently failing command yields
// maxAttempts-1 fix invocations before the loop gives up.
func (l *Loop) Run(ctx context.Context) (*Result, error) {
	if l.testCommand == "" {
		return &Result{Success: true}, nil
	}

	var log strings.Builder
	var lastError string
	fixes := 0

	for attempt := 1; attempt <= l.maxAttempts; attempt++ {
		l.ui.Info("running tests (attempt %d/%d): %s", attempt, l.maxAttempts, l.testCommand)
		res, err := runner.RunShell(ctx, l.runner, l.testCommand)
		if err != nil {
			return nil, fmt.Errorf("run test command: %w", err)
		}
		if res.ExitCode == 0 {
			l.ui.Success("tests passed")
			return &Result{Success: true, Attempts: fixes, FixLog: log.String()}, nil
		}

		lastError = failureSummary(res)
		l.ui.Warning("tests failed with exit status %d", res.ExitCode)
		if attempt == l.maxAttempts {
			break
		}

		response, err := l.coder.Apply(ctx, buildFixPrompt(l.testCommand, res), nil)
		if err != nil {
			return nil, fmt.Errorf("fix attempt %d: %w", attempt, err)
		}
		fixes++
		fmt.Fprintf(&log, "## Fix attempt %d\n\n%s\n\n", attempt, strings.TrimSpace(response))
	}

	return &Result{
		Success:   false,
		Attempts:  fixes,
		FixLog:    log.String(),
		LastError: lastError,
	}, nil
}

func failureSummary(res runner.Result) string {
	return fmt.Sprintf("test command exited with status %d\nstdout:\n%s\nstderr:\n%s",
		res.ExitCode, res.Stdout, res.Stderr)
}

// buildFixPrompt embeds each stream in its own fence; stdout and stderr can
// each contain tilde runs of different lengths.
func buildFixPrompt(testCommand string, res runner.Result) string {
	outFence := textutil.SelectFence(res.Stdout, '~')
	errFence := textutil.SelectFence(res.Stderr, '~')

	var sb strings.Builder
	fmt.Fprintf(&sb, "The test command `%s` failed with exit status %d.\n\n", testCommand, res.ExitCode)
	fmt.Fprintf(&sb, "stdout:\n%s\n%s\n%s\n\n", outFence, res.Stdout, outFence)
	fmt.Fprintf(&sb, "stderr:\n%s\n%s\n%s\n\n", errFence, res.Stderr, errFence)
	sb.WriteString("Fix the underlying problem so the test command passes. Do not weaken or delete tests to make them pass.")
	return sb.String()
}
