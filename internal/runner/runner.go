// Package runner provides process execution with captured output, used by
// the test/fix loop, the coding-tool backends, and git operations.
package runner

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Result holds the captured outcome of one process invocation.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner runs external programs and captures stdout/stderr/exit status.
// A nonzero exit status is reported via Result.ExitCode, not as an error;
// the error return is reserved for failures to run the program at all.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (Result, error)
}

// ExecRunner implements Runner with os/exec. Dir, when set, is the working
// directory for every invocation.
type ExecRunner struct {
	Dir string
}

// New returns an ExecRunner rooted at dir.
func New(dir string) *ExecRunner {
	return &ExecRunner{Dir: dir}
}

func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = r.Dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		return res, fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return res, nil
}

// RunShell runs a command line through the shell, for configured commands
// like test.command that may contain pipes or arguments.
func RunShell(ctx context.Context, r Runner, command string) (Result, error) {
	return r.Run(ctx, "sh", "-c", command)
}
