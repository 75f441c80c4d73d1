// Package repopack produces a single-document snapshot of the repository for
// planning prompts by shelling out to repomix.
package repopack

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/resolvebot/resolvebot/internal/runner"
)

// Options controls which files the snapshot includes. Patterns are
// comma-joined glob lists in repomix's own syntax.
type Options struct {
	Include []string
	Exclude []string
}

// Pack runs repomix in repoDir and returns the packed document. The tool
// writes to a file rather than stdout, so output goes through a temp file.
func Pack(ctx context.Context, r runner.Runner, repoDir string, opts Options) (string, error) {
	outFile := filepath.Join(os.TempDir(), fmt.Sprintf("repopack-%d.txt", os.Getpid()))
	defer os.Remove(outFile)

	args := []string{"--output", outFile, "--style", "markdown"}
	if len(opts.Include) > 0 {
		args = append(args, "--include", strings.Join(opts.Include, ","))
	}
	if len(opts.Exclude) > 0 {
		args = append(args, "--ignore", strings.Join(opts.Exclude, ","))
	}
	args = append(args, repoDir)

	res, err := r.Run(ctx, "repomix", args...)
	if err != nil {
		return "", fmt.Errorf("run repomix: %w", err)
	}
	if res.ExitCode != 0 {
		return "", fmt.Errorf("repomix exited with status %d: %s", res.ExitCode, strings.TrimSpace(res.Stderr))
	}

	data, err := os.ReadFile(outFile)
	if err != nil {
		return "", fmt.Errorf("read repomix output: %w", err)
	}
	return string(data), nil
}
