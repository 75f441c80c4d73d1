package coder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resolvebot/resolvebot/internal/planner"
	"github.com/resolvebot/resolvebot/internal/runner"
)

// recordingRunner captures the command it was asked to run.
type recordingRunner struct {
	name   string
	args   []string
	result runner.Result
	err    error
}

func (r *recordingRunner) Run(_ context.Context, name string, args ...string) (runner.Result, error) {
	r.name = name
	r.args = args
	return r.result, r.err
}

func TestNew(t *testing.T) {
	r := &recordingRunner{}

	for _, backend := range []string{"claude", "aider", "codex"} {
		c, err := New(backend, "", r)
		require.NoError(t, err, backend)
		assert.NotNil(t, c)
	}

	_, err := New("copilot", "", r)
	assert.Error(t, err)
}

func TestClaudeCoder(t *testing.T) {
	t.Run("invocation shape", func(t *testing.T) {
		r := &recordingRunner{result: runner.Result{Stdout: "done"}}
		c, err := New("claude", "", r)
		require.NoError(t, err)

		out, err := c.Apply(context.Background(), "fix the bug", nil)
		require.NoError(t, err)
		assert.Equal(t, "done", out)
		assert.Equal(t, "claude", r.name)
		assert.Equal(t, []string{"-p", "--dangerously-skip-permissions", "fix the bug"}, r.args)
	})

	t.Run("command override", func(t *testing.T) {
		r := &recordingRunner{}
		c, err := New("claude", "/opt/bin/claude-nightly", r)
		require.NoError(t, err)

		_, err = c.Apply(context.Background(), "x", nil)
		require.NoError(t, err)
		assert.Equal(t, "/opt/bin/claude-nightly", r.name)
	})

	t.Run("nonzero exit is an error with transcript preserved", func(t *testing.T) {
		r := &recordingRunner{result: runner.Result{Stdout: "partial", Stderr: "boom", ExitCode: 1}}
		c, err := New("claude", "", r)
		require.NoError(t, err)

		out, err := c.Apply(context.Background(), "x", nil)
		assert.Error(t, err)
		assert.Equal(t, "partial", out)
		assert.Contains(t, err.Error(), "boom")
	})
}

func TestAiderCoderPassesFileList(t *testing.T) {
	r := &recordingRunner{}
	c, err := New("aider", "", r)
	require.NoError(t, err)

	plan := &planner.ResolutionPlan{
		Plan:      "do the thing",
		FilePaths: []string{"a.go", "b.go"},
	}
	_, err = c.Apply(context.Background(), "fix it", plan)
	require.NoError(t, err)

	assert.Equal(t, "aider", r.name)
	assert.Equal(t, "a.go", r.args[len(r.args)-2])
	assert.Equal(t, "b.go", r.args[len(r.args)-1])
	assert.Contains(t, r.args, "--no-auto-commits")
}

func TestCodexCoder(t *testing.T) {
	r := &recordingRunner{}
	c, err := New("codex", "", r)
	require.NoError(t, err)

	_, err = c.Apply(context.Background(), "fix it", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"exec", "--full-auto", "fix it"}, r.args)
}

func TestCombinePrompt(t *testing.T) {
	assert.Equal(t, "base", combinePrompt("base", nil))
	assert.Equal(t, "base", combinePrompt("base", &planner.ResolutionPlan{}))

	combined := combinePrompt("base", &planner.ResolutionPlan{
		Plan:      "step 1",
		FilePaths: []string{"x.go"},
	})
	assert.Contains(t, combined, "base")
	assert.Contains(t, combined, "step 1")
	assert.Contains(t, combined, "- x.go")
}
