package planner

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resolvebot/resolvebot/internal/llm"
	"github.com/resolvebot/resolvebot/internal/output"
)

// scriptedClient returns canned responses in order and records the prompts
// it was asked.
type scriptedClient struct {
	responses []string
	requests  []llm.Request
}

func (c *scriptedClient) Complete(_ context.Context, req llm.Request) (string, error) {
	c.requests = append(c.requests, req)
	if len(c.responses) == 0 {
		return "", os.ErrClosed
	}
	resp := c.responses[0]
	c.responses = c.responses[1:]
	return resp, nil
}

func quietUI() *output.UI {
	var sink strings.Builder
	return &output.UI{Out: &sink, ErrOut: &sink}
}

func TestSingleStage(t *testing.T) {
	t.Run("well formed response", func(t *testing.T) {
		client := &scriptedClient{responses: []string{
			headerPlan + "\n1. Fix the handler\n2. Add a test\n\n" +
				headerModified + "\n- `internal/server/handler.go`\n- `internal/server/handler_test.go`\n\n" +
				headerCommit + "\nfix: return 404 for unknown routes\n\nAlso covers the trailing slash case.",
		}}
		p := New(client, quietUI(), "", t.TempDir())

		plan, err := p.SingleStage(context.Background(), "repo tree", "issue text")
		require.NoError(t, err)
		assert.Equal(t, "1. Fix the handler\n2. Add a test", plan.Plan)
		assert.Equal(t, []string{"internal/server/handler.go", "internal/server/handler_test.go"}, plan.FilePaths)
		assert.Equal(t, "fix: return 404 for unknown routes\n\nAlso covers the trailing slash case.", plan.CommitMessage)

		require.Len(t, client.requests, 1)
		prompt := client.requests[0].Messages[1].Content
		assert.Contains(t, prompt, "repo tree")
		assert.Contains(t, prompt, "issue text")
	})

	t.Run("fence wrapped response", func(t *testing.T) {
		client := &scriptedClient{responses: []string{
			"```markdown\n" + headerPlan + "\nsteps\n" + headerModified + "\n- `a.go`\n" + headerCommit + "\nfix: a\n```",
		}}
		p := New(client, quietUI(), "", t.TempDir())

		plan, err := p.SingleStage(context.Background(), "", "issue")
		require.NoError(t, err)
		assert.Equal(t, "steps", plan.Plan)
		assert.Equal(t, []string{"a.go"}, plan.FilePaths)
	})

	t.Run("malformed response degrades to empty plan", func(t *testing.T) {
		client := &scriptedClient{responses: []string{"I cannot help with that."}}
		p := New(client, quietUI(), "", t.TempDir())

		plan, err := p.SingleStage(context.Background(), "", "issue")
		require.NoError(t, err)
		assert.True(t, plan.Empty())
	})

	t.Run("sections out of order degrade", func(t *testing.T) {
		client := &scriptedClient{responses: []string{
			headerCommit + "\nfix: a\n" + headerPlan + "\nsteps\n" + headerModified + "\n- `a.go`",
		}}
		p := New(client, quietUI(), "", t.TempDir())

		plan, err := p.SingleStage(context.Background(), "", "issue")
		require.NoError(t, err)
		assert.True(t, plan.Empty())
	})

	t.Run("llm error propagates", func(t *testing.T) {
		client := &scriptedClient{}
		p := New(client, quietUI(), "", t.TempDir())

		_, err := p.SingleStage(context.Background(), "", "issue")
		assert.Error(t, err)
	})
}

func TestTwoStage(t *testing.T) {
	writeFile := func(t *testing.T, dir, name, content string) {
		t.Helper()
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	t.Run("selected files feed the planning call", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "main.go", "package main")
		writeFile(t, dir, "internal/util.go", "package internal")

		client := &scriptedClient{responses: []string{
			headerModified + "\n- `main.go`\n\n" + headerReferred + "\n- `internal/util.go`\n",
			headerPlan + "\nchange main\n\n" + headerCommit + "\nfix: main",
		}}
		p := New(client, quietUI(), "", dir)

		plan, err := p.TwoStage(context.Background(), "repo tree", "issue text")
		require.NoError(t, err)
		assert.Equal(t, "change main", plan.Plan)
		assert.Equal(t, "fix: main", plan.CommitMessage)
		assert.Equal(t, []string{"main.go"}, plan.FilePaths, "referred files are context only, not part of the change set")

		require.Len(t, client.requests, 2)
		second := client.requests[1].Messages[1].Content
		assert.Contains(t, second, "package main")
		assert.Contains(t, second, "package internal")
	})

	t.Run("missing files are skipped", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "real.go", "package real")

		client := &scriptedClient{responses: []string{
			headerModified + "\n- `real.go`\n- `imaginary.go`\n\n" + headerReferred + "\n",
			headerPlan + "\nsteps\n\n" + headerCommit + "\nfix: real",
		}}
		p := New(client, quietUI(), "", dir)

		plan, err := p.TwoStage(context.Background(), "", "issue")
		require.NoError(t, err)
		assert.Equal(t, []string{"real.go", "imaginary.go"}, plan.FilePaths)
		assert.Contains(t, client.requests[1].Messages[1].Content, "package real")
		assert.NotContains(t, client.requests[1].Messages[1].Content, "imaginary.go:")
	})

	t.Run("malformed file selection degrades without a second call", func(t *testing.T) {
		client := &scriptedClient{responses: []string{"no sections here", "should never be used"}}
		p := New(client, quietUI(), "", t.TempDir())

		plan, err := p.TwoStage(context.Background(), "", "issue")
		require.NoError(t, err)
		assert.True(t, plan.Empty())
		assert.Len(t, client.requests, 1)
	})

	t.Run("malformed planning response keeps the file list", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "a.go", "package a")

		client := &scriptedClient{responses: []string{
			headerModified + "\n- `a.go`\n\n" + headerReferred + "\n",
			"garbage",
		}}
		p := New(client, quietUI(), "", dir)

		plan, err := p.TwoStage(context.Background(), "", "issue")
		require.NoError(t, err)
		assert.Equal(t, []string{"a.go"}, plan.FilePaths)
		assert.Empty(t, plan.Plan)
		assert.Empty(t, plan.CommitMessage)
	})
}

func TestStripFence(t *testing.T) {
	assert.Equal(t, "plain", stripFence("plain"))
	assert.Equal(t, "inner", stripFence("```\ninner\n```"))
	assert.Equal(t, "inner", stripFence("```markdown\ninner\n```"))
	assert.Equal(t, "a\nb", stripFence("  ```\na\nb\n```  "))
}
