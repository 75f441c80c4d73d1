package pr

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resolvebot/resolvebot/internal/fixloop"
	"github.com/resolvebot/resolvebot/internal/githubapi"
	"github.com/resolvebot/resolvebot/internal/planner"
)

type captureClient struct {
	githubapi.Client
	created githubapi.NewPullRequest
}

func (c *captureClient) CreatePullRequest(_ context.Context, pr githubapi.NewPullRequest) (string, error) {
	c.created = pr
	return "https://github.com/acme/widgets/pull/42", nil
}

func TestTitle(t *testing.T) {
	in := Input{IssueNumber: 7, IssueTitle: "Crash on empty input"}
	assert.Equal(t, "Resolve #7: Crash on empty input", Title(in))

	in.Plan = &planner.ResolutionPlan{CommitMessage: "fix: guard empty input\n\nLonger explanation."}
	assert.Equal(t, "fix: guard empty input", Title(in))
}

func TestBody(t *testing.T) {
	t.Run("sections present and fenced", func(t *testing.T) {
		body := Body(Input{
			IssueNumber: 7,
			IssueURL:    "https://github.com/acme/widgets/issues/7",
			ContextDoc:  "# #7: Crash on empty input",
			Plan:        &planner.ResolutionPlan{Plan: "guard the nil case", FilePaths: []string{"main.go"}},
			TestResult:  &fixloop.Result{Success: true, FixLog: "## Fix attempt 1\n\nadjusted"},
		})

		assert.Contains(t, body, "Resolves #7")
		assert.Contains(t, body, "## Issue context")
		assert.Contains(t, body, "# #7: Crash on empty input")
		assert.Contains(t, body, "## Resolution plan")
		assert.Contains(t, body, "guard the nil case")
		assert.Contains(t, body, "- main.go")
		assert.Contains(t, body, "## Test and fix transcript")
		assert.NotContains(t, body, "## Attention required")
	})

	t.Run("empty sections are omitted", func(t *testing.T) {
		body := Body(Input{IssueNumber: 7, ContextDoc: "ctx"})
		assert.NotContains(t, body, "## Resolution plan")
		assert.NotContains(t, body, "## Test and fix transcript")
	})

	t.Run("fence grows past embedded backtick runs", func(t *testing.T) {
		body := Body(Input{
			IssueNumber: 1,
			ContextDoc:  "has a ```go\nblock\n``` inside",
		})
		assert.Contains(t, body, "````markdown\n")
	})

	t.Run("failed run appends attention section", func(t *testing.T) {
		body := Body(Input{
			IssueNumber: 7,
			ContextDoc:  "ctx",
			TestResult:  &fixloop.Result{Success: false, LastError: "exit status 1\nFAIL TestX"},
		})
		assert.Contains(t, body, "## Attention required")
		assert.Contains(t, body, "FAIL TestX")
	})

	t.Run("oversized body shrinks plan and transcript before context", func(t *testing.T) {
		in := Input{
			IssueNumber: 7,
			ContextDoc:  strings.Repeat("c", 2000),
			Plan:        &planner.ResolutionPlan{Plan: strings.Repeat("p", 3000)},
			TestResult:  &fixloop.Result{Success: true, FixLog: strings.Repeat("t", 3000)},
			BodyLimit:   4000,
		}
		body := Body(in)

		assert.Less(t, len(body), 4600, "body stays near the cap (markers and scaffolding excluded from the limit)")
		assert.Contains(t, body, strings.Repeat("c", 2000), "context survives intact while variable sections absorb the cut")
		assert.Contains(t, body, "characters truncated]")
	})

	t.Run("context truncates only as a last resort", func(t *testing.T) {
		in := Input{
			IssueNumber: 7,
			ContextDoc:  strings.Repeat("c", 10000),
			BodyLimit:   2000,
		}
		body := Body(in)
		assert.Less(t, len(body), 2500)
		assert.Contains(t, body, "characters truncated]")
	})
}

func TestCreate(t *testing.T) {
	t.Run("draft forced when fixes were exhausted", func(t *testing.T) {
		client := &captureClient{}
		url, err := Create(context.Background(), client, Input{
			IssueNumber: 7,
			IssueTitle:  "bug",
			ContextDoc:  "ctx",
			TestResult:  &fixloop.Result{Success: false, LastError: "boom"},
		}, "resolvebot/issue-7", "main", false)

		require.NoError(t, err)
		assert.Equal(t, "https://github.com/acme/widgets/pull/42", url)
		assert.True(t, client.created.Draft)
		assert.Equal(t, "resolvebot/issue-7", client.created.Head)
		assert.Equal(t, "main", client.created.Base)
	})

	t.Run("passing run honors configured draft flag", func(t *testing.T) {
		client := &captureClient{}
		_, err := Create(context.Background(), client, Input{
			IssueNumber: 7,
			ContextDoc:  "ctx",
			TestResult:  &fixloop.Result{Success: true},
		}, "head", "main", false)

		require.NoError(t, err)
		assert.False(t, client.created.Draft)
	})
}
