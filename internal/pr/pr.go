// Package pr assembles and opens the pull request that summarizes a
// resolution run.
package pr

import (
	"context"
	"fmt"
	"strings"

	"github.com/resolvebot/resolvebot/internal/fixloop"
	"github.com/resolvebot/resolvebot/internal/githubapi"
	"github.com/resolvebot/resolvebot/internal/planner"
	"github.com/resolvebot/resolvebot/internal/textutil"
)

// DefaultBodyLimit caps the PR body; GitHub rejects bodies over 65536
// characters and review UIs degrade well before that.
const DefaultBodyLimit = 30000

// Input carries everything the body references.
type Input struct {
	IssueNumber int
	IssueTitle  string
	IssueURL    string
	ContextDoc  string
	Plan        *planner.ResolutionPlan
	TestResult  *fixloop.Result
	BodyLimit   int
}

// Title derives the PR title from the plan's commit subject, falling back to
// the issue title.
func Title(in Input) string {
	if in.Plan != nil && in.Plan.CommitMessage != "" {
		subject := in.Plan.CommitMessage
		if idx := strings.IndexByte(subject, '\n'); idx >= 0 {
			subject = subject[:idx]
		}
		return strings.TrimSpace(subject)
	}
	return fmt.Sprintf("Resolve #%d: %s", in.IssueNumber, in.IssueTitle)
}

// Body renders the PR description: the collected issue context, the plan,
// and the test/fix transcript, each in its own collision-safe fence. When
// the total exceeds the limit, the plan and transcript sections shrink
// proportionally to their share of the overflow; the context section is
// truncated only if that is still not enough.
func Body(in Input) string {
	limit := in.BodyLimit
	if limit <= 0 {
		limit = DefaultBodyLimit
	}

	contextDoc := in.ContextDoc
	planDoc := renderPlan(in.Plan)
	transcript := renderTranscript(in.TestResult)

	overhead := len(assemble(in, "", "", ""))
	budget := limit - overhead
	if budget < 0 {
		budget = 0
	}

	total := len(contextDoc) + len(planDoc) + len(transcript)
	if total > budget {
		// The context is the primary artifact, so it keeps its full
		// budget share until the variable sections are gone.
		variable := len(planDoc) + len(transcript)
		spare := budget - len(contextDoc)
		if spare < 0 {
			spare = 0
		}
		if variable > 0 && spare < variable {
			planDoc = textutil.Truncate(planDoc, spare*len(planDoc)/variable)
			transcript = textutil.Truncate(transcript, spare*len(transcript)/variable)
		}
		if len(contextDoc) > budget {
			contextDoc = textutil.Truncate(contextDoc, budget)
		}
	}

	return assemble(in, contextDoc, planDoc, transcript)
}

// Create opens the pull request. The PR is a draft when automated fixes
// were exhausted without a passing test run.
func Create(ctx context.Context, client githubapi.Client, in Input, head, base string, draft bool) (string, error) {
	if in.TestResult != nil && !in.TestResult.Success {
		draft = true
	}
	return client.CreatePullRequest(ctx, githubapi.NewPullRequest{
		Title: Title(in),
		Body:  Body(in),
		Head:  head,
		Base:  base,
		Draft: draft,
	})
}

func assemble(in Input, contextDoc, planDoc, transcript string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Resolves #%d", in.IssueNumber)
	if in.IssueURL != "" {
		fmt.Fprintf(&sb, " (%s)", in.IssueURL)
	}
	sb.WriteString("\n")

	writeSection(&sb, "Issue context", contextDoc)
	writeSection(&sb, "Resolution plan", planDoc)
	writeSection(&sb, "Test and fix transcript", transcript)

	if in.TestResult != nil && !in.TestResult.Success {
		sb.WriteString("\n## Attention required\n\nAutomated fix attempts were exhausted without a passing test run. Last failure:\n\n")
		fence := textutil.SelectFence(in.TestResult.LastError, '`')
		fmt.Fprintf(&sb, "%s\n%s\n%s\n", fence, textutil.Truncate(in.TestResult.LastError, 2000), fence)
	}
	return sb.String()
}

func writeSection(sb *strings.Builder, heading, content string) {
	if content == "" {
		return
	}
	fence := textutil.SelectFence(content, '`')
	fmt.Fprintf(sb, "\n## %s\n\n%smarkdown\n%s\n%s\n", heading, fence, content, fence)
}

func renderPlan(plan *planner.ResolutionPlan) string {
	if plan == nil || plan.Empty() {
		return ""
	}
	var sb strings.Builder
	if plan.Plan != "" {
		sb.WriteString(plan.Plan)
		sb.WriteString("\n")
	}
	if len(plan.FilePaths) > 0 {
		sb.WriteString("\nFiles:\n")
		for _, p := range plan.FilePaths {
			fmt.Fprintf(&sb, "- %s\n", p)
		}
	}
	if plan.CommitMessage != "" {
		fmt.Fprintf(&sb, "\nCommit message: %s\n", plan.CommitMessage)
	}
	return strings.TrimSpace(sb.String())
}

func renderTranscript(res *fixloop.Result) string {
	if res == nil || res.FixLog == "" {
		return ""
	}
	return strings.TrimSpace(res.FixLog)
}
