package planner

import (
	"strings"

	"github.com/resolvebot/resolvebot/internal/textutil"
)

// Section headers the model is instructed to emit. Extraction is strict,
// so these must match the prompt template exactly.
const (
	headerPlan     = "### Implementation Plans"
	headerModified = "### File Paths to be Modified"
	headerReferred = "### File Paths to be Referred"
	headerCommit   = "### Commit Message"
)

// buildSingleStagePrompt asks for plan, file list, and commit message in
// one response.
func buildSingleStagePrompt(repoContext, issueContext string) (system, user string) {
	system = `You are planning a code change to resolve a GitHub issue.
Respond with exactly these sections, in this order, using these literal headings:

` + headerPlan + `
A concrete step-by-step implementation plan.

` + headerModified + `
A bullet list of repository file paths to change, one per line, formatted as:
- ` + "`path/to/file`" + `

` + headerCommit + `
A single conventional commit message for the whole change.

Do not add any other sections or commentary.`

	var sb strings.Builder
	writeFenced(&sb, "Repository", repoContext)
	writeFenced(&sb, "Issue context", issueContext)
	sb.WriteString("Produce the plan for resolving the issue above.")
	user = sb.String()
	return
}

// buildFileSelectionPrompt is stage one of the two-stage mode: only file
// lists, no plan yet.
func buildFileSelectionPrompt(repoContext, issueContext string) (system, user string) {
	system = `You are selecting repository files relevant to a GitHub issue.
Respond with exactly these sections, in this order, using these literal headings:

` + headerModified + `
A bullet list of file paths that must change, one per line, formatted as:
- ` + "`path/to/file`" + `

` + headerReferred + `
A bullet list of file paths useful as reference while making the change, same format.

Do not add any other sections or commentary.`

	var sb strings.Builder
	writeFenced(&sb, "Repository", repoContext)
	writeFenced(&sb, "Issue context", issueContext)
	sb.WriteString("Select the files for resolving the issue above.")
	user = sb.String()
	return
}

// buildPlanPrompt is stage two: plan and commit message given the selected
// files' contents.
func buildPlanPrompt(fileContents, issueContext string) (system, user string) {
	system = `You are planning a code change to resolve a GitHub issue.
Respond with exactly these sections, in this order, using these literal headings:

` + headerPlan + `
A concrete step-by-step implementation plan.

` + headerCommit + `
A single conventional commit message for the whole change.

Do not add any other sections or commentary.`

	var sb strings.Builder
	writeFenced(&sb, "Relevant files", fileContents)
	writeFenced(&sb, "Issue context", issueContext)
	sb.WriteString("Produce the plan for resolving the issue above.")
	user = sb.String()
	return
}

// writeFenced embeds content under a label inside a collision-safe fence.
func writeFenced(sb *strings.Builder, label, content string) {
	if content == "" {
		return
	}
	fence := textutil.SelectFence(content, '`')
	sb.WriteString(label)
	sb.WriteString(":\n")
	sb.WriteString(fence)
	sb.WriteString("\n")
	sb.WriteString(content)
	sb.WriteString("\n")
	sb.WriteString(fence)
	sb.WriteString("\n\n")
}

// stripFence removes a single markdown fence wrapping the whole response,
// which models add despite instructions.
func stripFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	lines := strings.SplitN(text, "\n", 2)
	if len(lines) > 1 {
		text = lines[1]
	}
	if idx := strings.LastIndex(text, "```"); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}
