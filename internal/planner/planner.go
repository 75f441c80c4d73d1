// Package planner turns collected issue context into a resolution plan by
// querying a language model and extracting the structured sections from its
// response.
package planner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/resolvebot/resolvebot/internal/llm"
	"github.com/resolvebot/resolvebot/internal/output"
	"github.com/resolvebot/resolvebot/internal/sections"
	"github.com/resolvebot/resolvebot/internal/textutil"
)

// ResolutionPlan is the extracted output of a planning call. Fields may be
// empty when the model's response did not follow the requested template;
// downstream consumers fall back to the raw issue context in that case.
type ResolutionPlan struct {
	Plan          string   `yaml:"plan,omitempty"`
	FilePaths     []string `yaml:"file_paths,omitempty"`
	CommitMessage string   `yaml:"commit_message,omitempty"`
}

// Empty reports whether no section was recovered at all.
func (p *ResolutionPlan) Empty() bool {
	return p.Plan == "" && len(p.FilePaths) == 0 && p.CommitMessage == ""
}

// Planner issues planning calls against a configured model.
type Planner struct {
	client  llm.Client
	ui      *output.UI
	effort  string
	repoDir string
}

// New creates a Planner. repoDir is the root used to resolve file paths the
// model selects in two-stage mode.
func New(client llm.Client, ui *output.UI, reasoningEffort, repoDir string) *Planner {
	return &Planner{
		client:  client,
		ui:      ui,
		effort:  reasoningEffort,
		repoDir: repoDir,
	}
}

// SingleStage asks for the plan, file list, and commit message in one call.
// A response that does not match the template degrades to an empty plan
// rather than failing the pipeline.
func (p *Planner) SingleStage(ctx context.Context, repoContext, issueContext string) (*ResolutionPlan, error) {
	system, user := buildSingleStagePrompt(repoContext, issueContext)
	text, err := p.complete(ctx, system, user)
	if err != nil {
		return nil, fmt.Errorf("planning call: %w", err)
	}

	plan := &ResolutionPlan{}
	contents, ok := sections.Extract(stripFence(text), []string{headerPlan, headerModified, headerCommit})
	if !ok {
		p.ui.Warning("planning response did not follow the expected template; proceeding without a structured plan")
		return plan, nil
	}
	plan.Plan = contents[0]
	plan.FilePaths = sections.ParseBulletPaths(contents[1])
	plan.CommitMessage = stripFence(contents[2])
	return plan, nil
}

// TwoStage first asks which files matter, reads them, and then asks for the
// plan with their contents in view. Stage failures degrade: a failed file
// selection yields an empty plan, a failed second stage yields a plan with
// only the file list.
func (p *Planner) TwoStage(ctx context.Context, repoContext, issueContext string) (*ResolutionPlan, error) {
	system, user := buildFileSelectionPrompt(repoContext, issueContext)
	text, err := p.complete(ctx, system, user)
	if err != nil {
		return nil, fmt.Errorf("file selection call: %w", err)
	}

	plan := &ResolutionPlan{}
	contents, ok := sections.Extract(stripFence(text), []string{headerModified, headerReferred})
	if !ok {
		p.ui.Warning("file selection response did not follow the expected template; proceeding without a structured plan")
		return plan, nil
	}
	plan.FilePaths = sections.ParseBulletPaths(contents[0])
	referred := sections.ParseBulletPaths(contents[1])

	fileContents := p.readFiles(dedupe(append(append([]string{}, plan.FilePaths...), referred...)))

	system, user = buildPlanPrompt(fileContents, issueContext)
	text, err = p.complete(ctx, system, user)
	if err != nil {
		return nil, fmt.Errorf("planning call: %w", err)
	}

	contents, ok = sections.Extract(stripFence(text), []string{headerPlan, headerCommit})
	if !ok {
		p.ui.Warning("planning response did not follow the expected template; keeping file list only")
		return plan, nil
	}
	plan.Plan = contents[0]
	plan.CommitMessage = stripFence(contents[1])
	return plan, nil
}

func (p *Planner) complete(ctx context.Context, system, user string) (string, error) {
	return p.client.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: system},
			{Role: llm.RoleUser, Content: user},
		},
		ReasoningEffort: p.effort,
	})
}

// readFiles renders the named repo files as labeled fenced blocks. Unreadable
// paths are warned about and skipped; models occasionally invent paths.
func (p *Planner) readFiles(paths []string) string {
	var sb strings.Builder
	for _, path := range paths {
		data, err := os.ReadFile(filepath.Join(p.repoDir, filepath.Clean(path)))
		if err != nil {
			p.ui.Warning("skipping unreadable file %s: %v", path, err)
			continue
		}
		content := string(data)
		fence := textutil.SelectFence(content, '`')
		fmt.Fprintf(&sb, "%s:\n%s\n%s\n%s\n\n", path, fence, content, fence)
	}
	return sb.String()
}

func dedupe(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	var out []string
	for _, p := range paths {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}
