// Package issuectx assembles the conversational context of an issue or
// pull request: body, merged comments from all sources, the reduced diff,
// and recursively collected referenced issues.
package issuectx

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/resolvebot/resolvebot/internal/diffreduce"
	"github.com/resolvebot/resolvebot/internal/githubapi"
	"github.com/resolvebot/resolvebot/internal/output"
	"github.com/resolvebot/resolvebot/internal/textutil"
)

// DefaultMetadataHeading marks the start of tool-written metadata in PR
// bodies, stripped before the body is used as context.
const DefaultMetadataHeading = "## Metadata"

// refTokenRe matches #NNN cross-references preceded by start or whitespace.
var refTokenRe = regexp.MustCompile(`(?:^|\s)#(\d+)`)

// Comment is one entry of the merged comment sequence. CodeLocation and
// CodeContent are set only for review-thread comments, ReviewState only
// for review verdicts.
type Comment struct {
	Author       string
	Body         string
	CodeLocation string
	CodeContent  string
	ReviewState  string
}

// Context is one node of the issue context tree. CodeChanges is populated
// only on a root node that is a pull request; referenced nodes never carry
// diffs.
type Context struct {
	Number      int
	Author      string
	Title       string
	Description string
	Comments    []Comment
	CodeChanges string
	Referenced  []*Context
}

// Options tunes context collection.
type Options struct {
	// RedactPattern is removed from every description; invalid patterns
	// are skipped with a warning.
	RedactPattern string
	// MetadataHeading truncates PR bodies; empty means DefaultMetadataHeading.
	MetadataHeading string
	// Diff controls diff reduction for the root pull request.
	Diff diffreduce.Options
}

// Collector fetches issue context trees through a githubapi.Client.
type Collector struct {
	gh   githubapi.Client
	ui   *output.UI
	opts Options
}

// NewCollector creates a Collector.
func NewCollector(gh githubapi.Client, ui *output.UI, opts Options) *Collector {
	if opts.MetadataHeading == "" {
		opts.MetadataHeading = DefaultMetadataHeading
	}
	return &Collector{gh: gh, ui: ui, opts: opts}
}

// visitSet tracks issue numbers already fetched anywhere in the tree.
// The check-and-mark step is atomic so concurrent branches cannot race to
// fetch the same number twice.
type visitSet struct {
	mu   sync.Mutex
	seen map[int]bool
}

func newVisitSet() *visitSet {
	return &visitSet{seen: make(map[int]bool)}
}

// visit marks n and reports whether this was its first visit.
func (v *visitSet) visit(n int) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.seen[n] {
		return false
	}
	v.seen[n] = true
	return true
}

// Collect fetches the context tree rooted at number. A failure to fetch
// the root subject is fatal; failures on referenced issues are warned
// about and omitted.
func (c *Collector) Collect(ctx context.Context, number int) (*Context, error) {
	visited := newVisitSet()
	visited.visit(number)

	node, err := c.fetch(ctx, number, visited, true)
	if err != nil {
		return nil, err
	}
	return node, nil
}

// fetch assembles one node. The caller must have marked number in visited
// before calling; with a nil error, a nil node means the issue was
// unavailable and should be omitted.
func (c *Collector) fetch(ctx context.Context, number int, visited *visitSet, isRoot bool) (*Context, error) {
	issue, err := c.gh.Issue(ctx, number)
	if err != nil {
		if isRoot {
			return nil, fmt.Errorf("fetch #%d: %w", number, err)
		}
		c.ui.Warning("Skipping referenced #%d: %v", number, err)
		return nil, nil
	}

	comments, err := c.gh.Comments(ctx, number)
	if err != nil {
		c.ui.Warning("Comments for #%d unavailable: %v", number, err)
		comments = nil
	}

	var scan strings.Builder
	scan.WriteString(issue.Body)
	for _, comment := range comments {
		scan.WriteString("\n")
		scan.WriteString(comment.Body)
	}
	refs := scanRefs(scan.String())

	node := &Context{
		Number:      number,
		Author:      issue.Author,
		Title:       issue.Title,
		Description: c.describe(issue),
	}

	merged := make([]timedComment, 0, len(comments))
	for _, comment := range comments {
		merged = append(merged, timedComment{
			Comment: Comment{Author: comment.Author, Body: comment.Body},
			at:      comment.CreatedAt,
		})
	}

	if issue.IsPullRequest && isRoot {
		extra, codeChanges := c.fetchPullRequestDetail(ctx, number)
		merged = append(merged, extra...)
		node.CodeChanges = codeChanges
	}

	node.Referenced = c.fetchReferenced(ctx, refs, visited)

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].at.Before(merged[j].at)
	})
	for _, tc := range merged {
		if strings.TrimSpace(tc.Body) == "" {
			continue
		}
		node.Comments = append(node.Comments, tc.Comment)
	}

	return node, nil
}

// timedComment carries the creation timestamp used for the chronological
// merge; the timestamp is dropped from the output shape.
type timedComment struct {
	Comment
	at time.Time
}

// fetchPullRequestDetail fetches the diff, unresolved review-thread
// comments, and review verdicts for the root pull request. The three
// fetches run concurrently; each failure degrades to a warning.
func (c *Collector) fetchPullRequestDetail(ctx context.Context, number int) ([]timedComment, string) {
	var (
		wg         sync.WaitGroup
		diff       string
		diffErr    error
		threads    []githubapi.ReviewThread
		threadsErr error
		reviews    []githubapi.Review
		reviewsErr error
	)

	wg.Add(3)
	go func() { defer wg.Done(); diff, diffErr = c.gh.Diff(ctx, number) }()
	go func() { defer wg.Done(); threads, threadsErr = c.gh.ReviewThreads(ctx, number) }()
	go func() { defer wg.Done(); reviews, reviewsErr = c.gh.Reviews(ctx, number) }()
	wg.Wait()

	var merged []timedComment

	codeChanges := ""
	if diffErr != nil {
		c.ui.Warning("Diff for #%d unavailable: %v", number, diffErr)
	} else if diff != "" {
		codeChanges = diffreduce.Reduce(diff, c.opts.Diff)
	}

	if threadsErr != nil {
		c.ui.Warning("Review threads for #%d unavailable: %v", number, threadsErr)
	}
	for _, thread := range threads {
		if thread.IsResolved {
			continue
		}
		for _, tc := range thread.Comments {
			merged = append(merged, timedComment{
				Comment: Comment{
					Author:       tc.Author,
					Body:         tc.Body,
					CodeLocation: fmt.Sprintf("%s:%d", tc.Path, tc.Line),
					CodeContent:  extractCodeLine(tc.DiffHunk),
				},
				at: tc.CreatedAt,
			})
		}
	}

	if reviewsErr != nil {
		c.ui.Warning("Reviews for #%d unavailable: %v", number, reviewsErr)
	}
	for _, review := range reviews {
		if strings.TrimSpace(review.Body) == "" {
			continue
		}
		merged = append(merged, timedComment{
			Comment: Comment{
				Author:      review.Author,
				Body:        review.Body,
				ReviewState: review.State,
			},
			at: review.SubmittedAt,
		})
	}

	return merged, codeChanges
}

// fetchReferenced fans out over reference numbers concurrently while
// keeping results in first-appearance order. Each number is marked in the
// visited set before its fetch is dispatched.
func (c *Collector) fetchReferenced(ctx context.Context, refs []int, visited *visitSet) []*Context {
	if len(refs) == 0 {
		return nil
	}

	results := make([]*Context, len(refs))
	g, gctx := errgroup.WithContext(ctx)
	for i, ref := range refs {
		if !visited.visit(ref) {
			continue
		}
		g.Go(func() error {
			child, err := c.fetch(gctx, ref, visited, false)
			if err != nil {
				return err
			}
			results[i] = child
			return nil
		})
	}
	// Non-root fetches degrade internally and never return errors.
	_ = g.Wait()

	var referenced []*Context
	for _, child := range results {
		if child != nil {
			referenced = append(referenced, child)
		}
	}
	return referenced
}

// describe builds the normalized description. Order matters: HTML comments
// are stripped first, then PR metadata is cut, then redaction applies, then
// newlines are normalized.
func (c *Collector) describe(issue *githubapi.Issue) string {
	body := textutil.StripHTMLComments(issue.Body)
	if issue.IsPullRequest {
		body = textutil.StripMetadataSection(body, c.opts.MetadataHeading)
	}
	redacted, ok := textutil.RemoveRegexPattern(body, c.opts.RedactPattern)
	if !ok {
		c.ui.Warning("Invalid redact pattern %q, skipping redaction", c.opts.RedactPattern)
	} else {
		body = redacted
	}
	return textutil.NormalizeNewlines(body)
}

// scanRefs returns the distinct referenced issue numbers in order of first
// appearance.
func scanRefs(text string) []int {
	var refs []int
	seen := make(map[int]bool)
	for _, m := range refTokenRe.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil || seen[n] {
			continue
		}
		seen[n] = true
		refs = append(refs, n)
	}
	return refs
}

// extractCodeLine pulls the first meaningful added or removed line out of
// a diff hunk: a +/- line that is not a file marker and has more than one
// character of content.
func extractCodeLine(hunk string) string {
	for _, line := range strings.Split(hunk, "\n") {
		if !strings.HasPrefix(line, "+") && !strings.HasPrefix(line, "-") {
			continue
		}
		if strings.HasPrefix(line, "+++") || strings.HasPrefix(line, "---") {
			continue
		}
		if len(strings.TrimSpace(line[1:])) > 1 {
			return strings.TrimSpace(line)
		}
	}
	return ""
}
