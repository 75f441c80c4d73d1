package issuectx

import (
	"fmt"
	"strings"

	"github.com/resolvebot/resolvebot/internal/textutil"
)

// Serialize renders the context tree as a structured text block suitable
// for embedding in prompts and pull request bodies. Code changes are
// wrapped in a collision-safe fence.
func Serialize(root *Context) string {
	var sb strings.Builder
	writeContext(&sb, root, 1)
	return strings.TrimSpace(sb.String())
}

func writeContext(sb *strings.Builder, node *Context, depth int) {
	heading := strings.Repeat("#", depth)

	fmt.Fprintf(sb, "%s #%d: %s (@%s)\n\n", heading, node.Number, node.Title, node.Author)
	if node.Description != "" {
		sb.WriteString(node.Description)
		sb.WriteString("\n\n")
	}

	if len(node.Comments) > 0 {
		fmt.Fprintf(sb, "%s# Comments\n\n", heading)
		for _, comment := range node.Comments {
			writeComment(sb, comment)
		}
		sb.WriteString("\n")
	}

	if node.CodeChanges != "" {
		fence := textutil.SelectFence(node.CodeChanges, '`')
		fmt.Fprintf(sb, "%s# Code Changes\n\n%sdiff\n%s\n%s\n\n", heading, fence, node.CodeChanges, fence)
	}

	for _, ref := range node.Referenced {
		writeContext(sb, ref, depth+1)
	}
}

func writeComment(sb *strings.Builder, comment Comment) {
	var annotations []string
	if comment.ReviewState != "" {
		annotations = append(annotations, "review: "+comment.ReviewState)
	}
	if comment.CodeLocation != "" {
		annotations = append(annotations, comment.CodeLocation)
	}

	header := "@" + comment.Author
	if len(annotations) > 0 {
		header += " [" + strings.Join(annotations, ", ") + "]"
	}
	fmt.Fprintf(sb, "- %s:\n", header)

	if comment.CodeContent != "" {
		fmt.Fprintf(sb, "  > %s\n", comment.CodeContent)
	}
	for _, line := range strings.Split(comment.Body, "\n") {
		fmt.Fprintf(sb, "  %s\n", line)
	}
}
