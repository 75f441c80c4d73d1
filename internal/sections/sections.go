// Package sections extracts named blocks from structured LLM responses.
//
// Responses are instructed to follow a fixed template of heading lines in a
// fixed order. Extraction is all-or-nothing: a partially matched template
// means the model ignored its instructions, and partial output would be
// misleading to consumers.
package sections

import (
	"regexp"
	"strings"
)

var bulletRe = regexp.MustCompile("(?m)^\\s*-\\s+`?([^`\\n]+?)`?\\s*$")

// Extract returns the text between consecutive headers, trimmed. Every
// header must be present, and their first occurrences must appear in the
// given order; otherwise ok is false and no sections are returned.
func Extract(text string, headers []string) (contents []string, ok bool) {
	if len(headers) == 0 {
		return nil, false
	}

	// A synthetic leading newline lets a header at position 0 match the
	// same "\n"+header form as any other.
	text = "\n" + text

	indices := make([]int, len(headers))
	for i, header := range headers {
		idx := strings.Index(text, "\n"+header)
		if idx < 0 {
			return nil, false
		}
		if i > 0 && idx <= indices[i-1] {
			return nil, false
		}
		indices[i] = idx
	}

	contents = make([]string, len(headers))
	for i, header := range headers {
		// Content starts after the remainder of the header's line.
		start := indices[i] + 1 + len(header)
		if eol := strings.IndexByte(text[start:], '\n'); eol >= 0 {
			start += eol
		} else {
			start = len(text)
		}

		end := len(text)
		if i+1 < len(headers) {
			end = indices[i+1]
		}
		if start > end {
			start = end
		}
		contents[i] = strings.TrimSpace(text[start:end])
	}
	return contents, true
}

// ParseBulletPaths parses list-item lines of the form "- `path`" (backticks
// optional) into an ordered list of trimmed path strings.
func ParseBulletPaths(section string) []string {
	var paths []string
	for _, m := range bulletRe.FindAllStringSubmatch(section, -1) {
		path := strings.TrimSpace(m[1])
		if path != "" {
			paths = append(paths, path)
		}
	}
	return paths
}
