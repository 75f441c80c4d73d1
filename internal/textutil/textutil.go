// Package textutil provides the string transforms used to sanitize issue
// bodies and to embed untrusted text in larger documents.
package textutil

import (
	"fmt"
	"regexp"
	"strings"
)

var htmlCommentRe = regexp.MustCompile(`(?s)<!--.*?-->`)

// Truncate returns text unchanged when it fits within maxLength, otherwise
// the first maxLength characters plus a marker stating how many characters
// were dropped. The marker does not count against the limit.
func Truncate(text string, maxLength int) string {
	if len(text) <= maxLength {
		return text
	}
	omitted := len(text) - maxLength
	return text[:maxLength] + fmt.Sprintf("\n... [%d characters truncated]", omitted)
}

// StripHTMLComments removes every <!-- ... --> span, including multi-line
// ones. Unterminated markers are left untouched.
func StripHTMLComments(text string) string {
	return htmlCommentRe.ReplaceAllString(text, "")
}

// StripMetadataSection cuts text at the first occurrence of headingMarker.
// Everything from the marker onward is dropped.
func StripMetadataSection(text, headingMarker string) string {
	if headingMarker == "" {
		return text
	}
	if idx := strings.Index(text, headingMarker); idx >= 0 {
		return text[:idx]
	}
	return text
}

// StripLogSections removes every block consisting of a top-level heading
// whose text ends in "Log" immediately followed by a fenced code block.
// The result is trimmed.
func StripLogSections(text string) string {
	lines := strings.Split(text, "\n")
	var kept []string
	for i := 0; i < len(lines); i++ {
		if !isLogHeading(lines[i]) {
			kept = append(kept, lines[i])
			continue
		}
		// A log heading only starts a removable block when the next
		// non-blank line opens a fence.
		j := i + 1
		for j < len(lines) && strings.TrimSpace(lines[j]) == "" {
			j++
		}
		fence := fenceOpener(lines, j)
		if fence == "" {
			kept = append(kept, lines[i])
			continue
		}
		close := findFenceClose(lines, j+1, fence)
		if close < 0 {
			kept = append(kept, lines[i])
			continue
		}
		i = close
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

func isLogHeading(line string) bool {
	if !strings.HasPrefix(line, "# ") {
		return false
	}
	return strings.HasSuffix(strings.TrimSpace(line), "Log")
}

// fenceOpener returns the fence string when lines[i] is a run of three or
// more backticks or tildes, otherwise "".
func fenceOpener(lines []string, i int) string {
	if i >= len(lines) {
		return ""
	}
	line := strings.TrimSpace(lines[i])
	if line == "" {
		return ""
	}
	ch := line[0]
	if ch != '`' && ch != '~' {
		return ""
	}
	n := 0
	for n < len(line) && line[n] == ch {
		n++
	}
	if n < 3 || n != len(line) {
		return ""
	}
	return line
}

func findFenceClose(lines []string, from int, fence string) int {
	for i := from; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == fence {
			return i
		}
	}
	return -1
}

// NormalizeNewlines converts CRLF to LF and trims surrounding whitespace.
func NormalizeNewlines(text string) string {
	return strings.TrimSpace(strings.ReplaceAll(text, "\r\n", "\n"))
}

// RemoveRegexPattern removes every match of pattern from text. The second
// return reports whether the pattern was applied; an empty pattern is a
// no-op and an invalid pattern leaves text unchanged so callers can warn
// instead of failing the run.
func RemoveRegexPattern(text, pattern string) (string, bool) {
	if pattern == "" {
		return text, true
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return text, false
	}
	return re.ReplaceAllString(text, ""), true
}

// SelectFence returns a run of fenceChar guaranteed not to appear verbatim
// in content, so content can be wrapped in a fenced block without the
// closing delimiter being ambiguous. The shortest fence returned is three
// characters; content containing a run of length L yields a fence of L+1.
func SelectFence(content string, fenceChar byte) string {
	longest := 0
	run := 0
	for i := 0; i < len(content); i++ {
		if content[i] == fenceChar {
			run++
			continue
		}
		if run >= 3 && run > longest {
			longest = run
		}
		run = 0
	}
	if run >= 3 && run > longest {
		longest = run
	}
	size := longest + 1
	if size < 3 {
		size = 3
	}
	return strings.Repeat(string(fenceChar), size)
}
