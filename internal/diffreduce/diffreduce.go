// Package diffreduce bounds the size of unified diffs before they are
// embedded in prompts or pull request bodies. Generated artifacts (bundles,
// lockfiles, vendored code) are elided down to their headers so the small
// hand-written files in the same diff stay intact.
package diffreduce

import (
	"regexp"
	"strings"
)

const (
	// DefaultTotalCap bounds the whole reduced diff.
	DefaultTotalCap = 50000
	// DefaultPerFileCap bounds any single file's section.
	DefaultPerFileCap = 10000

	fileHeader       = "diff --git "
	generatedNotice  = "[generated or binary file: content omitted]"
	fileTruncNotice  = "\n... [file diff truncated]"
	totalTruncNotice = "\n... [remaining diffs truncated]"
)

// DefaultGeneratedPatterns match path conventions for build output,
// minified bundles, lockfiles, and vendored code.
var DefaultGeneratedPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(^|/)dist/`),
	regexp.MustCompile(`(^|/)build/`),
	regexp.MustCompile(`(^|/)vendor/`),
	regexp.MustCompile(`(^|/)node_modules/`),
	regexp.MustCompile(`\.min\.(js|css)\b`),
	regexp.MustCompile(`\.(bundle|pb)\.go\b`),
	regexp.MustCompile(`(^|/)(package-lock\.json|yarn\.lock|pnpm-lock\.yaml|go\.sum)\b`),
}

// Options controls reduction. Zero values fall back to the defaults.
type Options struct {
	TotalCap          int
	PerFileCap        int
	GeneratedPatterns []*regexp.Regexp
}

func (o Options) withDefaults() Options {
	if o.TotalCap <= 0 {
		o.TotalCap = DefaultTotalCap
	}
	if o.PerFileCap <= 0 {
		o.PerFileCap = DefaultPerFileCap
	}
	if o.GeneratedPatterns == nil {
		o.GeneratedPatterns = DefaultGeneratedPatterns
	}
	return o
}

// Reduce returns diffText unchanged when it fits within the total cap.
// Otherwise it processes per-file sections in order: generated files are
// stubbed to their header lines, oversized sections are cut at the per-file
// cap, and once 90% of the total cap has been emitted the remaining
// sections are dropped behind a single notice.
func Reduce(diffText string, opts Options) string {
	opts = opts.withDefaults()
	if len(diffText) <= opts.TotalCap {
		return diffText
	}

	var out strings.Builder
	emitted := 0
	budget := opts.TotalCap * 9 / 10

	for _, section := range splitSections(diffText) {
		if section == "" {
			continue
		}

		switch {
		case isGenerated(section, opts.GeneratedPatterns):
			section = headerLines(section) + "\n" + generatedNotice + "\n"
		case len(section) > opts.PerFileCap:
			section = section[:opts.PerFileCap] + fileTruncNotice + "\n"
		}

		// Dropping the rest once 90% of the cap is spent (or when this
		// section would blow the cap itself) keeps a second pass a no-op.
		if emitted > budget || emitted+len(section) > opts.TotalCap-len(totalTruncNotice) {
			out.WriteString(totalTruncNotice)
			break
		}

		out.WriteString(section)
		emitted += len(section)
	}
	return out.String()
}

// splitSections splits a unified diff at each file-header boundary,
// keeping the header with its section. A preamble before the first header
// becomes its own section.
func splitSections(diffText string) []string {
	var sections []string
	rest := diffText
	for {
		idx := nextHeader(rest)
		if idx < 0 {
			sections = append(sections, rest)
			return sections
		}
		if idx > 0 {
			sections = append(sections, rest[:idx])
		}
		next := nextHeader(rest[idx+1:])
		if next < 0 {
			sections = append(sections, rest[idx:])
			return sections
		}
		sections = append(sections, rest[idx:idx+1+next])
		rest = rest[idx+1+next:]
	}
}

// nextHeader finds the offset of the next file header at a line start.
func nextHeader(s string) int {
	if strings.HasPrefix(s, fileHeader) {
		return 0
	}
	idx := strings.Index(s, "\n"+fileHeader)
	if idx < 0 {
		return -1
	}
	return idx + 1
}

func isGenerated(section string, patterns []*regexp.Regexp) bool {
	header, _, _ := strings.Cut(section, "\n")
	for _, re := range patterns {
		if re.MatchString(header) {
			return true
		}
	}
	return false
}

// headerLines returns the section's leading metadata lines, up to but not
// including the first hunk marker.
func headerLines(section string) string {
	var kept []string
	for _, line := range strings.Split(section, "\n") {
		if strings.HasPrefix(line, "@@") {
			break
		}
		kept = append(kept, line)
		if len(kept) >= 5 {
			break
		}
	}
	return strings.TrimRight(strings.Join(kept, "\n"), "\n")
}
