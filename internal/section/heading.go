// Package section detects canonical paper headings and splits a document
// into contiguous section spans.
package section

import (
	"regexp"
	"strings"
)

// Title is one of the fixed canonical section names.
type Title string

const (
	Abstract     Title = "Abstract"
	Introduction Title = "Introduction"
	RelatedWork  Title = "Related Work"
	Method       Title = "Method"
	Experiment   Title = "Experiment"
	Discussion   Title = "Discussion"
	Conclusion   Title = "Conclusion"
)

// Heading is a recognized section heading on a single line.
type Heading struct {
	Title Title
	Level int
}

// aliases maps normalized heading text to its canonical title.
// Keys are lowercased with non-alphanumerics stripped.
var aliases = map[string]Title{
	"abstract":             Abstract,
	"introduction":         Introduction,
	"relatedwork":          RelatedWork,
	"method":               Method,
	"methods":              Method,
	"methodology":          Method,
	"experiment":           Experiment,
	"experiments":          Experiment,
	"discussion":           Discussion,
	"resultsanddiscussion": Discussion,
	"conclusion":           Conclusion,
	"conclusions":          Conclusion,
}

var (
	// e.g. "2. Related Work", "3) Methods", "1.2. Motivation"
	numberedRe = regexp.MustCompile(`^(\d+(?:\.\d+)*)\s*[.)]\s*([A-Za-z][\w\s-]*?)$`)
	// The full trimmed line must be a bare keyword, optionally followed by a
	// colon. Substring containment is not enough.
	bareRe = regexp.MustCompile(`(?i)^(Abstract|Introduction|Related\s*Work|Methods?|Methodology|Experiments?|Discussion|Conclusions?)\s*:?$`)
)

// normalize lowercases s and strips every non-alphanumeric rune, matching
// the alias table's key form.
func normalize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// isNoise reports whether a trimmed line is a known non-heading line.
func isNoise(trimmed string) bool {
	switch strings.ToLower(trimmed) {
	case "contents", "table of contents":
		return true
	}
	return false
}

// Classify decides whether a line is a section heading and, if so, returns
// its canonical form. Canonicalization flattens every recognized heading to
// level 1: reliable splitting matters more here than numbering fidelity.
func Classify(line string) (Heading, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || isNoise(trimmed) {
		return Heading{}, false
	}

	if m := numberedRe.FindStringSubmatch(trimmed); m != nil {
		// Only the extracted title portion is checked. Numbered headings
		// with unrecognized titles are dropped, not passed through.
		if canonical, ok := aliases[normalize(m[2])]; ok {
			return Heading{Title: canonical, Level: 1}, true
		}
		return Heading{}, false
	}

	if bareRe.MatchString(trimmed) {
		if canonical, ok := aliases[normalize(trimmed)]; ok {
			return Heading{Title: canonical, Level: 1}, true
		}
	}

	return Heading{}, false
}
