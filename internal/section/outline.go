package section

import (
	"fmt"
	"regexp"
	"strings"
)

// OutlineHeading is one entry in the displayed table of contents. IDs are
// positional ("heading-{line}") and regenerated on every text change;
// inserting a line shifts every subsequent id.
type OutlineHeading struct {
	ID    string `json:"id"`
	Level int    `json:"level"`
	Title string `json:"title"`
	Line  int    `json:"line"`
}

// Unlike the canonical classifier, the outline keeps any numbered heading
// verbatim so the contents view mirrors the document's own numbering.
var outlineNumberedRe = regexp.MustCompile(`^(\d+(?:\.\d+)*)[.)]\s+(.+)$`)

// ParseOutline scans text for display headings. It is recomputed in full on
// every text change rather than maintained incrementally: recompute is pure
// and cheap at paper scale, and staleness bugs cost more than O(lines).
func ParseOutline(text string) []OutlineHeading {
	var out []OutlineHeading
	for i, line := range splitLines(text) {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || isNoise(trimmed) {
			continue
		}

		if m := outlineNumberedRe.FindStringSubmatch(trimmed); m != nil {
			out = append(out, OutlineHeading{
				ID:    headingID(i),
				Level: strings.Count(m[1], ".") + 1,
				Title: strings.TrimSpace(m[2]),
				Line:  i,
			})
			continue
		}

		if h, ok := Classify(trimmed); ok {
			out = append(out, OutlineHeading{
				ID:    headingID(i),
				Level: 1,
				Title: string(h.Title),
				Line:  i,
			})
		}
	}
	return out
}

func headingID(line int) string {
	return fmt.Sprintf("heading-%d", line)
}

// Outline tracks the heading list for the displayed text plus the single
// active selection used for scroll and highlight.
type Outline struct {
	headings []OutlineHeading
	active   string
}

// NewOutline builds the outline for text.
func NewOutline(text string) *Outline {
	return &Outline{headings: ParseOutline(text)}
}

// Headings returns the entries in document order.
func (o *Outline) Headings() []OutlineHeading {
	return o.headings
}

// Select marks id as the active heading and returns the scroll target line.
// At most one heading is highlighted at a time; selecting an unknown id
// clears the selection.
func (o *Outline) Select(id string) (line int, ok bool) {
	for _, h := range o.headings {
		if h.ID == id {
			o.active = id
			return h.Line, true
		}
	}
	o.active = ""
	return 0, false
}

// Active returns the id of the highlighted heading, or "" when none is.
func (o *Outline) Active() string {
	return o.active
}
