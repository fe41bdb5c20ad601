package section

import "strings"

// Span is a contiguous run of lines attributed to one canonical title.
// Start is the heading's line index; End is exclusive and equals the next
// retained heading's line (or the line count for the last span). Body is
// the trimmed text between the two.
type Span struct {
	Title Title
	Start int
	End   int
	Body  string
}

type occurrence struct {
	title Title
	line  int
}

// Segment splits text into section spans. It is a pure function of text:
// identical input always yields identical spans. A nil result means no
// recognized headings were found and the caller should treat the document
// as unsectioned.
func Segment(text string) []Span {
	lines := splitLines(text)

	var heads []occurrence
	seen := make(map[Title]bool)
	for i, line := range lines {
		h, ok := Classify(line)
		if !ok {
			continue
		}
		// First occurrence wins; later duplicates fold into the
		// preceding span's body.
		if seen[h.Title] {
			continue
		}
		seen[h.Title] = true
		heads = append(heads, occurrence{title: h.Title, line: i})
	}
	if len(heads) == 0 {
		return nil
	}

	var spans []Span
	for i, h := range heads {
		end := len(lines)
		if i+1 < len(heads) {
			end = heads[i+1].line
		}
		body := strings.TrimSpace(strings.Join(lines[h.line+1:end], "\n"))
		if body == "" {
			continue
		}
		spans = append(spans, Span{Title: h.title, Start: h.line, End: end, Body: body})
	}
	return spans
}

func splitLines(text string) []string {
	return strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
}
