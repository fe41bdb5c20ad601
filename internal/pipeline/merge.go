package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// DefaultFinalStep is the step index that signals pipeline completion when
// no name matches "finalize".
const DefaultFinalStep = 7

// DefaultSuggestKeywords match step names that carry editing suggestions.
var DefaultSuggestKeywords = []string{"audit", "global check", "globalcheck", "editpass2", "suggest"}

// DefaultTreeKeywords match step names that carry document tree artifacts.
var DefaultTreeKeywords = []string{"split", "build", "fuse", "tree"}

// Sink receives the routed outcome of stream events. The document session
// implements it; every call runs under the session's lock.
type Sink interface {
	// AppendLog adds one human-readable line to the chat/log surface.
	AppendLog(line string)
	// ApplySuggestion adopts text as the current suggestion and persists
	// the derived suggestion file.
	ApplySuggestion(text string)
	// ApplyTree persists pretty-printed tree JSON as the derived tree
	// file and marks it the active tree selection.
	ApplyTree(pretty string)
	// CloseStream terminates the active stream and clears the
	// in-progress flag.
	CloseStream()
}

// ResultsFunc pulls the consolidated results snapshot at finalize time.
type ResultsFunc func(ctx context.Context) (*Results, error)

// Merger routes ordered pipeline events into the session: log append,
// suggestion update, tree upsert, or finalize-and-close. Each event is
// consumed exactly once and processed in arrival order.
type Merger struct {
	sink    Sink
	results ResultsFunc

	finalStep       int
	suggestKeywords []string
	treeKeywords    []string

	finalized bool
}

// NewMerger builds a merge controller. finalStep designates the step index
// that signals completion; keyword lists default when nil.
func NewMerger(sink Sink, results ResultsFunc, finalStep int, suggestKeywords, treeKeywords []string) *Merger {
	if finalStep <= 0 {
		finalStep = DefaultFinalStep
	}
	if suggestKeywords == nil {
		suggestKeywords = DefaultSuggestKeywords
	}
	if treeKeywords == nil {
		treeKeywords = DefaultTreeKeywords
	}
	return &Merger{
		sink:            sink,
		results:         results,
		finalStep:       finalStep,
		suggestKeywords: suggestKeywords,
		treeKeywords:    treeKeywords,
	}
}

// OnEvent consumes one stream event.
func (m *Merger) OnEvent(ctx context.Context, ev Event) {
	m.sink.AppendLog(logLine(ev))

	name := strings.ToLower(ev.Name)
	switch {
	case matchAny(name, m.suggestKeywords):
		if ev.HasContent() {
			m.sink.ApplySuggestion(ev.Text())
		}
	case matchAny(name, m.treeKeywords):
		// Tree artifacts are best-effort: payloads that don't parse as
		// JSON are silently ignored.
		if pretty, ok := prettyTree(ev); ok {
			m.sink.ApplyTree(pretty)
		}
	}

	if ev.Step == m.finalStep || strings.Contains(name, "finalize") {
		m.finalize(ctx)
	}
}

// OnError handles a stream-level transport failure: log, close, no
// automatic reconnect.
func (m *Merger) OnError(err error) {
	m.sink.AppendLog(fmt.Sprintf("stream error: %v", err))
	m.sink.CloseStream()
}

// OnEOF handles a clean remote close without an explicit final event.
func (m *Merger) OnEOF(ctx context.Context) {
	m.finalize(ctx)
}

// finalize runs exactly once per stream lifetime: one consolidated pull
// from the results collaborator, merged through the same upsert paths,
// then close.
func (m *Merger) finalize(ctx context.Context) {
	if m.finalized {
		return
	}
	m.finalized = true

	if m.results != nil {
		res, err := m.results(ctx)
		if err != nil {
			m.sink.AppendLog(fmt.Sprintf("results fetch failed: %v", err))
		} else if res != nil {
			if res.Suggestion != "" {
				m.sink.ApplySuggestion(res.Suggestion)
			}
			if len(res.Tree) > 0 {
				if pretty, ok := prettyJSON(res.Tree); ok {
					m.sink.ApplyTree(pretty)
				}
			}
		}
	}
	m.sink.CloseStream()
}

const previewLimit = 120

// logLine renders "step N name: preview" with the content preview
// truncated. Malformed payloads appear verbatim as plain text.
func logLine(ev Event) string {
	line := fmt.Sprintf("step %d %s", ev.Step, ev.Name)
	if ev.Name == "" {
		line = fmt.Sprintf("step %d", ev.Step)
	}
	if !ev.HasContent() {
		return line
	}
	preview := ev.Text()
	if runes := []rune(preview); len(runes) > previewLimit {
		preview = string(runes[:previewLimit]) + "..."
	}
	return line + ": " + preview
}

func matchAny(name string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(name, kw) {
			return true
		}
	}
	return false
}

// prettyTree extracts the textual content of a tree-bearing event and
// re-renders it as indented JSON.
func prettyTree(ev Event) (string, bool) {
	if !ev.HasContent() {
		return "", false
	}
	return prettyJSON([]byte(ev.Text()))
}

func prettyJSON(raw []byte) (string, bool) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", false
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", false
	}
	return strings.TrimRight(buf.String(), "\n"), true
}
