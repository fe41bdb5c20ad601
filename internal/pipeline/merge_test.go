package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

type fakeSink struct {
	logs        []string
	suggestions []string
	trees       []string
	closed      int
}

func (f *fakeSink) AppendLog(line string)       { f.logs = append(f.logs, line) }
func (f *fakeSink) ApplySuggestion(text string) { f.suggestions = append(f.suggestions, text) }
func (f *fakeSink) ApplyTree(pretty string)     { f.trees = append(f.trees, pretty) }
func (f *fakeSink) CloseStream()                { f.closed++ }

func rawContent(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestMerger_TreeEventUpsertsPrettyJSON(t *testing.T) {
	sink := &fakeSink{}
	m := NewMerger(sink, nil, 0, nil, nil)

	m.OnEvent(context.Background(), Event{
		Step:    3,
		Name:    "split_tree",
		Content: rawContent(t, `{"a":1}`),
	})

	if len(sink.trees) != 1 {
		t.Fatalf("expected 1 tree upsert, got %d", len(sink.trees))
	}
	want := "{\n  \"a\": 1\n}"
	if sink.trees[0] != want {
		t.Errorf("expected pretty-printed tree %q, got %q", want, sink.trees[0])
	}
	if len(sink.logs) != 1 {
		t.Errorf("expected 1 log line, got %d", len(sink.logs))
	}
}

func TestMerger_SuggestionEventWinsOverTree(t *testing.T) {
	// "audit" carries a suggestion even if the content looks like JSON;
	// suggestion routing has priority.
	sink := &fakeSink{}
	m := NewMerger(sink, nil, 0, nil, nil)

	m.OnEvent(context.Background(), Event{
		Step:    4,
		Name:    "audit",
		Content: rawContent(t, "tighten the abstract"),
	})

	if len(sink.suggestions) != 1 || sink.suggestions[0] != "tighten the abstract" {
		t.Errorf("expected suggestion adopted, got %v", sink.suggestions)
	}
	if len(sink.trees) != 0 {
		t.Errorf("expected no tree upsert, got %v", sink.trees)
	}
}

func TestMerger_SuggestionKeywordVariants(t *testing.T) {
	for _, name := range []string{"Audit", "globalCheck", "editPass2", "suggest_final"} {
		sink := &fakeSink{}
		m := NewMerger(sink, nil, 0, nil, nil)
		m.OnEvent(context.Background(), Event{Step: 1, Name: name, Content: rawContent(t, "s")})
		if len(sink.suggestions) != 1 {
			t.Errorf("name %q: expected a suggestion", name)
		}
	}
}

func TestMerger_MalformedTreePayloadIsIgnoredButLogged(t *testing.T) {
	sink := &fakeSink{}
	m := NewMerger(sink, nil, 0, nil, nil)

	m.OnEvent(context.Background(), Event{
		Step:    3,
		Name:    "build_tree",
		Content: rawContent(t, "not valid json"),
	})

	if len(sink.trees) != 0 {
		t.Errorf("expected no tree upsert, got %v", sink.trees)
	}
	if len(sink.logs) != 1 || !strings.Contains(sink.logs[0], "not valid json") {
		t.Errorf("expected verbatim log entry, got %v", sink.logs)
	}
}

func TestMerger_FinalizeRunsExactlyOnce(t *testing.T) {
	sink := &fakeSink{}
	fetches := 0
	results := func(ctx context.Context) (*Results, error) {
		fetches++
		return &Results{
			Suggestion: "final suggestion",
			Tree:       json.RawMessage(`{"root":[]}`),
		}, nil
	}
	m := NewMerger(sink, results, 0, nil, nil)

	m.OnEvent(context.Background(), Event{Step: 9, Name: "finalize"})
	m.OnEvent(context.Background(), Event{Step: 9, Name: "finalize"})
	m.OnEOF(context.Background())

	if fetches != 1 {
		t.Errorf("expected exactly 1 results fetch, got %d", fetches)
	}
	if sink.closed != 1 {
		t.Errorf("expected exactly 1 stream close, got %d", sink.closed)
	}
	// Consolidated results merge through the same upsert paths.
	if len(sink.suggestions) != 1 || sink.suggestions[0] != "final suggestion" {
		t.Errorf("expected final suggestion, got %v", sink.suggestions)
	}
	if len(sink.trees) != 1 || !strings.Contains(sink.trees[0], "root") {
		t.Errorf("expected final tree, got %v", sink.trees)
	}
}

func TestMerger_FinalStepIndexTriggersFinalize(t *testing.T) {
	sink := &fakeSink{}
	m := NewMerger(sink, nil, 5, nil, nil)

	m.OnEvent(context.Background(), Event{Step: 5, Name: "editPass2", Content: rawContent(t, "s")})

	if sink.closed != 1 {
		t.Errorf("expected stream closed on the designated final step, got %d closes", sink.closed)
	}
}

func TestMerger_TransportErrorClosesWithoutResults(t *testing.T) {
	sink := &fakeSink{}
	fetches := 0
	results := func(ctx context.Context) (*Results, error) {
		fetches++
		return nil, nil
	}
	m := NewMerger(sink, results, 0, nil, nil)

	m.OnError(errors.New("connection reset"))

	if fetches != 0 {
		t.Errorf("expected no results fetch on transport error, got %d", fetches)
	}
	if sink.closed != 1 {
		t.Errorf("expected stream closed, got %d", sink.closed)
	}
	if len(sink.logs) != 1 || !strings.Contains(sink.logs[0], "connection reset") {
		t.Errorf("expected error log line, got %v", sink.logs)
	}
}

func TestMerger_LogLineTruncatesPreview(t *testing.T) {
	sink := &fakeSink{}
	m := NewMerger(sink, nil, 0, nil, nil)

	long := strings.Repeat("x", 500)
	m.OnEvent(context.Background(), Event{Step: 2, Name: "fuse", Content: rawContent(t, long)})

	if len(sink.logs) != 1 {
		t.Fatalf("expected 1 log line, got %d", len(sink.logs))
	}
	if len(sink.logs[0]) > 200 {
		t.Errorf("expected truncated preview, got %d chars", len(sink.logs[0]))
	}
	if !strings.Contains(sink.logs[0], "step 2 fuse") {
		t.Errorf("expected step and name in log line, got %q", sink.logs[0])
	}
}
