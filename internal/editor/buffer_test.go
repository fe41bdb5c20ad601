package editor

import "testing"

func newTestBuffer(text string) (*Buffer, *History) {
	hist := &History{}
	buf := NewBuffer(hist)
	buf.Load(text)
	return buf, hist
}

func TestBuffer_BlocksArePositional(t *testing.T) {
	buf, _ := newTestBuffer("Hello\n\nWorld")
	blocks := buf.Blocks()
	if len(blocks) != 3 {
		t.Fatalf("expected 3 blocks, got %d", len(blocks))
	}
	want := []Block{
		{ID: "heading-0", Text: "Hello"},
		{ID: "heading-1", Text: ""},
		{ID: "heading-2", Text: "World"},
	}
	for i, w := range want {
		if blocks[i] != w {
			t.Errorf("block %d: expected %+v, got %+v", i, w, blocks[i])
		}
	}
}

func TestBuffer_CaretPreservedAcrossCompositionRerender(t *testing.T) {
	buf, _ := newTestBuffer("Hello\nWorld")

	// Caret at offset 7: the "o" side of "W|orld"... offset 6 is the start
	// of "World", 7 is one rune in.
	buf.StartComposition()
	buf.EndComposition("Hello\nWorld", 7)

	caret, ok := buf.Caret()
	if !ok || caret != 7 {
		t.Fatalf("expected caret 7 after re-render, got %d (ok=%v)", caret, ok)
	}
	block, offset := buf.CaretPosition()
	if block != 1 || offset != 1 {
		t.Errorf("expected caret in block 1 offset 1, got block %d offset %d", block, offset)
	}
}

func TestBuffer_CompositionDoesNotFragmentHistory(t *testing.T) {
	buf, hist := newTestBuffer("base")

	buf.StartComposition()
	// IME keystrokes arrive as input events during composition; none of
	// them may reconstruct or push history.
	buf.ApplyInput("base한", 5)
	buf.ApplyInput("base한국", 6)
	if buf.Text() != "base" {
		t.Fatalf("expected text untouched during composition, got %q", buf.Text())
	}
	if hist.Depth() != 1 {
		t.Fatalf("expected no history entries during composition, got depth %d", hist.Depth())
	}

	buf.EndComposition("base한국", 6)
	if buf.Text() != "base한국" {
		t.Errorf("expected composed text adopted, got %q", buf.Text())
	}
	if hist.Depth() != 2 {
		t.Errorf("expected exactly one history entry for the session, got depth %d", hist.Depth())
	}
}

func TestBuffer_UnchangedInputRecordsNothing(t *testing.T) {
	buf, hist := newTestBuffer("same text")
	buf.ApplyInput("same text", 4)
	if hist.Depth() != 1 {
		t.Errorf("expected no history entry for an unchanged re-render, got depth %d", hist.Depth())
	}
}

func TestBuffer_EditThenUndoRestoresText(t *testing.T) {
	buf, hist := newTestBuffer("one\ntwo")
	buf.ApplyInput("one\ntwo\nthree", 13)

	text, ok := hist.Undo()
	if !ok {
		t.Fatal("expected undo to succeed")
	}
	buf.Replace(text)
	if buf.Text() != "one\ntwo" {
		t.Errorf("expected original text, got %q", buf.Text())
	}
	// The caret captured before the undo is preserved, clamped to the
	// shorter text.
	caret, _ := buf.Caret()
	if caret != 7 {
		t.Errorf("expected caret clamped to 7, got %d", caret)
	}
}

func TestBuffer_CaretClampedToBlockLength(t *testing.T) {
	buf, _ := newTestBuffer("ab\ncd")
	buf.ApplyInput("ab\ncd", 99)
	block, offset := buf.CaretPosition()
	if block != 1 || offset != 2 {
		t.Errorf("expected caret clamped to block 1 offset 2, got block %d offset %d", block, offset)
	}
}

func TestBuffer_FirstRenderHasNoCaret(t *testing.T) {
	buf, _ := newTestBuffer("text")
	if _, ok := buf.Caret(); ok {
		t.Error("expected no captured caret on first render")
	}
	block, offset := buf.CaretPosition()
	if block != 0 || offset != 0 {
		t.Errorf("expected environment default start, got block %d offset %d", block, offset)
	}
}

func TestBuffer_LoadResetsCompositionState(t *testing.T) {
	buf, _ := newTestBuffer("doc a")
	buf.StartComposition()
	buf.Load("doc b")
	if buf.Composing() {
		t.Error("expected composition cleared by load")
	}
	if buf.Text() != "doc b" {
		t.Errorf("expected new text, got %q", buf.Text())
	}
}
