package editor

import "testing"

func TestHistory_UndoFloor(t *testing.T) {
	var h History
	h.Reset("pristine")

	// Zero edits made: undo must change nothing.
	text, ok := h.Undo()
	if ok {
		t.Error("expected undo to be a no-op at the floor")
	}
	if text != "pristine" {
		t.Errorf("expected text unchanged, got %q", text)
	}

	// And a second undo is still a no-op.
	if _, ok := h.Undo(); ok {
		t.Error("expected second undo to be a no-op")
	}
}

func TestHistory_FirstEditUndoableToPristine(t *testing.T) {
	var h History
	h.Reset("original")
	h.Record("edited")

	text, ok := h.Undo()
	if !ok || text != "original" {
		t.Fatalf("expected undo to restore %q, got %q (ok=%v)", "original", text, ok)
	}
}

func TestHistory_RedoAfterFreshEditIsNoOp(t *testing.T) {
	var h History
	h.Reset("start")
	h.Record("v1")

	// No undo has happened: future must be empty.
	if _, ok := h.Redo(); ok {
		t.Error("expected redo to be a no-op after a fresh edit")
	}
}

func TestHistory_UndoRedoSequence(t *testing.T) {
	var h History
	h.Reset("v0")
	h.Record("v1")
	h.Record("v2")

	if text, ok := h.Undo(); !ok || text != "v1" {
		t.Fatalf("first undo: expected v1, got %q (ok=%v)", text, ok)
	}
	if text, ok := h.Undo(); !ok || text != "v0" {
		t.Fatalf("second undo: expected v0, got %q (ok=%v)", text, ok)
	}
	if _, ok := h.Undo(); ok {
		t.Error("expected third undo to hit the floor")
	}

	if text, ok := h.Redo(); !ok || text != "v1" {
		t.Fatalf("first redo: expected v1, got %q (ok=%v)", text, ok)
	}
	if text, ok := h.Redo(); !ok || text != "v2" {
		t.Fatalf("second redo: expected v2, got %q (ok=%v)", text, ok)
	}
	if _, ok := h.Redo(); ok {
		t.Error("expected redo past the end to be a no-op")
	}
}

func TestHistory_NewEditClearsFuture(t *testing.T) {
	var h History
	h.Reset("v0")
	h.Record("v1")
	h.Undo()
	h.Record("v1b")

	if h.CanRedo() {
		t.Error("expected future cleared by the new edit")
	}
	if text, ok := h.Undo(); !ok || text != "v0" {
		t.Errorf("expected undo back to v0, got %q (ok=%v)", text, ok)
	}
}

func TestHistory_OnUndoFiresOnlyOnRealUndo(t *testing.T) {
	var h History
	fired := 0
	h.OnUndo = func() { fired++ }

	h.Reset("v0")
	h.Undo() // floor, must not fire
	if fired != 0 {
		t.Fatalf("expected no callback at the floor, got %d", fired)
	}

	h.Record("v1")
	h.Undo()
	if fired != 1 {
		t.Errorf("expected 1 callback, got %d", fired)
	}
}

func TestHistory_ResetDropsOldLog(t *testing.T) {
	var h History
	h.Reset("docA")
	h.Record("docA edited")
	h.Undo()

	h.Reset("docB")
	if h.CanUndo() || h.CanRedo() {
		t.Error("expected a pristine log after reset")
	}
	if h.Depth() != 1 {
		t.Errorf("expected depth 1, got %d", h.Depth())
	}
	if h.Current() != "docB" {
		t.Errorf("expected current docB, got %q", h.Current())
	}
}
