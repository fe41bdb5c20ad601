// Package editor owns the live editable text buffer and its linear
// undo/redo history of full-document snapshots.
package editor

// History keeps linear undo/redo stacks of full-text snapshots. The top of
// past is always the currently displayed text, so the stack never drains
// below the pristine snapshot taken at document load.
type History struct {
	past   []string
	future []string

	// OnUndo, if set, fires after every successful undo. External
	// collaborators hook their "undo occurred" side effects here.
	OnUndo func()
}

// Reset starts a fresh log for a newly loaded document: past holds only the
// initial text, future is empty. The very first edit is then immediately
// undoable back to the pristine state.
func (h *History) Reset(initial string) {
	h.past = []string{initial}
	h.future = nil
}

// Record adopts text as the new current snapshot and clears future: there is
// no redo-branching. The previous snapshot stays beneath it as the undo
// target. Callers must invoke this at most once per distinct text value.
func (h *History) Record(text string) {
	h.past = append(h.past, text)
	h.future = nil
}

// Undo steps back one snapshot. It is a no-op at the floor: the initial
// snapshot always remains in the log.
func (h *History) Undo() (string, bool) {
	if len(h.past) <= 1 {
		return h.Current(), false
	}
	top := h.past[len(h.past)-1]
	h.past = h.past[:len(h.past)-1]
	h.future = append([]string{top}, h.future...)
	if h.OnUndo != nil {
		h.OnUndo()
	}
	return h.Current(), true
}

// Redo re-applies the most recently undone snapshot. No-op when future is
// empty.
func (h *History) Redo() (string, bool) {
	if len(h.future) == 0 {
		return h.Current(), false
	}
	next := h.future[0]
	h.future = h.future[1:]
	h.past = append(h.past, next)
	return next, true
}

// Current returns the snapshot at the top of past.
func (h *History) Current() string {
	if len(h.past) == 0 {
		return ""
	}
	return h.past[len(h.past)-1]
}

// CanUndo reports whether Undo would change state.
func (h *History) CanUndo() bool {
	return len(h.past) > 1
}

// CanRedo reports whether Redo would change state.
func (h *History) CanRedo() bool {
	return len(h.future) > 0
}

// Depth returns the number of snapshots in past.
func (h *History) Depth() int {
	return len(h.past)
}
