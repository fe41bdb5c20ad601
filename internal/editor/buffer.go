package editor

import "fmt"

// Block is one line of the displayed text with its positional id. IDs are
// recomputed from the current line split on every change: they address
// blocks, they are not persistent identities.
type Block struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Buffer is the editable surface: the current text decomposed into line
// blocks, the caret as a linear rune offset into the block texts joined by
// newlines, and the Idle/Composing input state machine. Buffer methods are
// not safe for concurrent use; the owning session serializes access.
type Buffer struct {
	text   string
	blocks []Block

	caret      int
	caretValid bool

	composing bool

	hist *History
}

// NewBuffer couples a buffer to its history log.
func NewBuffer(hist *History) *Buffer {
	return &Buffer{hist: hist}
}

// Load replaces the buffer with a freshly opened document: history resets to
// the single pristine snapshot and no caret is tracked yet (first render
// leaves the caret at the environment default).
func (b *Buffer) Load(text string) {
	b.setText(text)
	b.caret = 0
	b.caretValid = false
	b.composing = false
	b.hist.Reset(text)
}

// ApplyInput handles one raw input event: capture the caret offset, adopt
// the reconstructed text, and record the change in history. Identical
// reconstructions are no-ops and record nothing. During a composition
// session input events only move the caret; reconstruction waits for
// EndComposition so IME sequences neither fragment history nor re-render
// mid-keystroke.
func (b *Buffer) ApplyInput(text string, caret int) {
	b.setCaret(caret)
	if b.composing {
		return
	}
	b.adopt(text)
}

// StartComposition enters the Composing state.
func (b *Buffer) StartComposition() {
	b.composing = true
}

// EndComposition leaves the Composing state, adopts the composed text, and
// re-renders the block structure. The caret offset captured here survives
// the re-render.
func (b *Buffer) EndComposition(text string, caret int) {
	b.composing = false
	b.setCaret(caret)
	b.adopt(text)
}

// Composing reports whether a composition session is active.
func (b *Buffer) Composing() bool {
	return b.composing
}

// Replace swaps in text from history navigation or an external content
// update. History is not touched; the caret offset is preserved, clamped to
// the new text length.
func (b *Buffer) Replace(text string) {
	b.setText(text)
	if b.caretValid {
		b.setCaret(b.caret)
	}
}

// Text returns the current plain text.
func (b *Buffer) Text() string {
	return b.text
}

// Blocks returns the rendered line blocks. An empty line yields a block with
// empty text: a visual line break, never semantic content.
func (b *Buffer) Blocks() []Block {
	out := make([]Block, len(b.blocks))
	copy(out, b.blocks)
	return out
}

// Caret returns the linear caret offset, clamped to the current text, and
// whether one has been captured.
func (b *Buffer) Caret() (int, bool) {
	offset := b.caret
	if max := len([]rune(b.text)); offset > max {
		offset = max
	}
	return offset, b.caretValid
}

// CaretPosition resolves the linear offset to a (block, inner offset) pair
// by walking blocks in order and accumulating character counts. The inner
// offset is clamped to the block's text length. Without a captured caret it
// reports the environment default, block 0 offset 0.
func (b *Buffer) CaretPosition() (block, offset int) {
	if !b.caretValid || len(b.blocks) == 0 {
		return 0, 0
	}
	remaining := b.caret
	for i, blk := range b.blocks {
		n := len([]rune(blk.Text))
		if remaining <= n {
			return i, remaining
		}
		// Step over this block plus its newline separator.
		remaining -= n + 1
	}
	last := len(b.blocks) - 1
	return last, len([]rune(b.blocks[last].Text))
}

func (b *Buffer) adopt(text string) {
	if text == b.text {
		return
	}
	b.setText(text)
	b.hist.Record(text)
}

func (b *Buffer) setText(text string) {
	b.text = text
	lines := splitLines(text)
	b.blocks = make([]Block, len(lines))
	for i, line := range lines {
		b.blocks[i] = Block{ID: fmt.Sprintf("heading-%d", i), Text: line}
	}
}

// setCaret stores the captured offset. Clamping to the text length happens
// at restore time, since the text the offset belongs to may not have been
// adopted yet when the capture arrives.
func (b *Buffer) setCaret(offset int) {
	if offset < 0 {
		offset = 0
	}
	b.caret = offset
	b.caretValid = true
}

func splitLines(text string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			lines = append(lines, text[start:i])
			start = i + 1
		}
	}
	return append(lines, text[start:])
}
