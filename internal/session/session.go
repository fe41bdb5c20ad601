// Package session hosts document editing sessions: the virtual file set,
// the open document's buffer and history, the outline, the chat transcript,
// and the single in-progress pipeline stream.
package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/treepaper/paperedit/internal/editor"
	"github.com/treepaper/paperedit/internal/pipeline"
	"github.com/treepaper/paperedit/internal/section"
	"github.com/treepaper/paperedit/internal/vfile"
)

var (
	// ErrNotFound means no session (or no such file) exists.
	ErrNotFound = errors.New("not found")
	// ErrNoDocument means no document is open in the session.
	ErrNoDocument = errors.New("no document open")
	// ErrNoUpload means generation was requested before any upload
	// produced a pipeline handle.
	ErrNoUpload = errors.New("no uploaded file to generate from")
	// ErrSessionClosed means the session was torn down.
	ErrSessionClosed = errors.New("session closed")
)

// Speaker identifies who wrote a transcript entry.
type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "ai"
	SpeakerPipeline  Speaker = "pipeline"
)

// Message is one chat/log transcript entry.
type Message struct {
	Speaker Speaker `json:"speaker"`
	Text    string  `json:"text"`
}

// Session is one document editing session. A single mutex serializes every
// operation: keystrokes, heading clicks, stream events, and button presses
// each run to completion before the next, so within-handler invariants hold
// without finer locking.
type Session struct {
	mu sync.Mutex

	ID string

	files      vfile.Set
	transcript []Message

	// Open document state.
	docName string
	buf     *editor.Buffer
	hist    *editor.History
	outline *section.Outline

	// Derived artifacts.
	suggestion string
	activeTree string

	// genMu serializes Generate end to end: the previous stream must be
	// closed and its replacement installed before another Generate (which
	// releases mu around the network open) may start.
	genMu sync.Mutex

	// Pipeline state. The stream handle is exclusively owned by this
	// session; at most one stream is open at a time.
	filePath   string
	stream     *pipeline.Stream
	generating bool
	closed     bool

	undoSignals int

	finalStep       int
	suggestKeywords []string
	treeKeywords    []string

	log       *slog.Logger
	createdAt time.Time
	updatedAt time.Time
}

// New creates an empty session.
func New(log *slog.Logger) *Session {
	id := newID()
	now := time.Now()
	s := &Session{
		ID:        id,
		hist:      &editor.History{},
		log:       log.With("session_id", id),
		createdAt: now,
		updatedAt: now,
	}
	s.buf = editor.NewBuffer(s.hist)
	s.outline = section.NewOutline("")
	s.hist.OnUndo = func() { s.undoSignals++ }
	return s
}

// newID returns a 20-character hex id hashed from time plus randomness,
// collision-free in practice.
func newID() string {
	var nonce [8]byte
	rand.Read(nonce[:])
	sum := sha256.Sum256(fmt.Appendf(nonce[:], "%d", time.Now().UnixNano()))
	return fmt.Sprintf("%x", sum[:])[:20]
}

// AddFile adds an uploaded document, materializes its section files, and
// opens it. Duplicate names are rejected with no state mutation. When no
// sections are found the original file alone remains selectable.
func (s *Session) AddFile(name, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if err := s.files.Add(name, content); err != nil {
		return err
	}
	sections := vfile.SectionFiles(name, content)
	for _, f := range sections {
		s.files.Upsert(f.Name, f.Content)
	}
	s.log.Info("file added", "name", name, "sections", len(sections))
	s.open(name, content)
	return nil
}

// SelectFile opens the named file: its content loads into the buffer, the
// history resets to the pristine snapshot, and the outline recomputes.
func (s *Session) SelectFile(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	f, ok := s.files.Get(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	s.open(f.Name, f.Content)
	return nil
}

// RenameFile renames a virtual file. Collisions are rejected and nothing
// changes.
func (s *Session) RenameFile(oldName, newName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if err := s.files.Rename(oldName, newName); err != nil {
		return err
	}
	if s.docName == oldName {
		s.docName = newName
	}
	return nil
}

// RemoveFile deletes a virtual file. Removing the open document closes it;
// derived files survive their source.
func (s *Session) RemoveFile(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if !s.files.Remove(name) {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if s.docName == name {
		s.docName = ""
		s.buf.Load("")
		s.outline = section.NewOutline("")
	}
	return nil
}

// ApplyEdit handles one raw input event from the editing surface.
func (s *Session) ApplyEdit(text string, caret int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if s.docName == "" {
		return ErrNoDocument
	}
	s.buf.ApplyInput(text, caret)
	s.syncDocument()
	return nil
}

// StartComposition enters an IME composition session.
func (s *Session) StartComposition() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.docName == "" {
		return ErrNoDocument
	}
	s.buf.StartComposition()
	return nil
}

// EndComposition leaves the composition session with the composed text and
// final caret offset.
func (s *Session) EndComposition(text string, caret int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if s.docName == "" {
		return ErrNoDocument
	}
	s.buf.EndComposition(text, caret)
	s.syncDocument()
	return nil
}

// Undo steps the open document back one snapshot. A no-op at the floor.
func (s *Session) Undo() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	text, ok := s.hist.Undo()
	if ok {
		s.buf.Replace(text)
		s.syncDocument()
	}
	return text, ok
}

// Redo re-applies the most recently undone snapshot.
func (s *Session) Redo() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	text, ok := s.hist.Redo()
	if ok {
		s.buf.Replace(text)
		s.syncDocument()
	}
	return text, ok
}

// SelectHeading marks a heading active and returns its scroll target line.
func (s *Session) SelectHeading(id string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	return s.outline.Select(id)
}

// Chat appends a user message and the canned acknowledgement to the
// transcript.
func (s *Session) Chat(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	s.transcript = append(s.transcript,
		Message{Speaker: SpeakerUser, Text: message},
		Message{Speaker: SpeakerAssistant, Text: "Thanks, suggestions will appear once generation runs."},
	)
}

// SetFilePath records the pipeline handle returned by the upload
// collaborator.
func (s *Session) SetFilePath(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filePath = path
}

// Generate opens the pipeline stream for the uploaded file and merges its
// events into the session. Any previous stream is terminated first, so at
// most one stream mutates session state at a time.
func (s *Session) Generate(ctx context.Context, client *pipeline.Client) error {
	s.genMu.Lock()
	defer s.genMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.filePath == "" {
		s.mu.Unlock()
		return ErrNoUpload
	}
	if s.docName == "" {
		s.mu.Unlock()
		return ErrNoDocument
	}
	// Close-before-open: the previous connection must be gone before a
	// new one exists.
	if s.stream != nil {
		s.stream.Close()
		s.stream = nil
	}
	base := vfile.BaseName(s.docName)
	filePath := s.filePath
	s.mu.Unlock()

	stream, err := client.OpenStream(ctx, filePath)
	if err != nil {
		return fmt.Errorf("open pipeline stream: %w", err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		stream.Close()
		return ErrSessionClosed
	}
	s.stream = stream
	s.generating = true
	s.mu.Unlock()

	merger := pipeline.NewMerger(
		&sessionSink{s: s, base: base, stream: stream},
		func(ctx context.Context) (*pipeline.Results, error) {
			// The round trip must not stall other session operations;
			// merging the payload resumes under the lock afterwards.
			s.mu.Unlock()
			defer s.mu.Lock()
			return client.Results(ctx, filePath)
		},
		s.finalStep, s.suggestKeywords, s.treeKeywords,
	)

	go s.consume(ctx, stream, merger)
	return nil
}

// consume drains the stream, feeding each event through the merger under
// the session lock so event handling is atomic with respect to user edits.
func (s *Session) consume(ctx context.Context, stream *pipeline.Stream, merger *pipeline.Merger) {
	for {
		ev, err := stream.Recv()
		if err != nil {
			s.mu.Lock()
			if s.stream == stream {
				if errors.Is(err, io.EOF) {
					merger.OnEOF(ctx)
				} else {
					merger.OnError(err)
				}
			}
			s.mu.Unlock()
			return
		}
		s.mu.Lock()
		if s.stream != stream {
			// A newer generation replaced this stream; its events no
			// longer belong here.
			s.mu.Unlock()
			return
		}
		merger.OnEvent(ctx, ev)
		done := s.stream != stream
		s.mu.Unlock()
		if done {
			return
		}
	}
}

// Generating reports whether a pipeline stream is in progress.
func (s *Session) Generating() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generating
}

// Suggestion returns the current suggestion text.
func (s *Session) Suggestion() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.suggestion
}

// Close tears the session down: the stream terminates, the in-progress
// flag clears, and later Generate calls are rejected.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.closeStreamLocked()
}

// Snapshot is a read-only copy of session state for the API layer.
type Snapshot struct {
	ID          string                   `json:"session_id"`
	Files       []vfile.File             `json:"files"`
	Document    string                   `json:"document,omitempty"`
	Text        string                   `json:"text"`
	Blocks      []editor.Block           `json:"blocks"`
	Outline     []section.OutlineHeading `json:"outline"`
	ActiveID    string                   `json:"active_heading,omitempty"`
	ActiveTree  string                   `json:"active_tree,omitempty"`
	Suggestion  string                   `json:"suggestion,omitempty"`
	Transcript  []Message                `json:"transcript"`
	CanUndo     bool                     `json:"can_undo"`
	CanRedo     bool                     `json:"can_redo"`
	Generating  bool                     `json:"generating"`
	UndoSignals int                      `json:"undo_signals"`
}

// Snapshot returns a consistent copy of the session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	transcript := make([]Message, len(s.transcript))
	copy(transcript, s.transcript)

	return Snapshot{
		ID:          s.ID,
		Files:       s.files.Files(),
		Document:    s.docName,
		Text:        s.buf.Text(),
		Blocks:      s.buf.Blocks(),
		Outline:     s.outline.Headings(),
		ActiveID:    s.outline.Active(),
		ActiveTree:  s.activeTree,
		Suggestion:  s.suggestion,
		Transcript:  transcript,
		CanUndo:     s.hist.CanUndo(),
		CanRedo:     s.hist.CanRedo(),
		Generating:  s.generating,
		UndoSignals: s.undoSignals,
	}
}

// UpdatedAt reports the last mutation time, for TTL eviction.
func (s *Session) UpdatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

// open loads a document into the buffer. Callers hold s.mu.
func (s *Session) open(name, content string) {
	s.docName = name
	s.buf.Load(content)
	s.outline = section.NewOutline(content)
}

// syncDocument propagates the buffer text back to the file set and rebuilds
// the outline. Callers hold s.mu.
func (s *Session) syncDocument() {
	if s.docName == "" {
		return
	}
	text := s.buf.Text()
	s.files.Upsert(s.docName, text)
	s.outline = section.NewOutline(text)
}

func (s *Session) closeStreamLocked() {
	if s.stream != nil {
		s.stream.Close()
		s.stream = nil
	}
	s.generating = false
}

func (s *Session) touch() {
	s.updatedAt = time.Now()
}

// sessionSink routes merger outcomes into the session. Its methods run
// under the session lock held by consume. It remembers which stream its
// merger belongs to: a finalize that raced with a replacing Generate must
// not close the replacement.
type sessionSink struct {
	s      *Session
	base   string
	stream *pipeline.Stream
}

func (k *sessionSink) AppendLog(line string) {
	k.s.transcript = append(k.s.transcript, Message{Speaker: SpeakerPipeline, Text: line})
}

func (k *sessionSink) ApplySuggestion(text string) {
	k.s.suggestion = text
	k.s.files.Upsert(vfile.SuggestionFileName(k.base), text)
}

func (k *sessionSink) ApplyTree(pretty string) {
	name := vfile.TreeFileName(k.base)
	k.s.files.Upsert(name, pretty)
	k.s.activeTree = name
}

func (k *sessionSink) CloseStream() {
	if k.s.stream == k.stream {
		k.s.closeStreamLocked()
	}
}
