// Package pipeline talks to the generation pipeline: the upload and results
// collaborators, the server-sent event stream, and the merge controller
// that routes stream events into the document session.
package pipeline

import (
	"bytes"
	"encoding/json"
)

// Event is one incremental message from the generation pipeline. Content
// may be a JSON string, a structured JSON value, or absent.
type Event struct {
	Step    int             `json:"step"`
	Name    string          `json:"name"`
	Content json.RawMessage `json:"content,omitempty"`
}

// Text returns the event content as plain text: the decoded value for a
// JSON string, the raw JSON for anything else, and "" when absent.
func (e Event) Text() string {
	if len(e.Content) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(e.Content, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(e.Content))
}

// HasContent reports whether the event carries a payload.
func (e Event) HasContent() bool {
	return len(e.Content) > 0 && !bytes.Equal(bytes.TrimSpace(e.Content), []byte("null"))
}

// Results is the consolidated snapshot pulled from the results collaborator
// once at stream completion.
type Results struct {
	Suggestion string          `json:"suggestion,omitempty"`
	Tree       json.RawMessage `json:"tree,omitempty"`
}
