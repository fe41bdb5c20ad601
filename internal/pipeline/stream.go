package pipeline

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Stream reads server-sent events off an open pipeline connection. Events
// are delivered one at a time in arrival order; there is no backpressure
// control beyond the reader pacing the connection.
type Stream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner

	closeOnce sync.Once
}

func newStream(body io.ReadCloser) *Stream {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &Stream{body: body, scanner: scanner}
}

// Recv blocks until the next event arrives. It returns io.EOF when the
// remote closes the stream cleanly, and a wrapped transport error
// otherwise. A malformed event payload is returned as a plain-text event
// rather than dropped.
func (s *Stream) Recv() (Event, error) {
	var data []string
	for s.scanner.Scan() {
		line := s.scanner.Text()
		line = strings.TrimRight(line, "\r")

		// A blank line dispatches the accumulated frame.
		if line == "" {
			if len(data) == 0 {
				continue
			}
			return parseEvent(strings.Join(data, "\n")), nil
		}
		if strings.HasPrefix(line, ":") {
			continue // comment/keepalive
		}
		if v, ok := strings.CutPrefix(line, "data:"); ok {
			data = append(data, strings.TrimPrefix(v, " "))
		}
		// Other SSE fields (event:, id:, retry:) are not used by the
		// pipeline protocol.
	}
	if err := s.scanner.Err(); err != nil {
		return Event{}, fmt.Errorf("read stream: %w", err)
	}
	if len(data) > 0 {
		return parseEvent(strings.Join(data, "\n")), nil
	}
	return Event{}, io.EOF
}

// parseEvent decodes a frame payload. Non-JSON payloads degrade to an event
// whose content is the verbatim text, so the log surface can still show it.
func parseEvent(payload string) Event {
	var ev Event
	if err := json.Unmarshal([]byte(payload), &ev); err == nil {
		return ev
	}
	quoted, _ := json.Marshal(payload)
	return Event{Content: quoted}
}

// Close terminates the connection. Safe to call more than once.
func (s *Stream) Close() {
	s.closeOnce.Do(func() {
		s.body.Close()
	})
}
