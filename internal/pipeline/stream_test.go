package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestStream_EventsArriveInOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/pipeline/stream" {
			http.NotFound(w, r)
			return
		}
		if got := r.URL.Query().Get("file_path"); got != "uploads/paper.txt" {
			t.Errorf("unexpected file_path %q", got)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"step\":1,\"name\":\"split_tree\",\"content\":\"{\\\"a\\\":1}\"}\n\n")
		fmt.Fprint(w, ": keepalive\n\n")
		fmt.Fprint(w, "data: {\"step\":2,\"name\":\"audit\",\"content\":\"tighten the abstract\"}\n\n")
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key")
	stream, err := c.OpenStream(context.Background(), "uploads/paper.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer stream.Close()

	ev, err := stream.Recv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Step != 1 || ev.Name != "split_tree" {
		t.Errorf("unexpected first event %+v", ev)
	}
	if ev.Text() != `{"a":1}` {
		t.Errorf("unexpected content %q", ev.Text())
	}

	ev, err = stream.Recv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Step != 2 || ev.Name != "audit" || ev.Text() != "tighten the abstract" {
		t.Errorf("unexpected second event %+v", ev)
	}

	if _, err := stream.Recv(); !errors.Is(err, io.EOF) {
		t.Errorf("expected EOF at end of stream, got %v", err)
	}
}

func TestStream_MalformedPayloadDegradesToPlainText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: this is not json\n\n")
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	stream, err := c.OpenStream(context.Background(), "x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer stream.Close()

	ev, err := stream.Recv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Text() != "this is not json" {
		t.Errorf("expected verbatim payload, got %q", ev.Text())
	}
}

func TestStream_MultiLineData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"step\":1,\n")
		fmt.Fprint(w, "data: \"name\":\"build\"}\n\n")
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	stream, err := c.OpenStream(context.Background(), "x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer stream.Close()

	ev, err := stream.Recv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Step != 1 || ev.Name != "build" {
		t.Errorf("unexpected event %+v", ev)
	}
}

func TestClient_Results(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/pipeline/results" {
			http.NotFound(w, r)
			return
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer secret" {
			t.Errorf("unexpected auth header %q", auth)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"suggestion":"rewrite section 2","tree":{"root":[]}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret")
	res, err := c.Results(context.Background(), "uploads/paper.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Suggestion != "rewrite section 2" {
		t.Errorf("unexpected suggestion %q", res.Suggestion)
	}
	if len(res.Tree) == 0 {
		t.Error("expected tree payload")
	}
}

func TestClient_UploadReturnsHandle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/upload" {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		defer f.Close()
		if hdr.Filename != "paper.txt" {
			t.Errorf("unexpected filename %q", hdr.Filename)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"file_path":"uploads/paper.txt"}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	handle, err := c.Upload(context.Background(), "paper.txt", []byte("Abstract\nhello"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if handle != "uploads/paper.txt" {
		t.Errorf("unexpected handle %q", handle)
	}
}
