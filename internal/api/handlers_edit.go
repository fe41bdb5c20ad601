package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/treepaper/paperedit/internal/session"
)

type editRequest struct {
	Text  string `json:"text"`
	Caret int    `json:"caret"`
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFromRequest(w, r)
	if !ok {
		return
	}
	var req editRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := sess.ApplyEdit(req.Text, req.Caret); err != nil {
		jsonError(w, err.Error(), http.StatusConflict)
		return
	}
	writeJSON(w, sess.Snapshot())
}

func (s *Server) handleCompositionStart(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFromRequest(w, r)
	if !ok {
		return
	}
	if err := sess.StartComposition(); err != nil {
		jsonError(w, err.Error(), http.StatusConflict)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCompositionEnd(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFromRequest(w, r)
	if !ok {
		return
	}
	var req editRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := sess.EndComposition(req.Text, req.Caret); err != nil {
		jsonError(w, err.Error(), http.StatusConflict)
		return
	}
	writeJSON(w, sess.Snapshot())
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFromRequest(w, r)
	if !ok {
		return
	}
	text, applied := sess.Undo()
	writeJSON(w, map[string]any{"applied": applied, "text": text})
}

func (s *Server) handleRedo(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFromRequest(w, r)
	if !ok {
		return
	}
	text, applied := sess.Redo()
	writeJSON(w, map[string]any{"applied": applied, "text": text})
}

func (s *Server) handleOutline(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFromRequest(w, r)
	if !ok {
		return
	}
	snap := sess.Snapshot()
	writeJSON(w, map[string]any{
		"outline": snap.Outline,
		"active":  snap.ActiveID,
	})
}

func (s *Server) handleSelectHeading(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFromRequest(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "headingID")
	line, found := sess.SelectHeading(id)
	writeJSON(w, map[string]any{"found": found, "line": line})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFromRequest(w, r)
	if !ok {
		return
	}
	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
		jsonError(w, "message is required", http.StatusBadRequest)
		return
	}
	sess.Chat(req.Message)
	writeJSON(w, map[string]any{"transcript": sess.Snapshot().Transcript})
}

func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFromRequest(w, r)
	if !ok {
		return
	}
	writeJSON(w, map[string]any{"transcript": sess.Snapshot().Transcript})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFromRequest(w, r)
	if !ok {
		return
	}
	// The stream outlives this request, so it cannot ride the request
	// context; closing the session terminates it instead.
	if err := sess.Generate(context.Background(), s.client); err != nil {
		switch {
		case errors.Is(err, session.ErrNoUpload), errors.Is(err, session.ErrNoDocument):
			jsonError(w, err.Error(), http.StatusConflict)
		default:
			jsonError(w, err.Error(), http.StatusBadGateway)
		}
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{"generating": true})
}

func (s *Server) handleSuggestion(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFromRequest(w, r)
	if !ok {
		return
	}
	writeJSON(w, map[string]any{
		"suggestion": sess.Suggestion(),
		"generating": sess.Generating(),
	})
}
