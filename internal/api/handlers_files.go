package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/treepaper/paperedit/internal/extract"
	"github.com/treepaper/paperedit/internal/vfile"
)

func (s *Server) handleUploadFile(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFromRequest(w, r)
	if !ok {
		return
	}

	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if !extract.IsSupportedExtension(filename) {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	// Extraction failure is not fatal: the placeholder keeps the file
	// selectable in the session.
	text := s.extractText(filename, data)

	if err := sess.AddFile(filename, text); err != nil {
		if errors.Is(err, vfile.ErrNameTaken) {
			jsonError(w, err.Error(), http.StatusConflict)
			return
		}
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Forward the raw upload for a pipeline handle. Failure here is
	// non-fatal: local splitting already happened, only generation is
	// unavailable until a later upload succeeds.
	if path, err := s.client.Upload(r.Context(), filename, data); err != nil {
		s.log.Warn("pipeline upload failed", "filename", filename, "error", err)
	} else {
		sess.SetFilePath(path)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(sess.Snapshot())
}

func (s *Server) extractText(filename string, data []byte) string {
	ex, err := extract.ForFile(filename)
	if err != nil {
		return extract.Placeholder(filename)
	}
	if p, ok := ex.(*extract.PDFExtractor); ok {
		p.FallbackPdftotext = s.cfg.PDFFallbackPdftotext
	}
	text, err := ex.Extract(bytes.NewReader(data), filename)
	if err != nil {
		s.log.Warn("extraction failed", "filename", filename, "error", err)
		return extract.Placeholder(filename)
	}
	return text
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFromRequest(w, r)
	if !ok {
		return
	}
	writeJSON(w, map[string]any{"files": sess.Snapshot().Files})
}

func (s *Server) handleSelectFile(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFromRequest(w, r)
	if !ok {
		return
	}
	name := chi.URLParam(r, "name")
	if err := sess.SelectFile(name); err != nil {
		jsonError(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, sess.Snapshot())
}

func (s *Server) handleRenameFile(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFromRequest(w, r)
	if !ok {
		return
	}
	var req struct {
		NewName string `json:"new_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.NewName == "" {
		jsonError(w, "new_name is required", http.StatusBadRequest)
		return
	}
	name := chi.URLParam(r, "name")
	if err := sess.RenameFile(name, sanitizeFilename(req.NewName)); err != nil {
		switch {
		case errors.Is(err, vfile.ErrNameTaken):
			jsonError(w, err.Error(), http.StatusConflict)
		case errors.Is(err, vfile.ErrNotFound):
			jsonError(w, err.Error(), http.StatusNotFound)
		default:
			jsonError(w, err.Error(), http.StatusBadRequest)
		}
		return
	}
	writeJSON(w, sess.Snapshot())
}

func (s *Server) handleRemoveFile(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFromRequest(w, r)
	if !ok {
		return
	}
	name := chi.URLParam(r, "name")
	if err := sess.RemoveFile(name); err != nil {
		jsonError(w, err.Error(), http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDownloadFile(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFromRequest(w, r)
	if !ok {
		return
	}
	name := chi.URLParam(r, "name")
	var content string
	var found bool
	for _, f := range sess.Snapshot().Files {
		if f.Name == name {
			content, found = f.Content, true
			break
		}
	}
	if !found {
		jsonError(w, "file not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	io.Copy(w, strings.NewReader(content))
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	// Remove any path separators that might have survived.
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
