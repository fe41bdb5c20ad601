package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/treepaper/paperedit/internal/config"
	"github.com/treepaper/paperedit/internal/pipeline"
	"github.com/treepaper/paperedit/internal/session"
)

// Server is the HTTP API server for paperedit.
type Server struct {
	router   chi.Router
	sessions *session.Manager
	client   *pipeline.Client
	log      *slog.Logger
	cfg      config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(sessions *session.Manager, client *pipeline.Client, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		sessions: sessions,
		client:   client,
		log:      log,
		cfg:      cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		if s.cfg.APIKey != "" {
			r.Use(AuthMiddleware(s.cfg.APIKey, s.log))
		}

		r.Post("/api/sessions", s.handleCreateSession)

		r.Route("/api/sessions/{sessionID}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleDeleteSession)

			r.Post("/files", s.handleUploadFile)
			r.Get("/files", s.handleListFiles)
			r.Post("/files/{name}/select", s.handleSelectFile)
			r.Post("/files/{name}/rename", s.handleRenameFile)
			r.Delete("/files/{name}", s.handleRemoveFile)
			r.Get("/files/{name}/download", s.handleDownloadFile)

			r.Post("/edit", s.handleEdit)
			r.Post("/composition/start", s.handleCompositionStart)
			r.Post("/composition/end", s.handleCompositionEnd)
			r.Post("/undo", s.handleUndo)
			r.Post("/redo", s.handleRedo)
			r.Get("/outline", s.handleOutline)
			r.Post("/outline/{headingID}/select", s.handleSelectHeading)

			r.Post("/chat", s.handleChat)
			r.Get("/transcript", s.handleTranscript)

			r.Post("/generate", s.handleGenerate)
			r.Get("/suggestion", s.handleSuggestion)
		})
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// sessionFromRequest resolves the session id path parameter, writing a 404
// when the session does not exist.
func (s *Server) sessionFromRequest(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	id := chi.URLParam(r, "sessionID")
	sess, ok := s.sessions.Get(id)
	if !ok {
		jsonError(w, "session not found", http.StatusNotFound)
		return nil, false
	}
	return sess, true
}
