package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgallion1/docadapt/internal/adapt"
	"github.com/dgallion1/docadapt/internal/config"
	"github.com/dgallion1/docadapt/internal/letters"
	"github.com/dgallion1/docadapt/internal/outline"
	"github.com/dgallion1/docadapt/internal/pipeline"
)

// Server is the HTTP API server for docadapt.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	adapter      *adapt.Adapter
	segmenter    *outline.Segmenter
	letters      *letters.Fetcher
	log          *slog.Logger
	cfg          config.Config
}

// Deps are the collaborators the server routes requests to. Letters may be
// nil, which disables the letters endpoint.
type Deps struct {
	Orchestrator *pipeline.Orchestrator
	Adapter      *adapt.Adapter
	Segmenter    *outline.Segmenter
	Letters      *letters.Fetcher
}

// NewServer creates and configures the HTTP server.
func NewServer(deps Deps, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: deps.Orchestrator,
		adapter:      deps.Adapter,
		segmenter:    deps.Segmenter,
		letters:      deps.Letters,
		log:          log,
		cfg:          cfg,
	}
	if s.segmenter == nil {
		s.segmenter = outline.NewSegmenter(nil)
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
	r.Use(accessLog(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(requireKey(s.cfg.DocadaptAPIKey, s.log))

		r.Post("/api/outline", s.handleOutline)
		r.Post("/api/runs", s.handleCreateRun)
		r.Post("/api/letters/runs", s.handleCreateLettersRun)
		r.Get("/api/runs/{runID}/status", s.handleRunStatus)
		r.Get("/api/runs/{runID}/document", s.handleRunDocument)
		r.Get("/api/stats/llm", s.handleLLMStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
