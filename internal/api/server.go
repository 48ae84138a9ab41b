package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dgallion1/insurtree/internal/config"
	"github.com/dgallion1/insurtree/internal/pipeline"
	"github.com/dgallion1/insurtree/internal/query"
	"github.com/dgallion1/insurtree/internal/store"
)

// Server is the HTTP API server for insurtree.
type Server struct {
	router       chi.Router
	svc          *query.Service
	writer       *store.Writer
	orchestrator *pipeline.Orchestrator
	mcp          http.Handler
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server. mcpHandler may be nil.
func NewServer(svc *query.Service, writer *store.Writer, orch *pipeline.Orchestrator, mcpHandler http.Handler, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		svc:          svc,
		writer:       writer,
		orchestrator: orch,
		mcp:          mcpHandler,
		log:          log,
		cfg:          cfg,
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

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/insurance", func(r chi.Router) {
		r.Get("/", s.handleListInsurances)
		r.Post("/", s.handleUpsertInsurances)
		r.Delete("/{id}", s.handleDeleteInsurance)
		r.Get("/top/{maxCount}/maxdepth/{maxDepth}", s.handleTop)

		r.Post("/import", s.handleImport)
		r.Get("/import/{jobID}/status", s.handleImportStatus)
	})

	r.Get("/api/stats/query", s.handleQueryStats)

	if s.mcp != nil {
		r.Handle("/mcp", s.mcp)
	}

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
