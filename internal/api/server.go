package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/maintex/partwatch/internal/analysis"
	"github.com/maintex/partwatch/internal/events"
	"github.com/maintex/partwatch/internal/runlog"
	"github.com/maintex/partwatch/internal/store"
)

// Server exposes the analysis engine and the parts catalog over HTTP. The
// store and publisher are optional: without a database the parts endpoints
// answer 503 and analysis outcomes are simply not persisted.
type Server struct {
	router    *chi.Mux
	engine    *analysis.Engine
	store     *store.Store
	runlog    *runlog.Writer
	publisher *events.Publisher
	logger    *slog.Logger
	http      *http.Server
}

func NewServer(port int, engine *analysis.Engine, db *store.Store, rl *runlog.Writer, pub *events.Publisher, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:    router,
		engine:    engine,
		store:     db,
		runlog:    rl,
		publisher: pub,
		logger:    logger,
		http: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: router,
		},
	}

	router.Get("/health", s.health)
	router.Post("/api/analyze", s.analyzeStatus)
	router.Post("/api/analyze/replacements", s.analyzeReplacements)
	router.Get("/api/parts", s.listParts)
	router.Get("/api/parts/machines", s.listMachines)

	return s
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) Start() error {
	s.logger.Info("API server starting", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}

// flushWriter pairs a ResponseWriter with its Flusher for SSE frames.
type flushWriter struct {
	w http.ResponseWriter
	f http.Flusher
}

func newFlushWriter(w http.ResponseWriter) (*flushWriter, bool) {
	f, ok := w.(http.Flusher)
	if !ok {
		return nil, false
	}
	return &flushWriter{w: w, f: f}, true
}

// writeFrame sends one SSE data frame and flushes it immediately.
func (fw *flushWriter) writeFrame(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(fw.w, "data: %s\n\n", payload); err != nil {
		return err
	}
	fw.f.Flush()
	return nil
}
