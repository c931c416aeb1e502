// Package server exposes the operator-facing status surface over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ElijahTowers/QuartaPotestas-sub002/internal/domain"
	"github.com/ElijahTowers/QuartaPotestas-sub002/internal/ports"
	"github.com/ElijahTowers/QuartaPotestas-sub002/internal/usecase"
)

// Server wires the scheduler and article store into a read-mostly HTTP API.
type Server struct {
	scheduler *usecase.Scheduler
	store     ports.ArticleStore
	logger    *slog.Logger
	router    chi.Router
}

// New creates the HTTP server.
func New(scheduler *usecase.Scheduler, store ports.ArticleStore, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{scheduler: scheduler, store: store, logger: logger}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/schedule", s.handleGetSchedule)
		r.Post("/schedule", s.handleUpdateSchedule)
		r.Post("/reset-and-ingest", s.handleResetAndIngest)
		r.Get("/articles", s.handleListArticles)
	})

	s.router = r
}

// Handler returns the root handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start blocks serving HTTP on addr.
func (s *Server) Start(addr string) error {
	s.logger.Info("http server starting", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

func (s *Server) handleGetSchedule(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.scheduler.Snapshot())
}

func (s *Server) handleUpdateSchedule(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IntervalMinutes *int  `json:"intervalMinutes"`
		Enabled         *bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.IntervalMinutes != nil {
		if err := s.scheduler.SetInterval(r.Context(), *req.IntervalMinutes); err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if req.Enabled != nil {
		if err := s.scheduler.SetEnabled(r.Context(), *req.Enabled); err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	s.writeJSON(w, http.StatusOK, s.scheduler.Snapshot())
}

// handleResetAndIngest wipes all articles, then runs one immediate batch and
// reports its summary. While a run is in flight the trigger is rejected.
func (s *Server) handleResetAndIngest(w http.ResponseWriter, r *http.Request) {
	// The batch outlives the HTTP request's context on purpose: enrichment
	// can take minutes and must not die with the connection.
	ctx := context.WithoutCancel(r.Context())

	summary, err := s.scheduler.ResetAndIngest(ctx, s.store.DeleteAllArticles)
	if errors.Is(err, domain.ErrAlreadyRunning) {
		s.writeError(w, http.StatusConflict, err.Error())
		return
	}

	resp := map[string]any{"summary": summary}
	if err != nil {
		resp["result"] = domain.RunFailed
		resp["error"] = err.Error()
	} else {
		resp["result"] = domain.RunSuccess
		if summary != nil && summary.Failures > 0 {
			resp["result"] = domain.RunPartial
		}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListArticles(w http.ResponseWriter, r *http.Request) {
	articles, err := s.store.ListArticles(r.Context())
	if err != nil {
		s.logger.Error("list articles failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if articles == nil {
		articles = []domain.Article{}
	}
	s.writeJSON(w, http.StatusOK, articles)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
