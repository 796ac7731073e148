// SPDX-License-Identifier: MIT

// Package api exposes the interactive multiobjective optimization service
// over HTTP: problem management, NIMBUS sessions and the solution archive.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/industrial-optimization-group/desdeo2/internal/archive"
	"github.com/industrial-optimization-group/desdeo2/internal/auth"
	"github.com/industrial-optimization-group/desdeo2/internal/config"
	"github.com/industrial-optimization-group/desdeo2/internal/registry"
	"github.com/industrial-optimization-group/desdeo2/internal/solver"
)

// Server wires the HTTP handlers to the archive and the problem library.
type Server struct {
	cfg      config.AppConfig
	store    *archive.Store
	registry *registry.Registry
}

// NewServer builds a Server over the given dependencies.
func NewServer(cfg config.AppConfig, store *archive.Store, reg *registry.Registry) *Server {
	return &Server{cfg: cfg, store: store, registry: reg}
}

// solverOptions maps the configured solver defaults to solve options.
func (s *Server) solverOptions() solver.Options {
	return solver.Options{
		MaxIterations:  s.cfg.Solver.MaxIterations,
		PopulationSize: s.cfg.Solver.PopulationSize,
		Seed:           s.cfg.Solver.Seed,
	}
}

// Routes assembles the router with the full middleware stack.
func (s *Server) Routes() *chi.Mux {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(realIP(s.cfg.TrustedProxies))
	r.Use(requestLogger)
	r.Use(recoverer)
	r.Use(rateLimit(s.cfg.RateLimit))

	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/session", s.handleAuthSession)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)

			r.Get("/problems", s.handleListProblems)
			r.Post("/problems", s.handleCreateProblem)
			r.Get("/problems/{id}", s.handleGetProblem)
			r.Delete("/problems/{id}", s.handleDeleteProblem)

			r.Post("/nimbus/initialize", s.handleNimbusInitialize)
			r.Post("/nimbus/iterate", s.handleNimbusIterate)
			r.Post("/nimbus/intermediate", s.handleNimbusIntermediate)
			r.Post("/nimbus/save", s.handleNimbusSave)
			r.Post("/nimbus/choose", s.handleNimbusChoose)
		})
	})
	return r
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReadyz pings the archive; a broken database means not ready.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable,
			APIError{Code: "not_ready", Message: "archive database unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleAuthSession exchanges a valid bearer token for an HTTP-only session
// cookie so browser clients avoid storing the token in script-visible state.
func (s *Server) handleAuthSession(w http.ResponseWriter, r *http.Request) {
	if s.cfg.APIToken == "" || !auth.AuthorizeRequest(r, s.cfg.APIToken) {
		respondUnauthorized(w)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    s.cfg.APIToken,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		Secure:   r.TLS != nil,
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "session created"})
}
