package api

import (
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"github.com/MrMouse2405/CSE362/internal/auth"
	"github.com/MrMouse2405/CSE362/internal/metrics"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v0", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Post("/user/login", s.handleLogin)
		r.Post("/user/logout", s.handleLogout)

		r.Group(func(r chi.Router) {
			r.Use(s.sessionMiddleware)

			r.Group(func(r chi.Router) {
				r.Use(s.requireRole(auth.AllowAuthorized))

				r.Get("/user/me", s.handleMe)
				r.Get("/user/get/{id}", s.handleGetUser)
				r.Patch("/user/update/password", s.handleUpdatePassword)
			})

			r.Group(func(r chi.Router) {
				r.Use(s.requireRole(auth.AllowAdmin))

				r.Get("/user/list", s.handleListUsers)
				r.Post("/user/create", s.handleCreateUser)
				r.Delete("/user/delete/{id}", s.handleDeleteUser)
				r.Patch("/user/update/name/{id}", s.handleUpdateUsername)
				r.Patch("/user/update/role/{id}", s.handleUpdateRole)
				r.Delete("/user/sessions/{id}", s.handleRevokeUserSessions)
				r.Get("/audit", s.handleListAuditLogs)
				r.Get("/system", s.handleSystemStatus)
			})
		})
	})

	if s.cfg.StaticDir != "" {
		if info, err := os.Stat(s.cfg.StaticDir); err == nil && info.IsDir() {
			r.Handle("/*", http.FileServer(http.Dir(s.cfg.StaticDir)))
		}
	}

	return r
}

// handleHealth reports liveness and, when a database is wired, its health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status":  "ok",
		"version": s.version,
	}

	if s.db != nil {
		if err := s.db.HealthCheck(r.Context()); err != nil {
			s.logger.Error("database health check failed", "error", err)
			body["status"] = "degraded"
			body["database"] = "unavailable"
			writeJSON(w, http.StatusServiceUnavailable, body)
			return
		}
		body["database"] = "ok"
	}

	writeJSON(w, http.StatusOK, body)
}
