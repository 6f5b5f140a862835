package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/openhaus/camsync-core/internal/auth"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		// Auth endpoints (no auth required)
		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/refresh", s.handleRefresh)
		r.Post("/auth/logout", s.handleLogout)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			// Session endpoints
			r.Get("/auth/me", s.handleMe)
			r.Post("/auth/change-password", s.handleChangePassword)
			r.Post("/auth/ws-ticket", s.handleWSTicket)

			// System metrics
			r.Get("/metrics", s.handleMetrics)

			// Device registry
			r.Route("/devices", func(r chi.Router) {
				r.Get("/", s.handleListDevices)
				r.Get("/stats", s.handleDeviceStats)
				r.Get("/slug/{slug}", s.handleGetDeviceBySlug)
				r.Get("/{id}", s.handleGetDevice)

				r.Group(func(r chi.Router) {
					r.Use(s.requirePermission(auth.PermDeviceManage))
					r.Post("/", s.handleCreateDevice)
					r.Patch("/{id}", s.handleUpdateDevice)
					r.Delete("/{id}", s.handleDeleteDevice)
				})
			})

			// Camera lifecycle and settings
			r.Route("/cameras", func(r chi.Router) {
				r.Get("/", s.handleListCameras)
				r.Get("/{id}", s.handleGetCamera)
				r.Get("/{id}/settings", s.handleGetCameraSettings)

				r.Group(func(r chi.Router) {
					r.Use(s.requirePermission(auth.PermCameraConfigure))
					r.Post("/{id}/register", s.handleRegisterCamera)
					r.Delete("/{id}/register", s.handleUnregisterCamera)
					r.Put("/{id}/settings/{key}", s.handleApplyCameraSetting)
					r.Post("/{id}/subsystems/{name}/refetch", s.handleRefetchSubsystem)
				})

				// Overlay duplication is available to regular users.
				r.Group(func(r chi.Router) {
					r.Use(s.requirePermission(auth.PermOverlayManage))
					r.Post("/{id}/overlays/duplicate", s.handleDuplicateOverlays)
				})
			})

			// User management
			r.Route("/users", func(r chi.Router) {
				r.Use(s.requirePermission(auth.PermUserManage))
				r.Get("/", s.handleListUsers)
				r.Post("/", s.handleCreateUser)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetUser)
					r.Patch("/", s.handleUpdateUser)
					r.Delete("/", s.handleDeleteUser)
					r.Get("/sessions", s.handleListUserSessions)
					r.Delete("/sessions", s.handleRevokeUserSessions)
				})
			})

			// Destructive system operations
			r.Group(func(r chi.Router) {
				r.Use(s.requirePermission(auth.PermSystemDangerous))
				r.Post("/system/factory-reset", s.handleFactoryReset)
			})

			// WebSocket (auth via ticket, validated in handler)
			r.Get("/ws", s.handleWebSocket)
		})
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
