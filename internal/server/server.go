// Package server provides the main HTTP server for AgriPulse: operational
// endpoints, module route mounting, and the shared middleware chain.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/croftlabs/agripulse/pkg/plugin"
)

// operationalPaths are excluded from request logging and rate limiting.
var operationalPaths = []string{"/healthz", "/readyz", "/metrics"}

// ReadinessChecker verifies that the server is ready to serve traffic.
// Returns nil if ready, an error describing why not otherwise.
type ReadinessChecker func(ctx context.Context) error

// Server is the main AgriPulse HTTP server.
type Server struct {
	httpServer *http.Server
	modules    []plugin.Plugin
	logger     *zap.Logger
	mux        *http.ServeMux
	ready      ReadinessChecker
}

// New creates a Server hosting the given modules. Routes of modules that
// implement plugin.HTTPProvider are mounted under /api/v1/{module}/.
func New(addr string, logger *zap.Logger, ready ReadinessChecker, modules ...plugin.Plugin) *Server {
	mux := http.NewServeMux()

	s := &Server{
		modules: modules,
		logger:  logger,
		mux:     mux,
		ready:   ready,
	}

	s.registerRoutes()
	s.mountModuleRoutes()

	// Middleware chain: outermost listed first.
	handler := Chain(mux,
		RecoveryMiddleware(logger),
		RequestIDMiddleware,
		LoggingMiddleware(logger, operationalPaths),
		SecurityHeadersMiddleware,
		RateLimitMiddleware(100, 200, operationalPaths),
	)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// registerRoutes sets up all core routes.
func (s *Server) registerRoutes() {
	// Unversioned operational endpoints.
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	s.mux.HandleFunc("GET /readyz", s.handleReadyz)
	s.mux.Handle("GET /metrics", promhttp.Handler())

	// Versioned API endpoints.
	s.mux.HandleFunc("GET /api/v1/health", s.handleHealth)
	s.mux.HandleFunc("GET /api/v1/modules", s.handleModules)
}

// mountModuleRoutes registers all module routes under /api/v1/{module}/.
func (s *Server) mountModuleRoutes() {
	for _, mod := range s.modules {
		hp, ok := mod.(plugin.HTTPProvider)
		if !ok {
			continue
		}
		name := mod.Info().Name
		for _, route := range hp.Routes() {
			pattern := fmt.Sprintf("%s /api/v1/%s%s", route.Method, name, route.Path)
			s.mux.HandleFunc(pattern, route.Handler)
			s.logger.Debug("mounted route",
				zap.String("module", name),
				zap.String("pattern", pattern),
			)
		}
	}
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// handleHealthz is a liveness probe -- returns 200 if the process is running.
func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "alive"})
}

// handleReadyz checks readiness -- returns 200 if the server can serve traffic.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
	}

	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status  string                         `json:"status"`
	Service string                         `json:"service"`
	Modules map[string]plugin.HealthStatus `json:"modules"`
}

// ModuleResponse describes a hosted module.
type ModuleResponse struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description"`
}

// handleHealth aggregates per-module health into one response. Any module
// reporting a non-healthy status degrades the overall status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:  "ok",
		Service: "agripulse",
		Modules: make(map[string]plugin.HealthStatus),
	}
	for _, mod := range s.modules {
		hc, ok := mod.(plugin.HealthChecker)
		if !ok {
			continue
		}
		status := hc.Health(r.Context())
		resp.Modules[mod.Info().Name] = status
		if status.Status != "healthy" {
			resp.Status = "degraded"
		}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// handleModules returns the list of hosted modules.
func (s *Server) handleModules(w http.ResponseWriter, _ *http.Request) {
	info := make([]ModuleResponse, 0, len(s.modules))
	for _, mod := range s.modules {
		mi := mod.Info()
		info = append(info, ModuleResponse{
			Name:        mi.Name,
			Version:     mi.Version,
			Description: mi.Description,
		})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(info)
}
