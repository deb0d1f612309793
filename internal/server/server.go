package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"feedreader/internal/core"
	"feedreader/internal/server/handlers"
)

const authRealm = "feedreader"

// Server exposes the registered features over HTTP
type Server struct {
	config   *core.Config
	logger   *core.Logger
	db       *core.Database
	registry *core.Registry
	handler  http.Handler
	server   *http.Server
}

// New builds the router for every enabled feature in registry
func New(config *core.Config, logger *core.Logger, db *core.Database, registry *core.Registry) *Server {
	srv := &Server{
		config:   config,
		logger:   logger,
		db:       db,
		registry: registry,
	}

	srv.setupRoutes()
	return srv
}

func (s *Server) setupRoutes() {
	portalHandler := handlers.NewPortalHandler(s.logger, s.registry, s.db)

	mux := chi.NewRouter()

	mux.Use(middleware.Recoverer)
	mux.Use(middleware.RequestID)
	mux.Use(middleware.RealIP)
	mux.Use(middleware.Logger)
	mux.Use(middleware.Compress(5))

	// Health check stays reachable without credentials
	mux.Get("/health", portalHandler.HealthCheckHandler)

	mux.Group(func(r chi.Router) {
		if s.config.Auth.Enabled() {
			r.Use(middleware.BasicAuth(authRealm, map[string]string{
				s.config.Auth.Username: s.config.Auth.Password,
			}))
		}

		r.Get("/features", portalHandler.FeaturesHandler)
		r.Handle("/metrics", promhttp.Handler())

		for _, route := range s.registry.GetAllRoutes() {
			r.Method(route.Method, route.Path, route.Handler)
		}
	})

	s.handler = mux
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start initialises all features and serves until Shutdown is called
func (s *Server) Start(ctx context.Context) error {
	if err := s.registry.InitAll(ctx); err != nil {
		s.logger.Error("Failed to initialize features", "error", err)
		return err
	}

	s.logger.Info("Starting server", "host", s.config.Server.Host, "port", s.config.Server.Port)

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the features, then the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")

	if err := s.registry.ShutdownAll(ctx); err != nil {
		s.logger.Error("Failed to shutdown features", "error", err)
	}

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	s.db.LogStats()
	return nil
}
