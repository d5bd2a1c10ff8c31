// Package api provides the HTTP API of upmon.
// This package implements a RESTful API using the Gin framework.
//
// Example usage:
//
//	server := api.NewServer(cfg.Server, api.Dependencies{Store: store, Engine: engine})
//	err := server.Start()
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"upmon/internal/config"
	"upmon/internal/core"
	"upmon/internal/history"
	"upmon/internal/storage"
)

// Dependencies are the components served by the API.
type Dependencies struct {
	Store   *storage.Store
	Engine  *core.Engine
	History *history.Aggregator

	// Gatherer backs GET /metrics; nil uses the default registry
	Gatherer prometheus.Gatherer

	// Version is reported by the health endpoint
	Version string
}

// Server represents the HTTP API server.
type Server struct {
	config config.ServerConfig
	deps   Dependencies
	router *gin.Engine
	server *http.Server
}

// NewServer creates a new HTTP API server instance.
func NewServer(cfg config.ServerConfig, deps Dependencies) *Server {
	gin.SetMode(gin.ReleaseMode)

	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}

	server := &Server{
		config: cfg,
		deps:   deps,
		router: gin.New(),
	}

	server.setupMiddleware()
	server.setupRoutes()

	server.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      server.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return server
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server and blocks until it is shut down.
func (s *Server) Start() error {
	log.Info().Str("addr", s.config.Addr).Msg("Starting HTTP server")

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// setupMiddleware configures middleware for the Gin router.
func (s *Server) setupMiddleware() {
	// Request ID middleware (should be first)
	s.router.Use(RequestID())

	s.router.Use(LoggerMiddleware())
	s.router.Use(PanicRecovery())
	s.router.Use(CORS(s.config.CORSOrigins))
}
