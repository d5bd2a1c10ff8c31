// Package server wires the upmon components together and manages their lifecycle.
//
// The server follows a structured lifecycle:
//  1. Storage initialization and migration
//  2. Core engine startup
//  3. HTTP API server launch
//  4. Graceful shutdown on context cancellation
package server

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"

	"upmon/internal/api"
	"upmon/internal/checks"
	"upmon/internal/config"
	"upmon/internal/core"
	"upmon/internal/history"
	"upmon/internal/metrics"
	"upmon/internal/storage"
)

// shutdownTimeout bounds the graceful shutdown of the HTTP server and engine.
const shutdownTimeout = 30 * time.Second

// Components are the initialized parts of one upmon process.
type Components struct {
	Store    *storage.Store
	Engine   *core.Engine
	History  *history.Aggregator
	Registry *prometheus.Registry
}

// Open initializes storage and builds the engine and history aggregator on top of it.
// The caller must Close the returned components.
func Open(ctx context.Context, cfg *config.Config) (*Components, error) {
	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	engine := core.NewEngine(
		cfg.Scheduler,
		store,
		checks.NewManager(cfg.Probes),
		core.WithMetrics(metrics.New(registry)),
	)

	return &Components{
		Store:    store,
		Engine:   engine,
		History:  history.NewAggregator(store, cfg.History),
		Registry: registry,
	}, nil
}

// Close stops the engine and closes storage.
func (c *Components) Close() error {
	c.Engine.Stop()
	return c.Store.Close()
}

// Server represents the main upmon server orchestrator.
type Server struct {
	cfg     *config.Config
	version string
}

// New creates a new server instance with the provided configuration.
//
// The server is not started until Start() is called.
func New(cfg *config.Config, version string) *Server {
	return &Server{
		cfg:     cfg,
		version: version,
	}
}

// Start initializes and starts all components and blocks until ctx is
// cancelled or the HTTP server fails.
func (s *Server) Start(ctx context.Context) error {
	// Phase 1: storage, engine and history
	components, err := Open(ctx, s.cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := components.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close storage")
		}
	}()

	// Phase 2: scheduling loop
	if err := components.Engine.Start(ctx); err != nil {
		return fmt.Errorf("failed to start engine: %w", err)
	}

	// Phase 3: HTTP API
	httpServer := api.NewServer(s.cfg.Server, api.Dependencies{
		Store:    components.Store,
		Engine:   components.Engine,
		History:  components.History,
		Gatherer: components.Registry,
		Version:  s.version,
	})

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- httpServer.Start()
	}()

	// Phase 4: wait for shutdown signal or server error
	select {
	case err := <-serverErrors:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		log.Info().Msg("Shutdown signal received, starting graceful shutdown")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Stop accepting requests before the engine goes away
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	components.Engine.Stop()

	log.Info().Msg("Server stopped gracefully")
	return nil
}
