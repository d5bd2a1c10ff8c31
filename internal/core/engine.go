// Package core provides the monitoring engine of upmon.
//
// The engine is responsible for:
//   - Computing which monitors are due
//   - Executing their checks through a bounded worker pool
//   - Persisting one status per executed check
//   - Running passes periodically in serve mode
package core

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"upmon/internal/config"
	"upmon/internal/metrics"
	"upmon/internal/storage"
)

// Engine represents the core monitoring engine.
type Engine struct {
	config       config.SchedulerConfig
	due          *DueCalculator
	orchestrator *Orchestrator
	metrics      *metrics.Metrics

	// passing is set while a pass is executing
	passing atomic.Bool

	// Internal state
	running bool
	mu      sync.RWMutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Option customizes an Engine.
type Option func(*engineOptions)

type engineOptions struct {
	now     Clock
	metrics *metrics.Metrics
}

// WithClock replaces the wall clock used for due decisions, start times and leases.
func WithClock(now Clock) Option {
	return func(o *engineOptions) { o.now = now }
}

// WithMetrics records probe and pass metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *engineOptions) { o.metrics = m }
}

// NewEngine creates a monitoring engine.
func NewEngine(cfg config.SchedulerConfig, repo Repository, prober Prober, opts ...Option) *Engine {
	options := engineOptions{now: systemClock}
	for _, opt := range opts {
		opt(&options)
	}

	if cfg.WorkerCount < 1 {
		cfg.WorkerCount = 1
	}

	leases := NewLeaseTable(cfg.LeaseTTL, options.now)

	return &Engine{
		config:       cfg,
		due:          NewDueCalculator(repo, cfg.WorkerCount, options.now),
		orchestrator: NewOrchestrator(repo, prober, leases, options.metrics, options.now),
		metrics:      options.metrics,
	}
}

// CheckMonitor runs an on-demand check of one monitor.
func (e *Engine) CheckMonitor(ctx context.Context, id int64) (*storage.MonitorStatus, error) {
	return e.orchestrator.CheckMonitor(ctx, id)
}

// MonitorsDueForCheck returns the monitors due right now.
func (e *Engine) MonitorsDueForCheck(ctx context.Context) []storage.Monitor {
	return e.due.MonitorsDueForCheck(ctx)
}

// Start runs a pass immediately and then every tick interval until Stop is
// called or ctx is cancelled.
//
// A tick that fires while the previous pass is still running is skipped.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		return fmt.Errorf("engine is already running")
	}

	engineCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel

	log.Info().
		Int("worker_count", e.config.WorkerCount).
		Dur("tick_interval", e.config.TickInterval).
		Msg("Starting monitoring engine")

	e.wg.Add(1)
	go e.loop(engineCtx)

	e.running = true
	return nil
}

// IsRunning returns whether the engine loop is active.
func (e *Engine) IsRunning() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.running
}

// Stop stops the loop and waits for the in-flight pass to finish.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return
	}

	log.Info().Msg("Stopping monitoring engine")

	if e.cancel != nil {
		e.cancel()
	}

	e.wg.Wait()
	e.running = false
	log.Info().Msg("Monitoring engine stopped")
}

func (e *Engine) loop(ctx context.Context) {
	defer e.wg.Done()

	ticker := time.NewTicker(e.config.TickInterval)
	defer ticker.Stop()

	e.triggerPass(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.triggerPass(ctx)
		}
	}
}

func (e *Engine) triggerPass(ctx context.Context) {
	if !e.passing.CompareAndSwap(false, true) {
		log.Warn().Msg("Previous pass still running, skipping tick")
		return
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer e.passing.Store(false)
		e.RunPass(ctx)
	}()
}
