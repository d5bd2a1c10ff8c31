package core

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"upmon/internal/storage"
)

// PassSummary counts the outcomes of one scheduling pass.
type PassSummary struct {
	// Due is the size of the due set
	Due int `json:"due"`

	// Checked is the number of statuses written (Up + Down)
	Checked int `json:"checked"`
	Up      int `json:"up"`
	Down    int `json:"down"`

	// Failed checks wrote no status (not found, unsupported type, storage error)
	Failed int `json:"failed"`

	// Skipped checks were in flight elsewhere or no longer due
	Skipped int `json:"skipped"`
}

type checkOutcome int

const (
	outcomeUp checkOutcome = iota
	outcomeDown
	outcomeFailed
	outcomeSkipped
)

func (s *PassSummary) record(o checkOutcome) {
	switch o {
	case outcomeUp:
		s.Checked++
		s.Up++
	case outcomeDown:
		s.Checked++
		s.Down++
	case outcomeFailed:
		s.Failed++
	case outcomeSkipped:
		s.Skipped++
	}
}

// RunPass runs one scheduling pass: it computes the due set and checks each
// due monitor through the worker pool.
//
// It never fails. Per-monitor failures are logged and counted, and the pass
// always runs to completion.
func (e *Engine) RunPass(ctx context.Context) PassSummary {
	started := time.Now()

	monitors := e.due.MonitorsDueForCheck(ctx)
	summary := PassSummary{Due: len(monitors)}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(e.config.WorkerCount)

	for i := range monitors {
		monitor := &monitors[i]
		g.Go(func() error {
			outcome := e.executeCheck(ctx, monitor)

			mu.Lock()
			summary.record(outcome)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	elapsed := time.Since(started)
	e.metrics.ObservePass(summary.Due, elapsed)

	log.Info().
		Int("due", summary.Due).
		Int("checked", summary.Checked).
		Int("up", summary.Up).
		Int("down", summary.Down).
		Int("failed", summary.Failed).
		Int("skipped", summary.Skipped).
		Dur("duration", elapsed).
		Msg("Scheduling pass completed")

	return summary
}

// executeCheck runs the scheduled check of one monitor and logs its outcome.
func (e *Engine) executeCheck(ctx context.Context, monitor *storage.Monitor) checkOutcome {
	status, err := e.orchestrator.CheckIfDue(ctx, monitor.ID)
	switch {
	case errors.Is(err, ErrCheckInFlight), errors.Is(err, ErrNotDue):
		log.Debug().Int64("monitor_id", monitor.ID).Err(err).Msg("Check skipped")
		return outcomeSkipped
	case err != nil:
		log.Warn().
			Int64("monitor_id", monitor.ID).
			Str("type", string(monitor.Type())).
			Err(err).
			Msg("Check failed")
		return outcomeFailed
	}

	log.Info().
		Int64("monitor_id", monitor.ID).
		Int64("project_id", monitor.ProjectID).
		Str("type", string(monitor.Type())).
		Bool("up", status.Up).
		Int64("response_time_ms", status.ResponseTime).
		Msg("Monitor checked")

	if status.Up {
		return outcomeUp
	}
	return outcomeDown
}
