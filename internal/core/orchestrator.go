package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"upmon/internal/metrics"
	"upmon/internal/storage"
)

// Orchestrator drives one check end to end: lookup, probe, timing, persistence.
type Orchestrator struct {
	repo    Repository
	prober  Prober
	leases  *LeaseTable
	metrics *metrics.Metrics
	now     Clock
}

// NewOrchestrator creates an orchestrator. m may be nil.
func NewOrchestrator(repo Repository, prober Prober, leases *LeaseTable, m *metrics.Metrics, now Clock) *Orchestrator {
	if now == nil {
		now = systemClock
	}
	if leases == nil {
		leases = NewLeaseTable(30*time.Second, now)
	}
	return &Orchestrator{
		repo:    repo,
		prober:  prober,
		leases:  leases,
		metrics: m,
		now:     now,
	}
}

// CheckMonitor checks the monitor with id now and persists the result.
//
// Errors:
//   - ErrCheckInFlight: another check of the monitor holds the lease
//   - ErrMonitorNotFound: no such monitor; nothing is probed or written
//   - ErrUnsupportedType: no probe for the monitor's type; nothing is written
//   - ErrCheckFailed: the lookup or the insert failed
//
// A down target is not an error; it is returned as a status with Up=false.
func (o *Orchestrator) CheckMonitor(ctx context.Context, id int64) (*storage.MonitorStatus, error) {
	return o.check(ctx, id, false)
}

// CheckIfDue is CheckMonitor for scheduled runs. Once the lease is held it
// re-reads the latest status and returns ErrNotDue when a concurrent run
// already checked the monitor within its periodicity.
func (o *Orchestrator) CheckIfDue(ctx context.Context, id int64) (*storage.MonitorStatus, error) {
	return o.check(ctx, id, true)
}

func (o *Orchestrator) check(ctx context.Context, id int64, requireDue bool) (*storage.MonitorStatus, error) {
	release, ok := o.leases.Acquire(id)
	if !ok {
		o.metrics.CheckFailed(metrics.ReasonInFlight)
		log.Debug().Int64("monitor_id", id).Msg("Check already in flight")
		return nil, fmt.Errorf("monitor %d: %w", id, ErrCheckInFlight)
	}
	defer release()

	monitor, err := o.repo.FindMonitor(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		o.metrics.CheckFailed(metrics.ReasonNotFound)
		log.Warn().Int64("monitor_id", id).Msg("Monitor not found")
		return nil, fmt.Errorf("monitor %d: %w", id, ErrMonitorNotFound)
	}
	if err != nil {
		o.metrics.CheckFailed(metrics.ReasonLookup)
		log.Error().Int64("monitor_id", id).Err(err).Msg("Failed to load monitor")
		return nil, fmt.Errorf("%w: monitor %d lookup: %w", ErrCheckFailed, id, err)
	}

	if requireDue {
		latest, err := o.repo.LatestStatus(ctx, id)
		if err != nil {
			o.metrics.CheckFailed(metrics.ReasonLookup)
			log.Error().Int64("monitor_id", id).Err(err).Msg("Failed to load latest status")
			return nil, fmt.Errorf("%w: monitor %d latest status: %w", ErrCheckFailed, id, err)
		}
		if !IsDue(monitor, latest, o.now()) {
			return nil, fmt.Errorf("monitor %d: %w", id, ErrNotDue)
		}
	}

	startTime := o.now().UTC()
	started := time.Now()

	up, err := o.prober.Probe(ctx, monitor)
	elapsed := time.Since(started)
	if err != nil {
		o.metrics.CheckFailed(metrics.ReasonUnsupported)
		log.Error().
			Int64("monitor_id", id).
			Str("type", string(monitor.Type())).
			Err(err).
			Msg("Cannot probe monitor")
		return nil, fmt.Errorf("monitor %d: %w", id, err)
	}

	o.metrics.ObserveProbe(string(monitor.Type()), up, elapsed)

	status := &storage.MonitorStatus{
		MonitorID:    monitor.ID,
		StartTime:    startTime,
		Up:           up,
		ResponseTime: elapsed.Milliseconds(),
	}

	statusID, err := o.repo.InsertStatus(ctx, status)
	if err != nil {
		o.metrics.CheckFailed(metrics.ReasonPersist)
		log.Error().Int64("monitor_id", id).Err(err).Msg("Failed to persist status")
		return nil, fmt.Errorf("%w: monitor %d persist: %w", ErrCheckFailed, id, err)
	}
	status.ID = statusID

	log.Debug().
		Int64("monitor_id", id).
		Str("type", string(monitor.Type())).
		Bool("up", up).
		Int64("response_time_ms", status.ResponseTime).
		Msg("Check completed")

	return status, nil
}
