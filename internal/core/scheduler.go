package core

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"upmon/internal/storage"
)

// IsDue reports whether monitor must be checked at now.
//
// A monitor without history is always due. Otherwise the periodicity is
// measured from the start time of its latest status, so a late check moves
// the next one along with it.
func IsDue(monitor *storage.Monitor, latest *storage.MonitorStatus, now time.Time) bool {
	if latest == nil {
		return true
	}
	return now.Sub(latest.StartTime) >= monitor.Interval()
}

// DueCalculator computes which monitors are due for a check.
type DueCalculator struct {
	repo    Repository
	workers int
	now     Clock
}

// NewDueCalculator creates a calculator that runs at most workers
// latest-status lookups at a time.
func NewDueCalculator(repo Repository, workers int, now Clock) *DueCalculator {
	if workers < 1 {
		workers = 1
	}
	if now == nil {
		now = systemClock
	}
	return &DueCalculator{
		repo:    repo,
		workers: workers,
		now:     now,
	}
}

// MonitorsDueForCheck returns the due monitors in listing order.
//
// It never fails: a listing error yields an empty slice and a failed status
// lookup skips only the affected monitor. Both are logged.
func (d *DueCalculator) MonitorsDueForCheck(ctx context.Context) []storage.Monitor {
	monitors, err := d.repo.FindAllMonitors(ctx, storage.MonitorFilter{})
	if err != nil {
		log.Error().Err(err).Msg("Failed to list monitors, due set is empty")
		return []storage.Monitor{}
	}

	now := d.now()
	due := make([]bool, len(monitors))

	var g errgroup.Group
	g.SetLimit(d.workers)
	for i := range monitors {
		g.Go(func() error {
			m := &monitors[i]
			latest, err := d.repo.LatestStatus(ctx, m.ID)
			if err != nil {
				log.Warn().Int64("monitor_id", m.ID).Err(err).Msg("Failed to load latest status, skipping monitor")
				return nil
			}
			due[i] = IsDue(m, latest, now)
			return nil
		})
	}
	_ = g.Wait()

	result := make([]storage.Monitor, 0, len(monitors))
	seen := make(map[int64]struct{}, len(monitors))
	for i, m := range monitors {
		if !due[i] {
			continue
		}
		if _, dup := seen[m.ID]; dup {
			continue
		}
		seen[m.ID] = struct{}{}
		result = append(result, m)
	}

	log.Debug().
		Int("monitors", len(monitors)).
		Int("due", len(result)).
		Msg("Computed due set")

	return result
}
