package core

import (
	"context"
	"time"

	"upmon/internal/storage"
)

// Repository is the storage the engine reads monitors from and writes statuses to.
type Repository interface {
	// FindMonitor returns the monitor or an error matching storage.ErrNotFound.
	FindMonitor(ctx context.Context, id int64) (*storage.Monitor, error)

	FindAllMonitors(ctx context.Context, filter storage.MonitorFilter) ([]storage.Monitor, error)

	// InsertStatus appends a status and returns its id.
	InsertStatus(ctx context.Context, status *storage.MonitorStatus) (int64, error)

	// LatestStatus returns nil, nil for a monitor without history.
	LatestStatus(ctx context.Context, monitorID int64) (*storage.MonitorStatus, error)
}

// Prober executes the probe matching a monitor's type.
type Prober interface {
	Probe(ctx context.Context, monitor *storage.Monitor) (bool, error)
}

// Clock returns the current time.
type Clock func() time.Time

func systemClock() time.Time { return time.Now().UTC() }
