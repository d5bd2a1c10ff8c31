// Package checks provides the probe executors for upmon monitors.
//
// Each monitor type has one Prober. A probe performs exactly one network
// check and reports pass or fail; ordinary network failures are a false
// result, never an error.
//
// Supported monitor types:
//   - ping: TCP connect to host:port
//   - website: HTTP GET with optional status and keyword validation
//
// Example usage:
//
//	manager := checks.NewManager(cfg.Probes)
//	up, err := manager.Probe(ctx, monitor)
package checks

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	"upmon/internal/config"
	"upmon/internal/storage"
)

// ErrUnsupportedType is returned when no prober handles a monitor's type.
var ErrUnsupportedType = errors.New("unsupported monitor type")

// Prober defines the interface that all probe types must implement.
type Prober interface {
	// Type returns the monitor type this prober handles.
	Type() storage.MonitorType

	// Probe performs one check of target and reports whether it passed.
	Probe(ctx context.Context, target storage.Target) bool
}

// Manager routes probes to the implementation registered for a monitor type.
type Manager struct {
	probers map[storage.MonitorType]Prober
}

// NewManager creates a manager with the ping and website probers.
func NewManager(cfg config.ProbesConfig) *Manager {
	return NewManagerWith(NewPingProbe(cfg.Ping), NewWebsiteProbe(cfg.Website))
}

// NewManagerWith creates a manager with the given probers.
func NewManagerWith(probers ...Prober) *Manager {
	manager := &Manager{
		probers: make(map[storage.MonitorType]Prober, len(probers)),
	}
	for _, p := range probers {
		manager.register(p)
	}
	return manager
}

func (m *Manager) register(p Prober) {
	m.probers[p.Type()] = p
	log.Debug().Str("type", string(p.Type())).Msg("Prober registered")
}

// Probe runs the prober matching monitor's type.
//
// The only error is ErrUnsupportedType; a down target is reported as false.
func (m *Manager) Probe(ctx context.Context, monitor *storage.Monitor) (bool, error) {
	prober, exists := m.probers[monitor.Type()]
	if !exists {
		return false, fmt.Errorf("%w: %q", ErrUnsupportedType, monitor.Type())
	}

	log.Debug().
		Int64("monitor_id", monitor.ID).
		Str("type", string(monitor.Type())).
		Msg("Executing probe")

	return prober.Probe(ctx, monitor.Target), nil
}

// SupportedTypes returns the registered monitor types in sorted order.
func (m *Manager) SupportedTypes() []storage.MonitorType {
	types := make([]storage.MonitorType, 0, len(m.probers))
	for t := range m.probers {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}
