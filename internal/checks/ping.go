package checks

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"upmon/internal/config"
	"upmon/internal/storage"
)

// PingProbe checks reachability with a single TCP connect.
//
// No ICMP is involved; the check succeeds when host:port accepts a connection,
// which is closed immediately.
type PingProbe struct {
	timeout time.Duration
	dialer  *net.Dialer
}

// NewPingProbe creates a ping probe with the configured connect timeout.
func NewPingProbe(cfg config.PingProbeConfig) *PingProbe {
	return &PingProbe{
		timeout: cfg.Timeout,
		dialer:  &net.Dialer{Timeout: cfg.Timeout},
	}
}

// Type returns MonitorTypePing.
func (p *PingProbe) Type() storage.MonitorType {
	return storage.MonitorTypePing
}

// Probe dials the target and reports whether the connection succeeded.
//
// A missing host or a port outside 1..65535 fails closed without any
// network attempt.
func (p *PingProbe) Probe(ctx context.Context, target storage.Target) bool {
	t, ok := target.(storage.PingTarget)
	if !ok {
		return probeFailed(warn(string(storage.MonitorTypePing)), ReasonInvalid, nil)
	}

	event := func() *zerolog.Event {
		return warn(string(storage.MonitorTypePing)).Str("host", t.Host).Int("port", t.Port)
	}

	if t.Host == "" || t.Port < 1 || t.Port > 65535 {
		return probeFailed(event(), ReasonInvalid, nil)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	conn, err := p.dialer.DialContext(ctx, "tcp", net.JoinHostPort(t.Host, strconv.Itoa(t.Port)))
	if err != nil {
		return probeFailed(event(), classifyFailure(err), err)
	}
	conn.Close()

	return true
}
