package checks

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Failure reasons attached to probe warnings.
const (
	ReasonTimeout     = "timeout"
	ReasonRefused     = "refused"
	ReasonDNS         = "dns"
	ReasonUnreachable = "unreachable"
	ReasonStatusCode  = "status_code"
	ReasonKeyword     = "keyword"
	ReasonBodyRead    = "body_read"
	ReasonInvalid     = "invalid_target"
	ReasonError       = "error"
)

// classifyFailure maps a transport error to a short failure reason.
func classifyFailure(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ReasonTimeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ReasonDNS
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline exceeded"):
		return ReasonTimeout
	case strings.Contains(msg, "connection refused"):
		return ReasonRefused
	case strings.Contains(msg, "no route to host"),
		strings.Contains(msg, "host unreachable"),
		strings.Contains(msg, "network is unreachable"):
		return ReasonUnreachable
	default:
		return ReasonError
	}
}

// probeFailed logs a failed probe at warn level and returns false.
func probeFailed(event *zerolog.Event, reason string, err error) bool {
	if err != nil {
		event = event.Err(err)
	}
	event.Str("reason", reason).Msg("Probe failed")
	return false
}

// warn starts a probe warning carrying the monitor type.
func warn(typ string) *zerolog.Event {
	return log.Warn().Str("type", typ)
}
