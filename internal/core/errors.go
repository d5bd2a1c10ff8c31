package core

import (
	"errors"
	"fmt"

	"upmon/internal/checks"
	"upmon/internal/storage"
)

var (
	// ErrMonitorNotFound is returned when the monitor to check does not exist.
	// It matches storage.ErrNotFound.
	ErrMonitorNotFound = fmt.Errorf("monitor %w", storage.ErrNotFound)

	// ErrUnsupportedType is returned when no probe handles the monitor's type.
	ErrUnsupportedType = checks.ErrUnsupportedType

	// ErrCheckFailed wraps lookup and persistence failures of a check.
	ErrCheckFailed = errors.New("check failed")

	// ErrCheckInFlight is returned when another check of the same monitor holds the lease.
	ErrCheckInFlight = errors.New("check already in flight")

	// ErrNotDue is returned by scheduled checks when the monitor was checked
	// by someone else since the due set was computed.
	ErrNotDue = errors.New("monitor not due")
)
