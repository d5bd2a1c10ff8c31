// Package storage defines the data models for the upmon monitoring system.
//
// A Monitor carries the fields common to every check plus a Target, which is a
// closed sum type with one variant per monitor type. The repository flattens the
// variant into nullable columns and rebuilds it on read, so a Monitor value can
// never hold a mix of ping and website settings.
package storage

import (
	"time"
)

// MonitorType identifies the kind of probe a monitor runs.
type MonitorType string

// MonitorType constants define the supported monitor types.
const (
	MonitorTypePing    MonitorType = "ping"
	MonitorTypeWebsite MonitorType = "website"
)

// Periodicity bounds in seconds.
const (
	MinPeriodicity = 5
	MaxPeriodicity = 300
)

// Target is the type-specific part of a monitor.
//
// Only PingTarget and WebsiteTarget implement it.
type Target interface {
	// Type returns the monitor type this target belongs to.
	Type() MonitorType

	isTarget()
}

// PingTarget holds the settings for a TCP connect check.
type PingTarget struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// Type returns MonitorTypePing.
func (PingTarget) Type() MonitorType { return MonitorTypePing }

func (PingTarget) isTarget() {}

// WebsiteTarget holds the settings for an HTTP GET check.
type WebsiteTarget struct {
	URL string `json:"url"`

	// CheckStatus requires the final status code to be 2xx.
	CheckStatus bool `json:"check_status"`

	// Keywords must all appear in the response body (case-sensitive).
	Keywords []string `json:"keywords"`
}

// Type returns MonitorTypeWebsite.
func (WebsiteTarget) Type() MonitorType { return MonitorTypeWebsite }

func (WebsiteTarget) isTarget() {}

// Monitor is a configured target that is checked periodically.
type Monitor struct {
	// ID is assigned by the repository on creation
	ID int64

	// ProjectID references the owning project
	ProjectID int64

	// Label is the display name
	Label string

	// Periodicity is the interval between checks in seconds
	Periodicity int

	// BadgeLabel is the text shown on the status badge
	BadgeLabel string

	// Target holds the type-specific settings
	Target Target

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Type returns the monitor type derived from its target.
func (m *Monitor) Type() MonitorType {
	if m.Target == nil {
		return ""
	}
	return m.Target.Type()
}

// Interval returns the periodicity as a duration.
func (m *Monitor) Interval() time.Duration {
	return time.Duration(m.Periodicity) * time.Second
}

// MonitorStatus is the outcome of one executed check.
//
// Statuses are append-only; they are removed only together with their monitor.
type MonitorStatus struct {
	ID        int64 `json:"id"`
	MonitorID int64 `json:"monitor_id"`

	// StartTime is the instant the check began, in UTC
	StartTime time.Time `json:"start_time"`

	// Up is true when the probe passed
	Up bool `json:"status"`

	// ResponseTime is the probe duration in milliseconds
	ResponseTime int64 `json:"response_time"`
}

// Project groups monitors.
type Project struct {
	ID          int64
	Label       string
	Description string
	Tags        []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// MonitorFilter narrows FindAllMonitors. Nil fields match everything.
type MonitorFilter struct {
	ProjectID *int64
	Type      *MonitorType
}

// StatusFilter restricts history queries by outcome.
type StatusFilter int

// StatusFilter values.
const (
	StatusAny StatusFilter = iota
	StatusUpOnly
	StatusDownOnly
)

// ParseStatusFilter maps "up" and "down" to their filters; anything else is StatusAny.
func ParseStatusFilter(s string) StatusFilter {
	switch s {
	case "up":
		return StatusUpOnly
	case "down":
		return StatusDownOnly
	default:
		return StatusAny
	}
}

// StatusQuery selects a page of a monitor's history.
type StatusQuery struct {
	MonitorID int64

	// Page is 1-based
	Page  int
	Limit int

	// From and To are inclusive bounds on StartTime
	From *time.Time
	To   *time.Time

	Status StatusFilter
}

// Offset returns the row offset for the query page.
func (q StatusQuery) Offset() int {
	if q.Page < 1 {
		return 0
	}
	return (q.Page - 1) * q.Limit
}

// SeriesQuery selects the newest response-time points in a window.
type SeriesQuery struct {
	MonitorID int64
	From      *time.Time
	To        *time.Time
	Limit     int
}

// DailyAggregate holds the check counts of one UTC calendar day.
type DailyAggregate struct {
	// Day is midnight UTC of the aggregated day
	Day    time.Time
	Total  int64
	Failed int64
}
