// Package monitors implements HTTP handlers for monitors, on-demand checks
// and monitor history.
package monitors

import (
	"time"

	"upmon/internal/storage"
)

// MonitorRequest is the payload for creating or patching a monitor.
//
// label, periodicity and type are required on create. host and port apply
// to ping monitors, url, check_status and keywords to website monitors.
type MonitorRequest struct {
	Label       *string   `json:"label,omitempty" binding:"omitempty,max=100"`
	Periodicity *int      `json:"periodicity,omitempty"`
	Type        *string   `json:"type,omitempty" binding:"omitempty,oneof=ping website"`
	BadgeLabel  *string   `json:"badge_label,omitempty" binding:"omitempty,max=50"`
	Host        *string   `json:"host,omitempty"`
	Port        *int      `json:"port,omitempty"`
	URL         *string   `json:"url,omitempty"`
	CheckStatus *bool     `json:"check_status,omitempty"`
	Keywords    *[]string `json:"keywords,omitempty"`
}

func (r MonitorRequest) empty() bool {
	return r.Label == nil && r.Periodicity == nil && r.Type == nil && r.BadgeLabel == nil &&
		r.Host == nil && r.Port == nil && r.URL == nil && r.CheckStatus == nil && r.Keywords == nil
}

func (r MonitorRequest) input(projectID int64) storage.MonitorInput {
	in := storage.MonitorInput{ProjectID: projectID}
	if r.Label != nil {
		in.Label = *r.Label
	}
	if r.Periodicity != nil {
		in.Periodicity = *r.Periodicity
	}
	if r.Type != nil {
		in.Type = storage.MonitorType(*r.Type)
	}
	if r.BadgeLabel != nil {
		in.BadgeLabel = *r.BadgeLabel
	}
	if r.Host != nil {
		in.Host = *r.Host
	}
	if r.Port != nil {
		in.Port = *r.Port
	}
	if r.URL != nil {
		in.URL = *r.URL
	}
	if r.CheckStatus != nil {
		in.CheckStatus = *r.CheckStatus
	}
	if r.Keywords != nil {
		in.Keywords = *r.Keywords
	}
	return in
}

func (r MonitorRequest) patch() storage.MonitorPatch {
	p := storage.MonitorPatch{
		Label:       r.Label,
		Periodicity: r.Periodicity,
		BadgeLabel:  r.BadgeLabel,
		Host:        r.Host,
		Port:        r.Port,
		URL:         r.URL,
		CheckStatus: r.CheckStatus,
		Keywords:    r.Keywords,
	}
	if r.Type != nil {
		t := storage.MonitorType(*r.Type)
		p.Type = &t
	}
	return p
}

// MonitorResponse represents a monitor in API responses.
type MonitorResponse struct {
	ID          int64               `json:"id"`
	ProjectID   int64               `json:"project_id"`
	Label       string              `json:"label"`
	Periodicity int                 `json:"periodicity"`
	Type        storage.MonitorType `json:"type"`
	BadgeLabel  string              `json:"badge_label"`

	// ping
	Host string `json:"host,omitempty"`
	Port int    `json:"port,omitempty"`

	// website
	URL         string   `json:"url,omitempty"`
	CheckStatus *bool    `json:"check_status,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`

	// LastStatus is the most recent check result, nil before the first check
	LastStatus *storage.MonitorStatus `json:"last_status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toResponse(m *storage.Monitor, latest *storage.MonitorStatus) MonitorResponse {
	resp := MonitorResponse{
		ID:          m.ID,
		ProjectID:   m.ProjectID,
		Label:       m.Label,
		Periodicity: m.Periodicity,
		Type:        m.Type(),
		BadgeLabel:  m.BadgeLabel,
		LastStatus:  latest,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}

	switch t := m.Target.(type) {
	case storage.PingTarget:
		resp.Host = t.Host
		resp.Port = t.Port
	case storage.WebsiteTarget:
		checkStatus := t.CheckStatus
		resp.URL = t.URL
		resp.CheckStatus = &checkStatus
		resp.Keywords = t.Keywords
	}
	return resp
}

// StatusesQuery holds the query parameters of the statuses endpoint.
type StatusesQuery struct {
	Page   int    `form:"page" binding:"omitempty,min=1"`
	Limit  int    `form:"limit" binding:"omitempty,min=1"`
	From   string `form:"from"`
	To     string `form:"to"`
	Status string `form:"status" binding:"omitempty,oneof=up down"`
}

// CalendarQuery holds the query parameters of the calendar endpoint.
// Both bounds are YYYY-MM-DD; end defaults to today and start to 29 days before end.
type CalendarQuery struct {
	Start string `form:"start"`
	End   string `form:"end"`
}

// GraphQuery holds the query parameters of the graph endpoint.
type GraphQuery struct {
	From  string `form:"from"`
	To    string `form:"to"`
	Limit int    `form:"limit" binding:"omitempty,min=1"`
}
