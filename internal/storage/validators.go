package storage

import (
	"net"
	"net/url"
	"strings"
	"time"
)

// MonitorInput carries the fields needed to create a monitor.
//
// Only the fields of the group matching Type are read; the others are ignored.
type MonitorInput struct {
	ProjectID   int64
	Label       string
	Periodicity int
	Type        MonitorType
	BadgeLabel  string

	// ping
	Host string
	Port int

	// website
	URL         string
	CheckStatus bool
	Keywords    []string
}

// MonitorPatch carries a partial monitor update. Nil fields are left unchanged.
type MonitorPatch struct {
	Label       *string
	Periodicity *int
	BadgeLabel  *string

	// Type may be supplied but must equal the current type
	Type *MonitorType

	Host *string
	Port *int

	URL         *string
	CheckStatus *bool
	Keywords    *[]string
}

// ProjectInput carries the fields needed to create a project.
type ProjectInput struct {
	Label       string
	Description string
	Tags        []string
}

// ProjectPatch carries a partial project update. Nil fields are left unchanged.
type ProjectPatch struct {
	Label       *string
	Description *string
	Tags        *[]string
}

// NewMonitor validates in and builds a Monitor with the matching target variant.
func NewMonitor(in MonitorInput) (*Monitor, error) {
	if in.ProjectID <= 0 {
		return nil, invalid("project_id", "must be a positive id")
	}

	m := &Monitor{
		ProjectID:   in.ProjectID,
		Label:       strings.TrimSpace(in.Label),
		Periodicity: in.Periodicity,
		BadgeLabel:  strings.TrimSpace(in.BadgeLabel),
	}

	switch in.Type {
	case MonitorTypePing:
		m.Target = PingTarget{Host: strings.TrimSpace(in.Host), Port: in.Port}
	case MonitorTypeWebsite:
		m.Target = WebsiteTarget{
			URL:         strings.TrimSpace(in.URL),
			CheckStatus: in.CheckStatus,
			Keywords:    normalizeKeywords(in.Keywords),
		}
	default:
		return nil, invalid("type", "unsupported monitor type %q (expected ping or website)", in.Type)
	}

	if err := ValidateMonitor(m); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now
	return m, nil
}

// Apply validates p against m and returns the updated copy. m itself is not modified.
func (m *Monitor) Apply(p MonitorPatch) (*Monitor, error) {
	if p.Type != nil && *p.Type != m.Type() {
		return nil, invalid("type", "cannot change monitor type from %s to %s", m.Type(), *p.Type)
	}

	updated := *m
	if p.Label != nil {
		updated.Label = strings.TrimSpace(*p.Label)
	}
	if p.Periodicity != nil {
		updated.Periodicity = *p.Periodicity
	}
	if p.BadgeLabel != nil {
		updated.BadgeLabel = strings.TrimSpace(*p.BadgeLabel)
	}

	switch t := m.Target.(type) {
	case PingTarget:
		if p.Host != nil {
			t.Host = strings.TrimSpace(*p.Host)
		}
		if p.Port != nil {
			t.Port = *p.Port
		}
		updated.Target = t
	case WebsiteTarget:
		if p.URL != nil {
			t.URL = strings.TrimSpace(*p.URL)
		}
		if p.CheckStatus != nil {
			t.CheckStatus = *p.CheckStatus
		}
		if p.Keywords != nil {
			t.Keywords = normalizeKeywords(*p.Keywords)
		} else {
			t.Keywords = append([]string(nil), t.Keywords...)
		}
		updated.Target = t
	}

	if err := ValidateMonitor(&updated); err != nil {
		return nil, err
	}

	updated.UpdatedAt = time.Now().UTC()
	return &updated, nil
}

// ValidateMonitor checks the common fields and the target variant of m.
func ValidateMonitor(m *Monitor) error {
	if m.Label == "" {
		return invalid("label", "cannot be empty")
	}
	if len(m.Label) > 100 {
		return invalid("label", "too long (max 100 chars)")
	}
	if len(m.BadgeLabel) > 50 {
		return invalid("badge_label", "too long (max 50 chars)")
	}
	if err := ValidatePeriodicity(m.Periodicity); err != nil {
		return err
	}

	switch t := m.Target.(type) {
	case PingTarget:
		return validatePingTarget(t)
	case WebsiteTarget:
		return validateWebsiteTarget(t)
	default:
		return invalid("type", "monitor has no target")
	}
}

// ValidatePeriodicity enforces MinPeriodicity <= seconds <= MaxPeriodicity.
func ValidatePeriodicity(seconds int) error {
	if seconds < MinPeriodicity || seconds > MaxPeriodicity {
		return invalid("periodicity", "must be between %d and %d seconds, got %d",
			MinPeriodicity, MaxPeriodicity, seconds)
	}
	return nil
}

func validatePingTarget(t PingTarget) error {
	if t.Host == "" {
		return invalid("host", "cannot be empty")
	}
	if t.Port < 1 || t.Port > 65535 {
		return invalid("port", "must be between 1 and 65535, got %d", t.Port)
	}
	if net.ParseIP(t.Host) != nil {
		return nil
	}
	return validateHostname(t.Host)
}

func validateWebsiteTarget(t WebsiteTarget) error {
	if t.URL == "" {
		return invalid("url", "cannot be empty")
	}

	parsed, err := url.Parse(t.URL)
	if err != nil {
		return invalid("url", "invalid URL format: %v", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return invalid("url", "invalid scheme %q (only http and https supported)", parsed.Scheme)
	}
	if parsed.Hostname() == "" {
		return invalid("url", "missing host")
	}

	for _, kw := range t.Keywords {
		if len(kw) > 255 {
			return invalid("keywords", "keyword too long (max 255 chars)")
		}
	}
	return nil
}

// validateHostname validates hostname format
func validateHostname(host string) error {
	if len(host) > 253 {
		return invalid("host", "hostname too long (max 253 chars)")
	}

	if strings.Contains(host, "..") || strings.HasPrefix(host, ".") || strings.HasSuffix(host, ".") {
		return invalid("host", "invalid hostname format")
	}

	for _, char := range host {
		if !((char >= 'a' && char <= 'z') ||
			(char >= 'A' && char <= 'Z') ||
			(char >= '0' && char <= '9') ||
			char == '.' || char == '-') {
			return invalid("host", "hostname contains invalid characters")
		}
	}

	return nil
}

// normalizeKeywords drops empty entries and keeps order.
func normalizeKeywords(in []string) []string {
	out := make([]string, 0, len(in))
	for _, kw := range in {
		if kw == "" {
			continue
		}
		out = append(out, kw)
	}
	return out
}

// NewProject validates in and builds a Project.
func NewProject(in ProjectInput) (*Project, error) {
	p := &Project{
		Label:       strings.TrimSpace(in.Label),
		Description: in.Description,
		Tags:        normalizeTags(in.Tags),
	}
	if err := ValidateProject(p); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	return p, nil
}

// Apply validates patch against p and returns the updated copy.
func (p *Project) Apply(patch ProjectPatch) (*Project, error) {
	updated := *p
	if patch.Label != nil {
		updated.Label = strings.TrimSpace(*patch.Label)
	}
	if patch.Description != nil {
		updated.Description = *patch.Description
	}
	if patch.Tags != nil {
		updated.Tags = normalizeTags(*patch.Tags)
	}
	if err := ValidateProject(&updated); err != nil {
		return nil, err
	}
	updated.UpdatedAt = time.Now().UTC()
	return &updated, nil
}

// ValidateProject validates a Project entity.
func ValidateProject(p *Project) error {
	if p.Label == "" {
		return invalid("label", "cannot be empty")
	}
	if len(p.Label) > 100 {
		return invalid("label", "too long (max 100 chars)")
	}
	if len(p.Description) > 1000 {
		return invalid("description", "too long (max 1000 chars)")
	}
	for _, tag := range p.Tags {
		if len(tag) > 50 {
			return invalid("tags", "tag %q too long (max 50 chars)", tag)
		}
	}
	return nil
}

// normalizeTags trims tags, drops empties and duplicates, and keeps first-seen order.
func normalizeTags(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, tag := range in {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
