package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

const (
	tableProjects = "projects"
	tableMonitors = "monitors"
	tableStatuses = "monitor_statuses"
)

var (
	projectColumns = []string{"id", "label", "description", "tags", "created_at", "updated_at"}

	monitorColumns = []string{
		"id", "project_id", "label", "periodicity", "type", "badge_label",
		"host", "port", "url", "check_status", "keywords",
		"created_at", "updated_at",
	}

	statusColumns = []string{"id", "monitor_id", "start_time", "status", "response_time"}
)

// -----------------------------------------------------------------------------
// Projects
// -----------------------------------------------------------------------------

// CreateProject inserts p and sets its ID.
func (s *Store) CreateProject(ctx context.Context, p *Project) error {
	tags, err := encodeStrings(p.Tags)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO projects (label, description, tags, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		p.Label, p.Description, tags, formatTime(p.CreatedAt), formatTime(p.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get project ID: %w", err)
	}
	p.ID = id

	log.Info().Int64("project_id", id).Msg("Project created")
	return nil
}

// FindProject returns the project with id or ErrNotFound.
func (s *Store) FindProject(ctx context.Context, id int64) (*Project, error) {
	p, err := newSelect(s.db, tableProjects, projectColumns, scanProject).
		Where("id = ?", id).
		First(ctx)
	if err != nil {
		return nil, fmt.Errorf("project %d: %w", id, err)
	}
	return &p, nil
}

// ListProjects returns every project ordered by id.
func (s *Store) ListProjects(ctx context.Context) ([]Project, error) {
	projects, err := newSelect(s.db, tableProjects, projectColumns, scanProject).
		OrderBy("id ASC").
		Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}

// UpdateProject writes the mutable fields of p.
func (s *Store) UpdateProject(ctx context.Context, p *Project) error {
	tags, err := encodeStrings(p.Tags)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE projects SET label = ?, description = ?, tags = ?, updated_at = ? WHERE id = ?`,
		p.Label, p.Description, tags, formatTime(p.UpdatedAt), p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}
	return expectAffected(result, "project", p.ID)
}

// DeleteProject removes a project together with its monitors and their history.
func (s *Store) DeleteProject(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	if err := expectAffected(result, "project", id); err != nil {
		return err
	}

	log.Info().Int64("project_id", id).Msg("Project deleted")
	return nil
}

func scanProject(row rowScanner) (Project, error) {
	var (
		p    Project
		tags string
	)
	if err := row.Scan(&p.ID, &p.Label, &p.Description, &tags, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return Project{}, err
	}

	var err error
	if p.Tags, err = decodeStrings(tags); err != nil {
		return Project{}, fmt.Errorf("project %d tags: %w", p.ID, err)
	}
	return p, nil
}

// -----------------------------------------------------------------------------
// Monitors
// -----------------------------------------------------------------------------

// monitorRow is the flattened column form of a Monitor.
type monitorRow struct {
	host        sql.NullString
	port        sql.NullInt64
	url         sql.NullString
	checkStatus sql.NullBool
	keywords    sql.NullString
}

// flattenTarget fills the columns of the target variant and leaves the other group NULL.
func flattenTarget(t Target) (monitorRow, error) {
	var row monitorRow
	switch v := t.(type) {
	case PingTarget:
		row.host = sql.NullString{String: v.Host, Valid: true}
		row.port = sql.NullInt64{Int64: int64(v.Port), Valid: true}
	case WebsiteTarget:
		keywords, err := encodeStrings(v.Keywords)
		if err != nil {
			return row, err
		}
		row.url = sql.NullString{String: v.URL, Valid: true}
		row.checkStatus = sql.NullBool{Bool: v.CheckStatus, Valid: true}
		row.keywords = sql.NullString{String: keywords, Valid: true}
	default:
		return row, invalid("type", "monitor has no target")
	}
	return row, nil
}

// CreateMonitor inserts m and sets its ID.
//
// Returns ErrNotFound when the owning project does not exist.
func (s *Store) CreateMonitor(ctx context.Context, m *Monitor) error {
	row, err := flattenTarget(m.Target)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO monitors (
			project_id, label, periodicity, type, badge_label,
			host, port, url, check_status, keywords,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ProjectID, m.Label, m.Periodicity, string(m.Type()), m.BadgeLabel,
		row.host, row.port, row.url, row.checkStatus, row.keywords,
		formatTime(m.CreatedAt), formatTime(m.UpdatedAt),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("project %d: %w", m.ProjectID, ErrNotFound)
		}
		return fmt.Errorf("failed to create monitor: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get monitor ID: %w", err)
	}
	m.ID = id

	log.Info().
		Int64("monitor_id", id).
		Int64("project_id", m.ProjectID).
		Str("type", string(m.Type())).
		Msg("Monitor created")
	return nil
}

// FindMonitor returns the monitor with id or ErrNotFound.
func (s *Store) FindMonitor(ctx context.Context, id int64) (*Monitor, error) {
	m, err := newSelect(s.db, tableMonitors, monitorColumns, scanMonitor).
		Where("id = ?", id).
		First(ctx)
	if err != nil {
		return nil, fmt.Errorf("monitor %d: %w", id, err)
	}
	return &m, nil
}

// FindAllMonitors returns the monitors matching filter ordered by id.
func (s *Store) FindAllMonitors(ctx context.Context, filter MonitorFilter) ([]Monitor, error) {
	query := newSelect(s.db, tableMonitors, monitorColumns, scanMonitor).OrderBy("id ASC")
	if filter.ProjectID != nil {
		query.Where("project_id = ?", *filter.ProjectID)
	}
	if filter.Type != nil {
		query.Where("type = ?", string(*filter.Type))
	}

	monitors, err := query.Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list monitors: %w", err)
	}
	return monitors, nil
}

// UpdateMonitor writes the mutable fields of m. The type column is never rewritten.
func (s *Store) UpdateMonitor(ctx context.Context, m *Monitor) error {
	row, err := flattenTarget(m.Target)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE monitors SET
			label = ?, periodicity = ?, badge_label = ?,
			host = ?, port = ?, url = ?, check_status = ?, keywords = ?,
			updated_at = ?
		WHERE id = ? AND type = ?`,
		m.Label, m.Periodicity, m.BadgeLabel,
		row.host, row.port, row.url, row.checkStatus, row.keywords,
		formatTime(m.UpdatedAt),
		m.ID, string(m.Type()),
	)
	if err != nil {
		return fmt.Errorf("failed to update monitor: %w", err)
	}
	return expectAffected(result, "monitor", m.ID)
}

// DeleteMonitor removes a monitor and its status history.
func (s *Store) DeleteMonitor(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM monitors WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete monitor: %w", err)
	}
	if err := expectAffected(result, "monitor", id); err != nil {
		return err
	}

	log.Info().Int64("monitor_id", id).Msg("Monitor deleted")
	return nil
}

func scanMonitor(row rowScanner) (Monitor, error) {
	var (
		m       Monitor
		typ     string
		flatRow monitorRow
	)
	err := row.Scan(
		&m.ID, &m.ProjectID, &m.Label, &m.Periodicity, &typ, &m.BadgeLabel,
		&flatRow.host, &flatRow.port, &flatRow.url, &flatRow.checkStatus, &flatRow.keywords,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return Monitor{}, err
	}

	switch MonitorType(typ) {
	case MonitorTypePing:
		m.Target = PingTarget{Host: flatRow.host.String, Port: int(flatRow.port.Int64)}
	case MonitorTypeWebsite:
		keywords, err := decodeStrings(flatRow.keywords.String)
		if err != nil {
			return Monitor{}, fmt.Errorf("monitor %d keywords: %w", m.ID, err)
		}
		m.Target = WebsiteTarget{
			URL:         flatRow.url.String,
			CheckStatus: flatRow.checkStatus.Bool,
			Keywords:    keywords,
		}
	default:
		return Monitor{}, fmt.Errorf("monitor %d has unknown type %q", m.ID, typ)
	}

	return m, nil
}

// -----------------------------------------------------------------------------
// Statuses
// -----------------------------------------------------------------------------

// InsertStatus appends a check result and returns its id.
func (s *Store) InsertStatus(ctx context.Context, status *MonitorStatus) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO monitor_statuses (monitor_id, start_time, status, response_time) VALUES (?, ?, ?, ?)`,
		status.MonitorID, formatTime(status.StartTime), status.Up, status.ResponseTime,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return 0, fmt.Errorf("monitor %d: %w", status.MonitorID, ErrNotFound)
		}
		return 0, fmt.Errorf("failed to insert status: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get status ID: %w", err)
	}
	status.ID = id
	return id, nil
}

// LatestStatus returns the most recent status of a monitor by start time,
// or nil when the monitor has never been checked.
func (s *Store) LatestStatus(ctx context.Context, monitorID int64) (*MonitorStatus, error) {
	status, err := newSelect(s.db, tableStatuses, statusColumns, scanStatus).
		Where("monitor_id = ?", monitorID).
		OrderBy("start_time DESC, id DESC").
		First(ctx)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load latest status of monitor %d: %w", monitorID, err)
	}
	return &status, nil
}

// statusSelect applies the monitor, range and outcome filters of q.
func (s *Store) statusSelect(q StatusQuery) *SelectBuilder[MonitorStatus] {
	query := newSelect(s.db, tableStatuses, statusColumns, scanStatus).
		Where("monitor_id = ?", q.MonitorID)
	applyRange(query, q.From, q.To)

	switch q.Status {
	case StatusUpOnly:
		query.Where("status = 1")
	case StatusDownOnly:
		query.Where("status = 0")
	}
	return query
}

// QueryStatusHistory returns one page of statuses, newest first.
func (s *Store) QueryStatusHistory(ctx context.Context, q StatusQuery) ([]MonitorStatus, error) {
	statuses, err := s.statusSelect(q).
		OrderBy("start_time DESC, id DESC").
		Limit(q.Limit).
		Offset(q.Offset()).
		Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query status history: %w", err)
	}
	return statuses, nil
}

// CountStatusHistory counts the statuses matching q, ignoring paging.
func (s *Store) CountStatusHistory(ctx context.Context, q StatusQuery) (int64, error) {
	count, err := s.statusSelect(q).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count status history: %w", err)
	}
	return count, nil
}

// QueryDailyAggregates groups statuses with from <= start_time < to by UTC
// calendar day. Days without checks are absent from the result.
func (s *Store) QueryDailyAggregates(ctx context.Context, monitorID int64, from, to time.Time) ([]DailyAggregate, error) {
	aggregates, err := newSelect(s.db, tableStatuses,
		[]string{
			"substr(start_time, 1, 10) AS day",
			"COUNT(*)",
			"SUM(CASE WHEN status THEN 0 ELSE 1 END)",
		},
		scanDailyAggregate).
		Where("monitor_id = ?", monitorID).
		Where("start_time >= ?", formatTime(from)).
		Where("start_time < ?", formatTime(to)).
		GroupBy("day").
		OrderBy("day ASC").
		Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily aggregates: %w", err)
	}
	return aggregates, nil
}

// QueryResponseTimeSeries returns the newest q.Limit statuses in the window,
// newest first.
func (s *Store) QueryResponseTimeSeries(ctx context.Context, q SeriesQuery) ([]MonitorStatus, error) {
	query := newSelect(s.db, tableStatuses, statusColumns, scanStatus).
		Where("monitor_id = ?", q.MonitorID)
	applyRange(query, q.From, q.To)

	statuses, err := query.
		OrderBy("start_time DESC, id DESC").
		Limit(q.Limit).
		Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query response time series: %w", err)
	}
	return statuses, nil
}

func applyRange[T any](query *SelectBuilder[T], from, to *time.Time) {
	if from != nil {
		query.Where("start_time >= ?", formatTime(*from))
	}
	if to != nil {
		query.Where("start_time <= ?", formatTime(*to))
	}
}

func scanStatus(row rowScanner) (MonitorStatus, error) {
	var st MonitorStatus
	err := row.Scan(&st.ID, &st.MonitorID, &st.StartTime, &st.Up, &st.ResponseTime)
	if err != nil {
		return MonitorStatus{}, err
	}
	st.StartTime = st.StartTime.UTC()
	return st, nil
}

func scanDailyAggregate(row rowScanner) (DailyAggregate, error) {
	var (
		agg DailyAggregate
		day string
	)
	if err := row.Scan(&day, &agg.Total, &agg.Failed); err != nil {
		return DailyAggregate{}, err
	}

	parsed, err := time.Parse(time.DateOnly, day)
	if err != nil {
		return DailyAggregate{}, fmt.Errorf("invalid day %q: %w", day, err)
	}
	agg.Day = parsed
	return agg, nil
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func expectAffected(result sql.Result, entity string, id int64) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", entity, id, ErrNotFound)
	}
	return nil
}

func isForeignKeyViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey
}

func encodeStrings(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("failed to encode list: %w", err)
	}
	return string(raw), nil
}

func decodeStrings(raw string) ([]string, error) {
	values := []string{}
	if raw == "" {
		return values, nil
	}
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil, err
	}
	return values, nil
}
