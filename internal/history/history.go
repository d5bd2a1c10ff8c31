// Package history projects the status log of a monitor into pages, a daily
// calendar and a response-time series.
//
// All projections are pure reads. Storage failures are logged and degrade to
// empty results so that a dashboard keeps rendering. The only error returned
// is the cancellation of ctx.
package history

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"upmon/internal/config"
	"upmon/internal/storage"
)

// Calendar day statuses.
const (
	DaySuccess = "success"
	DayWarning = "warning"
	DayDanger  = "danger"
)

// MaxCalendarDays bounds the span of one calendar request.
const MaxCalendarDays = 366

// dangerPercent is the failure ratio above which a day is flagged danger.
const dangerPercent = 5

// Repository is the read side of the status log.
type Repository interface {
	QueryStatusHistory(ctx context.Context, q storage.StatusQuery) ([]storage.MonitorStatus, error)
	CountStatusHistory(ctx context.Context, q storage.StatusQuery) (int64, error)

	// QueryDailyAggregates groups statuses with from <= start_time < to by UTC day.
	QueryDailyAggregates(ctx context.Context, monitorID int64, from, to time.Time) ([]storage.DailyAggregate, error)

	// QueryResponseTimeSeries returns the newest statuses first.
	QueryResponseTimeSeries(ctx context.Context, q storage.SeriesQuery) ([]storage.MonitorStatus, error)
}

// ListQuery selects one page of a monitor's history.
type ListQuery struct {
	MonitorID int64
	Page      int
	Limit     int
	From      *time.Time
	To        *time.Time
	Status    storage.StatusFilter
}

// Page is a page of statuses, newest first.
type Page struct {
	Items      []storage.MonitorStatus `json:"items"`
	Total      int64                   `json:"total"`
	Page       int                     `json:"page"`
	Limit      int                     `json:"limit"`
	TotalPages int                     `json:"total_pages"`
}

// DaySummary is one calendar cell.
type DaySummary struct {
	// Date is YYYY-MM-DD in UTC
	Date   string `json:"date"`
	Total  int64  `json:"total"`
	Failed int64  `json:"failed"`
	Status string `json:"status"`
}

// GraphPoint is one response-time sample.
type GraphPoint struct {
	Time         time.Time `json:"time"`
	ResponseTime int64     `json:"response_time"`
}

// Aggregator serves history projections.
type Aggregator struct {
	repo Repository
	cfg  config.HistoryConfig
}

// NewAggregator creates an aggregator over repo.
func NewAggregator(repo Repository, cfg config.HistoryConfig) *Aggregator {
	return &Aggregator{repo: repo, cfg: cfg}
}

// FindByMonitor returns one page of statuses, newest first, with the total
// number of statuses matching the same filters.
func (a *Aggregator) FindByMonitor(ctx context.Context, q ListQuery) (Page, error) {
	page := q.Page
	if page < 1 {
		page = 1
	}
	limit := clampLimit(q.Limit, a.cfg.DefaultPageSize, a.cfg.MaxPageSize)

	sq := storage.StatusQuery{
		MonitorID: q.MonitorID,
		Page:      page,
		Limit:     limit,
		From:      q.From,
		To:        q.To,
		Status:    q.Status,
	}

	result := Page{
		Items: []storage.MonitorStatus{},
		Page:  page,
		Limit: limit,
	}

	items, err := a.repo.QueryStatusHistory(ctx, sq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, ctxErr
		}
		log.Error().Int64("monitor_id", q.MonitorID).Err(err).Msg("Failed to query status history")
		return result, nil
	}

	total, err := a.repo.CountStatusHistory(ctx, sq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, ctxErr
		}
		log.Error().Int64("monitor_id", q.MonitorID).Err(err).Msg("Failed to count status history")
		return result, nil
	}

	result.Items = items
	result.Total = total
	result.TotalPages = int((total + int64(limit) - 1) / int64(limit))
	return result, nil
}

// DailyStatusSummary returns one entry per UTC day from start to end
// inclusive. Days without checks are reported as success.
//
// A start after end yields an empty result; a range longer than
// MaxCalendarDays is cut at MaxCalendarDays from start.
func (a *Aggregator) DailyStatusSummary(ctx context.Context, monitorID int64, start, end time.Time) ([]DaySummary, error) {
	first := truncateDay(start)
	last := truncateDay(end)
	if first.After(last) {
		return []DaySummary{}, nil
	}

	days := int(last.Sub(first).Hours()/24) + 1
	if days > MaxCalendarDays {
		days = MaxCalendarDays
		last = first.AddDate(0, 0, days-1)
	}

	rows, err := a.repo.QueryDailyAggregates(ctx, monitorID, first, last.AddDate(0, 0, 1))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return []DaySummary{}, ctxErr
		}
		log.Error().Int64("monitor_id", monitorID).Err(err).Msg("Failed to aggregate daily statuses")
		rows = nil
	}

	byDay := make(map[string]storage.DailyAggregate, len(rows))
	for _, row := range rows {
		byDay[row.Day.Format(time.DateOnly)] = row
	}

	summary := make([]DaySummary, 0, days)
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		date := day.Format(time.DateOnly)
		agg := byDay[date]
		summary = append(summary, DaySummary{
			Date:   date,
			Total:  agg.Total,
			Failed: agg.Failed,
			Status: DayStatus(agg.Total, agg.Failed),
		})
	}
	return summary, nil
}

// DayStatus classifies a day by its failure ratio.
func DayStatus(total, failed int64) string {
	switch {
	case total == 0 || failed == 0:
		return DaySuccess
	case failed*100 > total*dangerPercent:
		return DayDanger
	default:
		return DayWarning
	}
}

// ResponseTimeData returns the newest response times in the window, oldest
// first, at most q.Limit of them.
func (a *Aggregator) ResponseTimeData(ctx context.Context, q storage.SeriesQuery) ([]GraphPoint, error) {
	q.Limit = clampLimit(q.Limit, a.cfg.GraphDefaultLimit, a.cfg.GraphMaxLimit)

	rows, err := a.repo.QueryResponseTimeSeries(ctx, q)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return []GraphPoint{}, ctxErr
		}
		log.Error().Int64("monitor_id", q.MonitorID).Err(err).Msg("Failed to query response times")
		return []GraphPoint{}, nil
	}

	points := make([]GraphPoint, len(rows))
	for i, row := range rows {
		points[len(rows)-1-i] = GraphPoint{
			Time:         row.StartTime,
			ResponseTime: row.ResponseTime,
		}
	}
	return points, nil
}

func clampLimit(limit, fallback, ceiling int) int {
	if limit < 1 {
		limit = fallback
	}
	if ceiling > 0 && limit > ceiling {
		limit = ceiling
	}
	if limit < 1 {
		limit = 1
	}
	return limit
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
