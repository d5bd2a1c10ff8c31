package monitors

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"upmon/internal/api/types"
	"upmon/internal/history"
	"upmon/internal/storage"
)

// defaultCalendarDays is the span of a calendar request without a start date.
const defaultCalendarDays = 30

// Statuses handles GET /api/v1/monitors/:id/statuses
//
// Query parameters:
//   - page (default: 1)
//   - limit (default and maximum from the history configuration)
//   - from, to (optional, inclusive): RFC 3339 or YYYY-MM-DD; a date-only
//     to covers the whole day
//   - status (optional): up or down
//
// Returns:
//   - 200 OK with statuses newest first and pagination metadata
//   - 400 Bad Request for invalid parameters
//   - 404 Not Found if the monitor does not exist
func (h *Handler) Statuses(c *gin.Context) {
	id, ok := h.requireMonitor(c)
	if !ok {
		return
	}

	var query StatusesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		types.AbortWithError(c, types.ValidationError(err.Error()))
		return
	}

	from, to, ok := parseRange(c, query.From, query.To)
	if !ok {
		return
	}

	page, err := h.history.FindByMonitor(c.Request.Context(), history.ListQuery{
		MonitorID: id,
		Page:      query.Page,
		Limit:     query.Limit,
		From:      from,
		To:        to,
		Status:    storage.ParseStatusFilter(query.Status),
	})
	if err != nil {
		types.AbortWithError(c, types.InternalError("failed to retrieve statuses", err))
		return
	}

	c.JSON(http.StatusOK, types.SuccessResponseWithPagination(
		page.Items,
		types.NewPagination(page.Page, page.Limit, page.Total),
	))
}

// Calendar handles GET /api/v1/monitors/:id/calendar
//
// Query parameters:
//   - start, end (YYYY-MM-DD, inclusive, UTC). end defaults to today and
//     start to 29 days before end.
//
// Returns:
//   - 200 OK with one entry per day
//   - 400 Bad Request for malformed dates
//   - 404 Not Found if the monitor does not exist
func (h *Handler) Calendar(c *gin.Context) {
	id, ok := h.requireMonitor(c)
	if !ok {
		return
	}

	var query CalendarQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		types.AbortWithError(c, types.ValidationError(err.Error()))
		return
	}

	end := time.Now().UTC()
	if query.End != "" {
		parsed, err := time.Parse(time.DateOnly, query.End)
		if err != nil {
			types.AbortWithError(c, types.ValidationError("end must be YYYY-MM-DD"))
			return
		}
		end = parsed
	}

	start := end.AddDate(0, 0, -(defaultCalendarDays - 1))
	if query.Start != "" {
		parsed, err := time.Parse(time.DateOnly, query.Start)
		if err != nil {
			types.AbortWithError(c, types.ValidationError("start must be YYYY-MM-DD"))
			return
		}
		start = parsed
	}

	days, err := h.history.DailyStatusSummary(c.Request.Context(), id, start, end)
	if err != nil {
		types.AbortWithError(c, types.InternalError("failed to build calendar", err))
		return
	}
	c.JSON(http.StatusOK, types.SuccessResponse(days))
}

// Graph handles GET /api/v1/monitors/:id/graph
//
// Query parameters:
//   - from, to (optional, inclusive): RFC 3339 or YYYY-MM-DD; a date-only
//     to covers the whole day
//   - limit: newest points to return (default and maximum from the history configuration)
//
// Returns:
//   - 200 OK with response-time points in chronological order
//   - 400 Bad Request for invalid parameters
//   - 404 Not Found if the monitor does not exist
func (h *Handler) Graph(c *gin.Context) {
	id, ok := h.requireMonitor(c)
	if !ok {
		return
	}

	var query GraphQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		types.AbortWithError(c, types.ValidationError(err.Error()))
		return
	}

	from, to, ok := parseRange(c, query.From, query.To)
	if !ok {
		return
	}

	points, err := h.history.ResponseTimeData(c.Request.Context(), storage.SeriesQuery{
		MonitorID: id,
		From:      from,
		To:        to,
		Limit:     query.Limit,
	})
	if err != nil {
		types.AbortWithError(c, types.InternalError("failed to retrieve response times", err))
		return
	}
	c.JSON(http.StatusOK, types.SuccessResponse(points))
}

// requireMonitor parses the monitor ID and answers 404 if it does not exist.
func (h *Handler) requireMonitor(c *gin.Context) (int64, bool) {
	id, ok := types.ParseID(c, "id", "monitor")
	if !ok {
		return 0, false
	}
	if _, err := h.storage.FindMonitor(c.Request.Context(), id); err != nil {
		types.AbortWithError(c, types.FromError(err, "monitor", "failed to retrieve monitor"))
		return 0, false
	}
	return id, true
}

func parseRange(c *gin.Context, rawFrom, rawTo string) (from, to *time.Time, ok bool) {
	from, err := types.ParseTime(rawFrom)
	if err != nil {
		types.AbortWithError(c, types.ValidationError("from: "+err.Error()))
		return nil, nil, false
	}
	to, err = types.ParseEndTime(rawTo)
	if err != nil {
		types.AbortWithError(c, types.ValidationError("to: "+err.Error()))
		return nil, nil, false
	}
	if from != nil && to != nil && from.After(*to) {
		types.AbortWithError(c, types.ValidationError("from must not be after to"))
		return nil, nil, false
	}
	return from, to, true
}
