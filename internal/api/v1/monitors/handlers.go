package monitors

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"upmon/internal/api/types"
	"upmon/internal/core"
	"upmon/internal/history"
	"upmon/internal/storage"
)

// Handler manages monitor endpoints.
type Handler struct {
	storage *storage.Store
	engine  *core.Engine
	history *history.Aggregator
}

// NewHandler creates a monitor handler.
func NewHandler(storage *storage.Store, engine *core.Engine, history *history.Aggregator) *Handler {
	return &Handler{
		storage: storage,
		engine:  engine,
		history: history,
	}
}

// List handles GET /api/v1/projects/:id/monitors
//
// Query parameters:
//   - type (optional): ping or website
//
// Returns:
//   - 200 OK with the project's monitors ordered by ID, each with its latest status
//   - 404 Not Found if the project does not exist
func (h *Handler) List(c *gin.Context) {
	projectID, ok := types.ParseID(c, "id", "project")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if _, err := h.storage.FindProject(ctx, projectID); err != nil {
		types.AbortWithError(c, types.FromError(err, "project", "failed to retrieve project"))
		return
	}

	filter := storage.MonitorFilter{ProjectID: &projectID}
	if typ := c.Query("type"); typ != "" {
		t := storage.MonitorType(typ)
		if t != storage.MonitorTypePing && t != storage.MonitorTypeWebsite {
			types.AbortWithError(c, types.ValidationError("type must be ping or website"))
			return
		}
		filter.Type = &t
	}

	monitors, err := h.storage.FindAllMonitors(ctx, filter)
	if err != nil {
		types.AbortWithError(c, types.InternalError("failed to retrieve monitors", err))
		return
	}

	responses := make([]MonitorResponse, 0, len(monitors))
	for i := range monitors {
		responses = append(responses, toResponse(&monitors[i], h.latestStatus(ctx, monitors[i].ID)))
	}

	c.JSON(http.StatusOK, types.SuccessResponse(responses))
}

// Create handles POST /api/v1/projects/:id/monitors
//
// Returns:
//   - 201 Created with the monitor
//   - 400 Bad Request for invalid input
//   - 404 Not Found if the project does not exist
func (h *Handler) Create(c *gin.Context) {
	projectID, ok := types.ParseID(c, "id", "project")
	if !ok {
		return
	}

	var req MonitorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		types.AbortWithError(c, types.ValidationError(err.Error()))
		return
	}
	if req.Label == nil || req.Periodicity == nil || req.Type == nil {
		types.AbortWithError(c, types.ValidationError("label, periodicity and type are required"))
		return
	}

	monitor, err := storage.NewMonitor(req.input(projectID))
	if err != nil {
		types.AbortWithError(c, types.FromError(err, "monitor", "failed to create monitor"))
		return
	}

	if err := h.storage.CreateMonitor(c.Request.Context(), monitor); err != nil {
		types.AbortWithError(c, types.FromError(err, "project", "failed to create monitor"))
		return
	}

	c.JSON(http.StatusCreated, types.SuccessResponse(toResponse(monitor, nil)))
}

// Get handles GET /api/v1/monitors/:id
//
// Returns:
//   - 200 OK with the monitor and its latest status
//   - 404 Not Found if the monitor does not exist
func (h *Handler) Get(c *gin.Context) {
	id, ok := types.ParseID(c, "id", "monitor")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	monitor, err := h.storage.FindMonitor(ctx, id)
	if err != nil {
		types.AbortWithError(c, types.FromError(err, "monitor", "failed to retrieve monitor"))
		return
	}

	c.JSON(http.StatusOK, types.SuccessResponse(toResponse(monitor, h.latestStatus(ctx, id))))
}

// Update handles PATCH /api/v1/monitors/:id
//
// Only provided fields are modified. The type may be sent but cannot change.
//
// Returns:
//   - 200 OK with the updated monitor
//   - 400 Bad Request for invalid input, a type change or an empty payload
//   - 404 Not Found if the monitor does not exist
func (h *Handler) Update(c *gin.Context) {
	id, ok := types.ParseID(c, "id", "monitor")
	if !ok {
		return
	}

	var req MonitorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		types.AbortWithError(c, types.ValidationError(err.Error()))
		return
	}
	if req.empty() {
		types.AbortWithError(c, types.ValidationError("no fields to update"))
		return
	}

	ctx := c.Request.Context()
	monitor, err := h.storage.FindMonitor(ctx, id)
	if err != nil {
		types.AbortWithError(c, types.FromError(err, "monitor", "failed to retrieve monitor"))
		return
	}

	updated, err := monitor.Apply(req.patch())
	if err != nil {
		types.AbortWithError(c, types.FromError(err, "monitor", "failed to update monitor"))
		return
	}

	if err := h.storage.UpdateMonitor(ctx, updated); err != nil {
		types.AbortWithError(c, types.FromError(err, "monitor", "failed to update monitor"))
		return
	}

	c.JSON(http.StatusOK, types.SuccessResponse(toResponse(updated, h.latestStatus(ctx, id))))
}

// Delete handles DELETE /api/v1/monitors/:id
//
// The monitor's status history is removed with it.
func (h *Handler) Delete(c *gin.Context) {
	id, ok := types.ParseID(c, "id", "monitor")
	if !ok {
		return
	}

	if err := h.storage.DeleteMonitor(c.Request.Context(), id); err != nil {
		types.AbortWithError(c, types.FromError(err, "monitor", "failed to delete monitor"))
		return
	}

	c.JSON(http.StatusOK, types.SuccessResponse(gin.H{
		"message": "monitor deleted successfully",
	}))
}

// Check handles POST /api/v1/monitors/:id/check
//
// Probes the monitor immediately, regardless of its periodicity, and stores the result.
//
// Returns:
//   - 201 Created with the stored status (a down target is still a 201)
//   - 404 Not Found if the monitor does not exist
//   - 409 Conflict if a check of the monitor is already running
//   - 500 Internal Server Error if the result could not be stored
func (h *Handler) Check(c *gin.Context) {
	id, ok := types.ParseID(c, "id", "monitor")
	if !ok {
		return
	}

	status, err := h.engine.CheckMonitor(c.Request.Context(), id)
	if err != nil {
		types.AbortWithError(c, types.FromError(err, "monitor", "failed to check monitor"))
		return
	}

	c.JSON(http.StatusCreated, types.SuccessResponse(status))
}

// latestStatus returns the latest status of a monitor, or nil when it has
// none or the lookup fails.
func (h *Handler) latestStatus(ctx context.Context, monitorID int64) *storage.MonitorStatus {
	latest, err := h.storage.LatestStatus(ctx, monitorID)
	if err != nil {
		log.Warn().Int64("monitor_id", monitorID).Err(err).Msg("Failed to resolve latest status")
		return nil
	}
	return latest
}
