package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"upmon/internal/api/types"
	"upmon/internal/core"
	"upmon/internal/storage"
)

// Handler serves the unversioned system endpoints.
type Handler struct {
	engine    *core.Engine
	storage   *storage.Store
	version   string
	startTime time.Time
}

// NewHandler initializes the system endpoint handler.
//
// engine and storage may be nil in test environments; they are then reported unhealthy.
func NewHandler(engine *core.Engine, storage *storage.Store, version string) *Handler {
	return &Handler{
		engine:    engine,
		storage:   storage,
		version:   version,
		startTime: time.Now(),
	}
}

// Ping handles GET /api/ping
//
// Response:
//   - 200 OK with {"message": "pong"}
func (h *Handler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "pong",
	})
}

// Health handles GET /api/health
//
// Reports database reachability and whether the scheduling loop is running.
// Overall status is "healthy" only if both are; otherwise "degraded" and the
// response code is 503.
func (h *Handler) Health(c *gin.Context) {
	dbStatus, dbResponseTime := h.checkDatabaseHealth(c.Request.Context())
	engineStatus := h.checkEngineHealth()

	overallStatus := "healthy"
	code := http.StatusOK
	if dbStatus != "healthy" || engineStatus != "healthy" {
		overallStatus = "degraded"
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, types.SuccessResponse(gin.H{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(h.startTime).Round(time.Second).String(),
		"version":   h.version,
		"components": gin.H{
			"database": gin.H{
				"status":           dbStatus,
				"response_time_ms": dbResponseTime,
			},
			"engine": gin.H{
				"status": engineStatus,
			},
		},
	}))
}

// checkDatabaseHealth pings the database and measures the round trip.
func (h *Handler) checkDatabaseHealth(ctx context.Context) (string, int64) {
	if h.storage == nil {
		return "unhealthy", 0
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	start := time.Now()
	err := h.storage.Ping(ctx)
	responseTime := time.Since(start).Milliseconds()
	if err != nil {
		return "unhealthy", responseTime
	}

	return "healthy", responseTime
}

func (h *Handler) checkEngineHealth() string {
	if h.engine == nil || !h.engine.IsRunning() {
		return "unhealthy"
	}
	return "healthy"
}
