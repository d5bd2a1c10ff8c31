package v1

import (
	"github.com/gin-gonic/gin"

	"upmon/internal/api/v1/monitors"
	"upmon/internal/api/v1/projects"
	"upmon/internal/core"
	"upmon/internal/history"
	"upmon/internal/storage"
)

// SetupRoutes configures API routes.
func SetupRoutes(routerGroup *gin.RouterGroup, storage *storage.Store, engine *core.Engine, aggregator *history.Aggregator) {
	projectsHandler := projects.NewHandler(storage)
	monitorsHandler := monitors.NewHandler(storage, engine, aggregator)

	// Projects management
	projectsGroup := routerGroup.Group("/projects")
	{
		projectsGroup.GET("", projectsHandler.List)
		projectsGroup.POST("", projectsHandler.Create)
		projectsGroup.GET("/:id", projectsHandler.Get)
		projectsGroup.PATCH("/:id", projectsHandler.Update)
		projectsGroup.DELETE("/:id", projectsHandler.Delete)
		projectsGroup.GET("/:id/monitors", monitorsHandler.List)
		projectsGroup.POST("/:id/monitors", monitorsHandler.Create)
	}

	// Monitors management and history
	monitorsGroup := routerGroup.Group("/monitors")
	{
		monitorsGroup.GET("/:id", monitorsHandler.Get)
		monitorsGroup.PATCH("/:id", monitorsHandler.Update)
		monitorsGroup.DELETE("/:id", monitorsHandler.Delete)
		monitorsGroup.POST("/:id/check", monitorsHandler.Check)
		monitorsGroup.GET("/:id/statuses", monitorsHandler.Statuses)
		monitorsGroup.GET("/:id/calendar", monitorsHandler.Calendar)
		monitorsGroup.GET("/:id/graph", monitorsHandler.Graph)
	}
}
