package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"upmon/internal/api/types"
	v1 "upmon/internal/api/v1"
)

// setupRoutes configures API routes.
func (s *Server) setupRoutes() {
	baseHandler := NewHandler(s.deps.Engine, s.deps.Store, s.deps.Version)

	apiGroup := s.router.Group("/api")
	apiGroup.GET("/ping", baseHandler.Ping)
	apiGroup.GET("/health", baseHandler.Health)

	v1Group := apiGroup.Group("/v1")
	v1.SetupRoutes(v1Group, s.deps.Store, s.deps.Engine, s.deps.History)

	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{})))

	s.router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, types.ErrorResponse(types.CodeNotFound, "Resource not found", "route not found"))
	})
}
