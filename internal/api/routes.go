package api

import (
	"github.com/gin-gonic/gin"
	"github.com/jroosing/flowinspect/internal/api/handlers"
	"github.com/jroosing/flowinspect/internal/api/middleware"
	"github.com/jroosing/flowinspect/internal/config"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/jroosing/flowinspect/internal/api/docs" // swagger docs
)

// RegisterRoutes wires the admin API's HTTP surface onto r.
func RegisterRoutes(r *gin.Engine, h *handlers.Handler, cfg *config.Config) {
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := r.Group("/v1")

	if cfg != nil && cfg.Admin.APIKey != "" {
		v1.Use(middleware.RequireAPIKey(cfg.Admin.APIKey))
	}

	v1.GET("/healthz", h.Healthz)
	v1.GET("/stats", h.Stats)

	v1.GET("/domains/:ip", h.DomainsForIP)
	v1.GET("/domains/:ip/history", h.DomainHistoryForIP)
	v1.GET("/flows/:session_id", h.FlowBySessionID)
	v1.POST("/cache/clear", h.ClearCache)

	v1.GET("/clustersync/status", h.ClusterSyncStatus)
	v1.GET("/clustersync/snapshot", h.ClusterSyncSnapshot)
}
