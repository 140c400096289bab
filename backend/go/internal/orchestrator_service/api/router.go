package api

import (
	"net/http"
	"time"

	"AgentHub/backend/go/internal/models"
	"AgentHub/backend/go/pkg/logger"

	"github.com/gin-gonic/gin"
)

// RequestLogger logs every request with its method, path, status and latency.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithRequest(models.RequestInfo{
			Method:     c.Request.Method,
			Path:       c.FullPath(),
			RemoteAddr: c.ClientIP(),
			UserAgent:  c.Request.UserAgent(),
		}).WithPayload(map[string]interface{}{
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
		}).Debug("Request handled")
	}
}

// RegisterRoutes registers all the routes for the orchestrator service.
// metrics may be nil, in which case /metrics is not served.
func RegisterRoutes(router *gin.Engine, api *API, metrics http.Handler) {
	router.GET("/healthz", api.HealthHandler)
	if metrics != nil {
		router.GET("/metrics", gin.WrapH(metrics))
	}

	// All routes will be under /api/v1
	v1 := router.Group("/api/v1")
	tasks := v1.Group("/tasks")
	{
		tasks.POST("", api.SubmitTaskHandler)
		tasks.GET("/:id", api.GetTaskHandler)
		tasks.GET("/:id/activities", api.GetActivitiesHandler)
	}
	deliverables := v1.Group("/deliverables")
	{
		deliverables.GET("", api.ListDeliverablesHandler)
		deliverables.GET("/:id", api.GetDeliverableHandler)
	}
	v1.GET("/agents", api.ListAgentsHandler)

	// WebSocket route
	if api.events != nil {
		router.GET("/ws/tasks/:id", api.WebSocketHandler)
	}
}
