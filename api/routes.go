package api

import (
	"github.com/gin-gonic/gin"
)

// SetupRoutes configures all API routes
func SetupRoutes(r *gin.Engine, h *Handlers) {
	// Service status
	r.GET("/", h.GetRoot)
	r.GET("/health", h.GetHealth)

	// Inbound email webhook
	r.POST("/webhook/inbound", h.HandleInboundWebhook)

	// API group
	api := r.Group("/api")
	api.GET("/stats", h.GetStats)
}
