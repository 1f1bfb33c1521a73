package routes

import (
	"roundsettle/internal/handlers"

	"github.com/gin-gonic/gin"
)

// SetupSystemLogRoutes exposes the audit trail
func SetupSystemLogRoutes(r *gin.RouterGroup, h *handlers.Handler) {
	r.GET("/system-logs", h.ListSystemLogs)
}
