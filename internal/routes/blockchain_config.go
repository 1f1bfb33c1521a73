package routes

import (
	"roundsettle/internal/handlers"

	"github.com/gin-gonic/gin"
)

// SetupChainConfigRoutes sets up all routes related to chain config management
func SetupChainConfigRoutes(r *gin.RouterGroup, h *handlers.Handler) {
	chains := r.Group("/chains")
	{
		chains.GET("", h.ListChainConfigs)
		chains.GET("/:id", h.GetChainConfig)
		chains.POST("", h.CreateChainConfig)
		chains.PUT("/:id", h.UpdateChainConfig)
	}
}
