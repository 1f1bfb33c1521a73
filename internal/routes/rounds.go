package routes

import (
	"roundsettle/internal/handlers"

	"github.com/gin-gonic/gin"
)

// SetupRoundRoutes sets up the round settlement routes
func SetupRoundRoutes(r *gin.RouterGroup, h *handlers.Handler) {
	rounds := r.Group("/rounds/:id")
	{
		rounds.GET("", h.GetRound)
		rounds.POST("/finalize", h.FinalizeRound)
		rounds.GET("/allocations", h.ListAllocations)
		rounds.GET("/refunds", h.ListRefunds)
		rounds.GET("/fee-split", h.GetRoundFeeSplit)
		rounds.GET("/post-finalize", h.GetPostFinalize)
		rounds.POST("/post-finalize/retry", h.RetryPostFinalize)
	}
}

// SetupIndexerRoutes sets up the manual indexer trigger
func SetupIndexerRoutes(r *gin.RouterGroup, h *handlers.Handler) {
	r.POST("/indexer/run", h.RunIndexer)
}

// SetupFeeRoutes sets up swap fee settlement
func SetupFeeRoutes(r *gin.RouterGroup, h *handlers.Handler) {
	r.POST("/fees/swaps", h.SettleSwapFee)
}
