package handlers

import (
	"net/http"

	"roundsettle/internal/handlers/business"

	"github.com/gin-gonic/gin"
)

// SettleSwapFee POST /fees/swaps
func (h *Handler) SettleSwapFee(c *gin.Context) {
	var req business.SwapFee
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
			"details": gin.H{
				"swap_id":  "Required field, must be a string",
				"trader":   "Required field, must be an address",
				"referrer": "Optional field, must be an address",
				"fee":      "Required field, whole amount in base units",
			},
		})
		return
	}
	res, err := h.swapFees.Settle(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	status := http.StatusCreated
	if res.Replayed {
		status = http.StatusOK
	}
	c.JSON(status, res)
}
