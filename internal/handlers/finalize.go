package handlers

import (
	"net/http"
	"strings"

	"roundsettle/internal/handlers/business"
	"roundsettle/internal/models"

	"github.com/gin-gonic/gin"
)

// IdempotencyKeyHeader must be sent with every finalize call.
const IdempotencyKeyHeader = "Idempotency-Key"

// FinalizeRoundRequest is the optional finalize body.
type FinalizeRoundRequest struct {
	// Expect is SUCCESS or FAILED; the call is rejected if the chain state disagrees.
	Expect string `json:"expect"`
	Reason string `json:"reason"`
}

// FinalizeRound POST /rounds/:id/finalize
func (h *Handler) FinalizeRound(c *gin.Context) {
	roundID, ok := parseRoundID(c)
	if !ok {
		return
	}
	key := strings.TrimSpace(c.GetHeader(IdempotencyKeyHeader))
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Idempotency-Key header is required"})
		return
	}

	var req FinalizeRoundRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
			return
		}
	}
	expect := models.RoundResult(strings.ToUpper(req.Expect))
	switch expect {
	case "", models.RoundResultSuccess, models.RoundResultFailed:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "expect must be SUCCESS or FAILED"})
		return
	}

	out, err := h.finalizer.Finalize(c.Request.Context(), business.FinalizeInput{
		RoundID:        roundID,
		IdempotencyKey: key,
		Expect:         expect,
		Reason:         req.Reason,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
