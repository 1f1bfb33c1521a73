package handlers

import (
	"net/http"
	"strconv"

	"roundsettle/internal/handlers/business"
	"roundsettle/internal/models"

	"github.com/gin-gonic/gin"
)

// GetRound GET /rounds/:id
func (h *Handler) GetRound(c *gin.Context) {
	roundID, ok := parseRoundID(c)
	if !ok {
		return
	}
	round, err := h.ledger.GetRound(c.Request.Context(), roundID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, round)
}

// ListAllocations GET /rounds/:id/allocations
func (h *Handler) ListAllocations(c *gin.Context) {
	roundID, ok := parseRoundID(c)
	if !ok {
		return
	}
	allocs, err := h.ledger.ListAllocations(c.Request.Context(), roundID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"round_id": roundID, "total": len(allocs), "items": allocs})
}

// ListRefunds GET /rounds/:id/refunds
func (h *Handler) ListRefunds(c *gin.Context) {
	roundID, ok := parseRoundID(c)
	if !ok {
		return
	}
	refunds, err := h.ledger.ListRefunds(c.Request.Context(), roundID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"round_id": roundID, "total": len(refunds), "items": refunds})
}

// GetRoundFeeSplit GET /rounds/:id/fee-split
func (h *Handler) GetRoundFeeSplit(c *gin.Context) {
	roundID, ok := parseRoundID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	sourceID := strconv.FormatUint(roundID, 10)
	split, err := h.ledger.GetFeeSplit(ctx, models.FeeSourceRound, sourceID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	entries, err := h.ledger.ListReferralEntries(ctx, models.FeeSourceRound, sourceID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"round_id": roundID, "split": split, "referrals": entries})
}

// GetPostFinalize GET /rounds/:id/post-finalize
func (h *Handler) GetPostFinalize(c *gin.Context) {
	roundID, ok := parseRoundID(c)
	if !ok {
		return
	}
	p, err := h.ledger.GetProgress(c.Request.Context(), roundID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// RetryPostFinalize POST /rounds/:id/post-finalize/retry runs one attempt immediately.
func (h *Handler) RetryPostFinalize(c *gin.Context) {
	roundID, ok := parseRoundID(c)
	if !ok {
		return
	}
	p, err := h.postFinalize.RunRound(c.Request.Context(), roundID)
	if err != nil {
		if p != nil {
			// the attempt was recorded; show where it stands
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error(), "kind": business.ErrorKind(err), "progress": p})
			return
		}
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// GetProof GET /rounds/:id/proofs/:wallet
func (h *Handler) GetProof(c *gin.Context) {
	roundID, ok := parseRoundID(c)
	if !ok {
		return
	}
	view, err := business.LookupProof(c.Request.Context(), h.ledger, roundID, c.Param("wallet"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}
