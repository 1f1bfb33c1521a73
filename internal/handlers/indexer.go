package handlers

import (
	"net/http"

	"roundsettle/internal/handlers/business"

	"github.com/gin-gonic/gin"
)

// RunIndexerRequest selects one round, or every indexable round when RoundID is zero.
type RunIndexerRequest struct {
	RoundID    uint64  `json:"round_id"`
	SinceBlock *uint64 `json:"since_block"`
}

// RunIndexer POST /indexer/run
func (h *Handler) RunIndexer(c *gin.Context) {
	var req RunIndexerRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
			return
		}
	}
	ctx := c.Request.Context()

	if req.RoundID != 0 {
		res, err := h.indexer.IndexRound(ctx, req.RoundID, req.SinceBlock)
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"results": []*business.IndexResult{res}})
		return
	}

	activated, ended, err := h.sweeper.Sweep(ctx)
	if err != nil {
		h.respondError(c, err)
		return
	}
	results, err := h.indexer.IndexAll(ctx)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"activated": activated,
		"ended":     ended,
		"results":   results,
	})
}
