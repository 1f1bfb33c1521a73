package handlers

import (
	"net/http"
	"strconv"

	"roundsettle/internal/store"

	"github.com/gin-gonic/gin"
)

// ListSystemLogs returns paginated audit records with optional filters
func (h *Handler) ListSystemLogs(c *gin.Context) {
	f := store.SystemLogFilter{
		Level:  c.Query("level"),
		Module: c.Query("module"),
		Page:   1,
		// page_size is capped at 100 by the store
		PageSize: 10,
	}
	if p, err := strconv.Atoi(c.Query("page")); err == nil && p > 0 {
		f.Page = p
	}
	if ps, err := strconv.Atoi(c.Query("page_size")); err == nil && ps > 0 && ps <= 100 {
		f.PageSize = ps
	}
	if rid := c.Query("round_id"); rid != "" {
		parsed, err := strconv.ParseUint(rid, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid round_id"})
			return
		}
		f.RoundID = parsed
	}

	logs, total, err := h.ledger.ListSystemLogs(c.Request.Context(), f)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"total":     total,
		"page":      f.Page,
		"page_size": f.PageSize,
		"items":     logs,
	})
}
