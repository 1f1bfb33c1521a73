package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"roundsettle/internal/models"
	"roundsettle/internal/store"

	"github.com/gin-gonic/gin"
)

// ChainConfigRequest represents the request body for creating/updating a chain configuration
type ChainConfigRequest struct {
	ChainID       uint64 `json:"chain_id" binding:"required"`
	Name          string `json:"name" binding:"required"`
	RpcEndpoint   string `json:"rpc_endpoint" binding:"required"`
	Confirmations uint64 `json:"confirmations"`
	IsActive      *bool  `json:"is_active"`
}

var chainConfigDetails = gin.H{
	"chain_id":     "Required field, must be a non-zero number",
	"name":         "Required field, must be a string",
	"rpc_endpoint": "Required field, http(s) or ws(s) URL",
}

func (r ChainConfigRequest) validate() error {
	ep := strings.ToLower(r.RpcEndpoint)
	for _, scheme := range []string{"http://", "https://", "ws://", "wss://"} {
		if strings.HasPrefix(ep, scheme) {
			return nil
		}
	}
	return errors.New("rpc_endpoint must be an http(s) or ws(s) URL")
}

func (r ChainConfigRequest) apply(cfg *models.ChainConfig) {
	cfg.ChainID = r.ChainID
	cfg.Name = r.Name
	cfg.RpcEndpoint = r.RpcEndpoint
	cfg.Confirmations = r.Confirmations
	if r.IsActive != nil {
		cfg.IsActive = *r.IsActive
	}
}

func parseConfigID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return 0, false
	}
	return uint(id), true
}

// ListChainConfigs returns a list of all chain configurations
func (h *Handler) ListChainConfigs(c *gin.Context) {
	configs, err := h.ledger.ListChainConfigs(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, configs)
}

// GetChainConfig returns a specific chain configuration by ID
func (h *Handler) GetChainConfig(c *gin.Context) {
	id, ok := parseConfigID(c)
	if !ok {
		return
	}
	cfg, err := h.ledger.GetChainConfig(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

// CreateChainConfig creates a new chain configuration
func (h *Handler) CreateChainConfig(c *gin.Context) {
	var request ChainConfigRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format", "details": chainConfigDetails})
		return
	}
	if err := request.validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cfg := models.ChainConfig{IsActive: true}
	request.apply(&cfg)
	if err := h.ledger.SaveChainConfig(c.Request.Context(), &cfg); err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			c.JSON(http.StatusConflict, gin.H{"error": "chain_id already configured"})
			return
		}
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cfg)
}

// UpdateChainConfig updates an existing chain configuration
func (h *Handler) UpdateChainConfig(c *gin.Context) {
	id, ok := parseConfigID(c)
	if !ok {
		return
	}
	var request ChainConfigRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format", "details": chainConfigDetails})
		return
	}
	if err := request.validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	cfg, err := h.ledger.GetChainConfig(ctx, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	request.apply(cfg)
	if err := h.ledger.SaveChainConfig(ctx, cfg); err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			c.JSON(http.StatusConflict, gin.H{"error": "chain_id already configured"})
			return
		}
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}
