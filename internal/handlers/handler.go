package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"roundsettle/internal/handlers/business"
	"roundsettle/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Deps are the collaborators the HTTP layer dispatches to.
type Deps struct {
	Ledger       store.Ledger
	Indexer      *business.ContributionIndexer
	Sweeper      *business.RoundStatusSweeper
	Finalizer    *business.FinalizeOrchestrator
	PostFinalize *business.PostFinalizeOrchestrator
	SwapFees     *business.SwapFeeSettler
	Logger       logrus.FieldLogger
}

// Handler holds the injected services; every route is a method on it.
type Handler struct {
	ledger       store.Ledger
	indexer      *business.ContributionIndexer
	sweeper      *business.RoundStatusSweeper
	finalizer    *business.FinalizeOrchestrator
	postFinalize *business.PostFinalizeOrchestrator
	swapFees     *business.SwapFeeSettler
	logger       logrus.FieldLogger
}

func NewHandler(d Deps) *Handler {
	return &Handler{
		ledger:       d.Ledger,
		indexer:      d.Indexer,
		sweeper:      d.Sweeper,
		finalizer:    d.Finalizer,
		postFinalize: d.PostFinalize,
		swapFees:     d.SwapFees,
		logger:       d.Logger,
	}
}

// respondError maps the business error taxonomy onto HTTP statuses.
func (h *Handler) respondError(c *gin.Context, err error) {
	var (
		pre    *business.PreconditionError
		revert *business.OnChainRevertError
		gap    *business.ReconciliationGapError
		setup  *business.SetupRetryableError
		chain  *business.TransientChainError
	)
	status := http.StatusInternalServerError
	body := gin.H{"error": err.Error(), "kind": business.ErrorKind(err)}

	switch {
	case errors.As(err, &pre):
		status = http.StatusConflict
	case errors.As(err, &revert):
		status = http.StatusBadGateway
		body["tx_hash"] = revert.TxHash
	case errors.As(err, &gap):
		status = http.StatusServiceUnavailable
		body["tx_hash"] = gap.TxHash
		body["resumable"] = true
	case errors.As(err, &setup), errors.As(err, &chain):
		status = http.StatusServiceUnavailable
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
		body["error"] = "Record not found"
	case errors.Is(err, store.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, store.ErrDuplicateKey):
		status = http.StatusConflict
	}

	if status >= http.StatusInternalServerError {
		h.logger.WithError(err).WithField("path", c.FullPath()).Error("request failed")
	}
	c.JSON(status, body)
}

func parseRoundID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return 0, false
	}
	return id, true
}
