package business

import (
	"context"
	"time"

	"roundsettle/internal/models"
	"roundsettle/internal/observability"
	"roundsettle/internal/store"

	"github.com/sirupsen/logrus"
)

// StaleFinalizeSweep reports finalize requests stuck in BROADCAST. Resubmission stays an
// operator decision; the sweep never signs anything.
type StaleFinalizeSweep struct {
	ledger  store.FinalizeStore
	after   time.Duration
	logger  logrus.FieldLogger
	metrics *observability.Metrics
	Now     func() time.Time
}

func NewStaleFinalizeSweep(ledger store.FinalizeStore, after time.Duration, logger logrus.FieldLogger, metrics *observability.Metrics) *StaleFinalizeSweep {
	if after <= 0 {
		after = 30 * time.Minute
	}
	return &StaleFinalizeSweep{ledger: ledger, after: after, logger: logger, metrics: metrics, Now: time.Now}
}

func (s *StaleFinalizeSweep) Sweep(ctx context.Context) ([]*models.FinalizeRequest, error) {
	stale, err := s.ledger.ListStaleFinalizeRequests(ctx, s.Now().Add(-s.after))
	if err != nil {
		return nil, err
	}
	s.metrics.StaleFinalizeRequests(len(stale))
	for _, req := range stale {
		s.logger.WithFields(logrus.Fields{
			"round_id":        req.RoundID,
			"idempotency_key": req.IdempotencyKey,
			"tx_hash":         req.TxHash,
			"since":           req.UpdatedAt,
		}).Warn("> finalize 交易长时间未确认，需要人工处理")
	}
	return stale, nil
}
