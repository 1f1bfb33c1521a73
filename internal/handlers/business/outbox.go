package business

import (
	"context"
	"fmt"
	"time"

	"roundsettle/internal/observability"
	"roundsettle/internal/store"

	"github.com/sirupsen/logrus"
)

// Publisher delivers an outbox payload to the broker. *config.Publisher satisfies it.
type Publisher interface {
	Publish(ctx context.Context, queue, messageID string, body []byte) error
}

// OutboxRelay publishes pending outbox rows. A row is marked published only after the
// broker confirms it, so delivery is at-least-once.
type OutboxRelay struct {
	ledger    store.OutboxStore
	publisher Publisher
	batch     int
	logger    logrus.FieldLogger
	metrics   *observability.Metrics
	now       func() time.Time
}

func NewOutboxRelay(ledger store.OutboxStore, publisher Publisher, batch int, logger logrus.FieldLogger, metrics *observability.Metrics) *OutboxRelay {
	if batch <= 0 {
		batch = 100
	}
	return &OutboxRelay{
		ledger:    ledger,
		publisher: publisher,
		batch:     batch,
		logger:    logger,
		metrics:   metrics,
		now:       time.Now,
	}
}

// Relay publishes one batch and returns how many rows were published and failed.
func (r *OutboxRelay) Relay(ctx context.Context) (published, failed int, err error) {
	msgs, err := r.ledger.ListPendingOutbox(ctx, r.batch)
	if err != nil {
		return 0, 0, fmt.Errorf("list outbox: %w", err)
	}
	for _, m := range msgs {
		if ctx.Err() != nil {
			return published, failed, ctx.Err()
		}
		log := r.logger.WithFields(logrus.Fields{"message_id": m.MessageID, "topic": m.Topic})
		if perr := r.publisher.Publish(ctx, m.Topic, m.MessageID, m.Payload); perr != nil {
			failed++
			r.metrics.OutboxResult(false)
			log.WithError(perr).Warn("outbox publish failed")
			if merr := r.ledger.MarkOutboxFailed(ctx, m.ID, perr.Error()); merr != nil {
				log.WithError(merr).Error("failed to record outbox failure")
			}
			continue
		}
		if merr := r.ledger.MarkOutboxPublished(ctx, m.ID, r.now().UTC()); merr != nil {
			return published, failed, fmt.Errorf("mark outbox %d published: %w", m.ID, merr)
		}
		published++
		r.metrics.OutboxResult(true)
	}
	return published, failed, nil
}
