package gormstore

import (
	"context"
	"time"

	"roundsettle/internal/models"

	"gorm.io/gorm"
)

func (s *Store) ListPendingOutbox(ctx context.Context, limit int) ([]*models.OutboxMessage, error) {
	q := s.conn(ctx).Where("status = ?", models.OutboxStatusPending).Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []*models.OutboxMessage
	err := q.Find(&out).Error
	return out, err
}

func (s *Store) MarkOutboxPublished(ctx context.Context, id uint64, at time.Time) error {
	return s.conn(ctx).Model(&models.OutboxMessage{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":       models.OutboxStatusPublished,
		"published_at": at,
		"attempts":     gorm.Expr("attempts + 1"),
	}).Error
}

func (s *Store) MarkOutboxFailed(ctx context.Context, id uint64, reason string) error {
	return s.conn(ctx).Model(&models.OutboxMessage{}).Where("id = ?", id).Updates(map[string]interface{}{
		"last_error": reason,
		"attempts":   gorm.Expr("attempts + 1"),
	}).Error
}
