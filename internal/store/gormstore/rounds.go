package gormstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"roundsettle/internal/models"
	"roundsettle/internal/store"
)

func (s *Store) CreateRound(ctx context.Context, r *models.Round) error {
	if err := r.Params.Validate(r.Kind); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidInput, err)
	}
	if r.Result == "" {
		r.Result = models.RoundResultNone
	}
	return translate(s.conn(ctx).Create(r).Error)
}

func (s *Store) GetRound(ctx context.Context, id uint64) (*models.Round, error) {
	var r models.Round
	if err := s.conn(ctx).First(&r, id).Error; err != nil {
		return nil, translate(err)
	}
	return &r, nil
}

func (s *Store) ListRoundsByStatus(ctx context.Context, statuses ...models.RoundStatus) ([]*models.Round, error) {
	q := s.conn(ctx).Order("id ASC")
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}
	var rounds []*models.Round
	if err := q.Find(&rounds).Error; err != nil {
		return nil, err
	}
	return rounds, nil
}

func (s *Store) TransitionRoundStatus(ctx context.Context, id uint64, from, to models.RoundStatus) (bool, error) {
	res := s.conn(ctx).Model(&models.Round{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *Store) AdvanceCheckpoint(ctx context.Context, id uint64, block uint64) error {
	return s.conn(ctx).Model(&models.Round{}).
		Where("id = ? AND last_indexed_block < ?", id, block).
		Update("last_indexed_block", block).Error
}

func (s *Store) ListRoundsPendingSetup(ctx context.Context) ([]*models.Round, error) {
	var rounds []*models.Round
	err := s.conn(ctx).
		Where("result = ? AND settled_at IS NULL", models.RoundResultSuccess).
		Order("id ASC").
		Find(&rounds).Error
	return rounds, err
}

func (s *Store) MarkRoundSettled(ctx context.Context, id uint64, at time.Time) (bool, error) {
	res := s.conn(ctx).Model(&models.Round{}).
		Where("id = ? AND result = ? AND settled_at IS NULL", id, models.RoundResultSuccess).
		Update("settled_at", at)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := s.GetRound(ctx, id); errors.Is(err, store.ErrNotFound) {
			return false, err
		}
	}
	return res.RowsAffected == 1, nil
}
