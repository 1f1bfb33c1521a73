package gormstore

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"roundsettle/internal/models"
	"roundsettle/internal/store"
)

func (s *Store) GetOrCreateProgress(ctx context.Context, roundID uint64) (*models.PostFinalizeProgress, error) {
	p, err := s.GetProgress(ctx, roundID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	p = models.NewPostFinalizeProgress(roundID)
	if err := translate(s.conn(ctx).Create(p).Error); err != nil {
		// another pass created it first
		if errors.Is(err, store.ErrDuplicateKey) {
			return s.GetProgress(ctx, roundID)
		}
		return nil, err
	}
	return p, nil
}

func (s *Store) GetProgress(ctx context.Context, roundID uint64) (*models.PostFinalizeProgress, error) {
	var p models.PostFinalizeProgress
	if err := s.conn(ctx).Where("round_id = ?", roundID).First(&p).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (s *Store) RecordSetupPass(ctx context.Context, roundID uint64, pass store.SetupPass) (*models.PostFinalizeProgress, error) {
	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		row := func() *gorm.DB {
			return tx.Model(&models.PostFinalizeProgress{}).Where("round_id = ?", roundID)
		}
		if err := applySetupAttempt(row(), "vesting", pass.Vesting, pass.At); err != nil {
			return err
		}
		if err := applySetupAttempt(row(), "lock", pass.Lock, pass.At); err != nil {
			return err
		}
		if pass.LastError != "" {
			err := row().Updates(map[string]interface{}{
				"retry_count": gorm.Expr("retry_count + 1"),
				"last_error":  pass.LastError,
			}).Error
			if err != nil {
				return err
			}
		}
		return row().
			Where("vesting_status = ? AND lock_status = ? AND completed = ?", models.SetupStatusCompleted, models.SetupStatusCompleted, false).
			Updates(map[string]interface{}{"completed": true, "completed_at": pass.At}).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return s.GetProgress(ctx, roundID)
}

// applySetupAttempt touches only the columns of one sub-task, and only while it is pending.
func applySetupAttempt(q *gorm.DB, task string, a *store.SetupAttempt, at time.Time) error {
	if a == nil {
		return nil
	}
	q = q.Where(task+"_status = ?", models.SetupStatusPending)
	if a.Err == "" {
		return q.Updates(map[string]interface{}{
			task + "_status":       models.SetupStatusCompleted,
			task + "_completed_at": at,
		}).Error
	}
	return q.Updates(map[string]interface{}{
		task + "_retries":    gorm.Expr(task + "_retries + 1"),
		task + "_last_error": a.Err,
	}).Error
}

func (s *Store) GetVestingSchedule(ctx context.Context, roundID uint64) (*models.VestingSchedule, error) {
	var v models.VestingSchedule
	if err := s.conn(ctx).Where("round_id = ?", roundID).First(&v).Error; err != nil {
		return nil, translate(err)
	}
	return &v, nil
}

func (s *Store) CreateVestingSchedule(ctx context.Context, v *models.VestingSchedule) error {
	return translate(s.conn(ctx).Create(v).Error)
}

func (s *Store) GetLiquidityLock(ctx context.Context, roundID uint64) (*models.LiquidityLock, error) {
	var l models.LiquidityLock
	if err := s.conn(ctx).Where("round_id = ?", roundID).First(&l).Error; err != nil {
		return nil, translate(err)
	}
	return &l, nil
}

func (s *Store) CreateLiquidityLock(ctx context.Context, l *models.LiquidityLock) error {
	return translate(s.conn(ctx).Create(l).Error)
}
