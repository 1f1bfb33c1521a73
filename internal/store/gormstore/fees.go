package gormstore

import (
	"context"

	"roundsettle/internal/models"

	"gorm.io/gorm"
)

func (s *Store) RecordFeeSplit(ctx context.Context, split *models.FeeSplit, entries []*models.ReferralLedgerEntry) error {
	return translate(s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(split).Error; err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}
		return tx.CreateInBatches(entries, 500).Error
	}))
}

func (s *Store) GetFeeSplit(ctx context.Context, sourceType models.FeeSourceType, sourceID string) (*models.FeeSplit, error) {
	var f models.FeeSplit
	err := s.conn(ctx).Where("source_type = ? AND source_id = ?", sourceType, sourceID).First(&f).Error
	if err != nil {
		return nil, translate(err)
	}
	return &f, nil
}

func (s *Store) ListReferralEntries(ctx context.Context, sourceType models.FeeSourceType, sourceID string) ([]*models.ReferralLedgerEntry, error) {
	var out []*models.ReferralLedgerEntry
	err := s.conn(ctx).
		Where("source_type = ? AND source_id = ?", sourceType, sourceID).
		Order("referrer_wallet ASC").
		Find(&out).Error
	return out, err
}
