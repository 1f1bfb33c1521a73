package gormstore

import (
	"context"

	"roundsettle/internal/models"
)

func (s *Store) InsertContribution(ctx context.Context, c *models.Contribution) error {
	return translate(s.conn(ctx).Create(c).Error)
}

func (s *Store) ContributionExists(ctx context.Context, txHash string) (bool, error) {
	var n int64
	err := s.conn(ctx).Model(&models.Contribution{}).Where("tx_hash = ?", txHash).Count(&n).Error
	return n > 0, err
}

func (s *Store) ListConfirmedContributions(ctx context.Context, roundID uint64) ([]*models.Contribution, error) {
	var out []*models.Contribution
	err := s.conn(ctx).
		Where("round_id = ? AND status = ?", roundID, models.ContributionStatusConfirmed).
		Order("block_number ASC, log_index ASC").
		Find(&out).Error
	return out, err
}

func (s *Store) ResolveWallet(ctx context.Context, address string) (*uint64, error) {
	var w models.WalletAddress
	res := s.conn(ctx).Where("address = ?", address).Limit(1).Find(&w)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &w.UserID, nil
}

func (s *Store) RegisterWallet(ctx context.Context, address string, userID uint64) error {
	return translate(s.conn(ctx).Create(&models.WalletAddress{Address: address, UserID: userID}).Error)
}
