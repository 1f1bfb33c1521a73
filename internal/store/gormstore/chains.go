package gormstore

import (
	"context"

	"roundsettle/internal/models"
	"roundsettle/internal/store"
)

func (s *Store) ListChainConfigs(ctx context.Context) ([]*models.ChainConfig, error) {
	var out []*models.ChainConfig
	err := s.conn(ctx).Order("id ASC").Find(&out).Error
	return out, err
}

func (s *Store) GetChainConfig(ctx context.Context, id uint) (*models.ChainConfig, error) {
	var c models.ChainConfig
	if err := s.conn(ctx).First(&c, id).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (s *Store) GetChainConfigByChainID(ctx context.Context, chainID uint64) (*models.ChainConfig, error) {
	var c models.ChainConfig
	if err := s.conn(ctx).Where("chain_id = ?", chainID).First(&c).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (s *Store) SaveChainConfig(ctx context.Context, c *models.ChainConfig) error {
	if c.ChainID == 0 {
		return store.ErrInvalidInput
	}
	if c.ID == 0 {
		return translate(s.conn(ctx).Create(c).Error)
	}
	return translate(s.conn(ctx).Save(c).Error)
}
