package gormstore

import (
	"context"
	"time"

	"roundsettle/internal/models"
	"roundsettle/internal/store"

	"gorm.io/gorm"
)

func (s *Store) GetFinalizeRequest(ctx context.Context, key string) (*models.FinalizeRequest, error) {
	var r models.FinalizeRequest
	if err := s.conn(ctx).Where("idempotency_key = ?", key).First(&r).Error; err != nil {
		return nil, translate(err)
	}
	return &r, nil
}

func (s *Store) CreateFinalizeRequest(ctx context.Context, req *models.FinalizeRequest) error {
	return translate(s.conn(ctx).Create(req).Error)
}

func (s *Store) UpdateFinalizeRequest(ctx context.Context, req *models.FinalizeRequest) error {
	res := s.conn(ctx).Save(req)
	return translate(res.Error)
}

func (s *Store) ListStaleFinalizeRequests(ctx context.Context, cutoff time.Time) ([]*models.FinalizeRequest, error) {
	var out []*models.FinalizeRequest
	err := s.conn(ctx).
		Where("status = ? AND updated_at < ?", models.FinalizeRequestBroadcast, cutoff).
		Order("id ASC").
		Find(&out).Error
	return out, err
}

func (s *Store) ReplaceMerkleProofs(ctx context.Context, roundID uint64, proofs []*models.MerkleProof) error {
	return translate(s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		return replaceProofs(tx, roundID, proofs)
	}))
}

func replaceProofs(tx *gorm.DB, roundID uint64, proofs []*models.MerkleProof) error {
	if err := tx.Where("round_id = ?", roundID).Delete(&models.MerkleProof{}).Error; err != nil {
		return err
	}
	if len(proofs) == 0 {
		return nil
	}
	for _, p := range proofs {
		p.ID = 0
		p.RoundID = roundID
	}
	return tx.CreateInBatches(proofs, 500).Error
}

func (s *Store) GetMerkleProof(ctx context.Context, roundID uint64, beneficiary string) (*models.MerkleProof, error) {
	var p models.MerkleProof
	err := s.conn(ctx).Where("round_id = ? AND beneficiary = ?", roundID, beneficiary).First(&p).Error
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

// finalizeRound flips an ENDED/NONE round to FINALIZED inside tx.
func finalizeRound(tx *gorm.DB, roundID uint64, updates map[string]interface{}) error {
	res := tx.Model(&models.Round{}).
		Where("id = ? AND status = ? AND result = ?", roundID, models.RoundStatusEnded, models.RoundResultNone).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var n int64
		if err := tx.Model(&models.Round{}).Where("id = ?", roundID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return store.ErrNotFound
		}
		return store.ErrConflict
	}
	return nil
}

func completeRequest(tx *gorm.DB, key string, result models.RoundResult, txHash string) error {
	if key == "" {
		return nil
	}
	return tx.Model(&models.FinalizeRequest{}).
		Where("idempotency_key = ?", key).
		Updates(map[string]interface{}{
			"status":  models.FinalizeRequestCompleted,
			"result":  result,
			"tx_hash": txHash,
			"error":   "",
		}).Error
}

func (s *Store) CommitFinalizeSuccess(ctx context.Context, c store.SuccessCommit) error {
	return translate(s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		err := finalizeRound(tx, c.RoundID, map[string]interface{}{
			"status":           models.RoundStatusFinalized,
			"result":           models.RoundResultSuccess,
			"merkle_root":      c.MerkleRoot,
			"finalize_tx_hash": c.TxHash,
			"total_raised":     c.TotalRaised,
			"total_allocation": c.TotalAllocation,
			"finalized_at":     c.FinalizedAt,
		})
		if err != nil {
			return err
		}
		if err := replaceProofs(tx, c.RoundID, c.Proofs); err != nil {
			return err
		}
		if len(c.Allocations) > 0 {
			for _, a := range c.Allocations {
				a.RoundID = c.RoundID
			}
			if err := tx.CreateInBatches(c.Allocations, 500).Error; err != nil {
				return err
			}
		}
		if c.FeeSplit != nil {
			if err := tx.Create(c.FeeSplit).Error; err != nil {
				return err
			}
			if len(c.ReferralEntries) > 0 {
				if err := tx.CreateInBatches(c.ReferralEntries, 500).Error; err != nil {
					return err
				}
			}
		}
		if c.Outbox != nil {
			if err := tx.Create(c.Outbox).Error; err != nil {
				return err
			}
		}
		return completeRequest(tx, c.RequestKey, models.RoundResultSuccess, c.TxHash)
	}))
}

func (s *Store) CommitFinalizeFailed(ctx context.Context, c store.FailureCommit) error {
	return translate(s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		err := finalizeRound(tx, c.RoundID, map[string]interface{}{
			"status":           models.RoundStatusFinalized,
			"result":           models.RoundResultFailed,
			"fail_reason":      c.Reason,
			"finalize_tx_hash": c.TxHash,
			"total_raised":     c.TotalRaised,
			"finalized_at":     c.FinalizedAt,
		})
		if err != nil {
			return err
		}
		if len(c.Refunds) > 0 {
			for _, r := range c.Refunds {
				r.RoundID = c.RoundID
			}
			if err := tx.CreateInBatches(c.Refunds, 500).Error; err != nil {
				return err
			}
		}
		return completeRequest(tx, c.RequestKey, models.RoundResultFailed, c.TxHash)
	}))
}

func (s *Store) ListAllocations(ctx context.Context, roundID uint64) ([]*models.Allocation, error) {
	var out []*models.Allocation
	err := s.conn(ctx).Where("round_id = ?", roundID).Order("beneficiary ASC").Find(&out).Error
	return out, err
}

func (s *Store) ListRefunds(ctx context.Context, roundID uint64) ([]*models.RefundRecord, error) {
	var out []*models.RefundRecord
	err := s.conn(ctx).Where("round_id = ?", roundID).Order("id ASC").Find(&out).Error
	return out, err
}
