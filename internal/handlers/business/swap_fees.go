package business

import (
	"context"
	"errors"
	"fmt"

	"roundsettle/internal/models"
	"roundsettle/internal/store"
	"roundsettle/pkg/utils"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// SwapFee is the fee taken by one bonding-curve swap.
type SwapFee struct {
	SwapID   string          `json:"swap_id" binding:"required"`
	Trader   string          `json:"trader" binding:"required"`
	Referrer string          `json:"referrer"`
	Fee      decimal.Decimal `json:"fee" binding:"required"`
}

// SwapSettlement is the stored split for one swap.
type SwapSettlement struct {
	Split    *models.FeeSplit              `json:"split"`
	Entries  []*models.ReferralLedgerEntry `json:"entries"`
	Replayed bool                          `json:"replayed"`
}

// SwapFeeSettler splits swap fees with the same calculator used at round finalization.
type SwapFeeSettler struct {
	ledger store.Ledger
	fees   utils.FeeConfig
	logger logrus.FieldLogger
}

func NewSwapFeeSettler(ledger store.Ledger, fees utils.FeeConfig, logger logrus.FieldLogger) *SwapFeeSettler {
	return &SwapFeeSettler{ledger: ledger, fees: fees, logger: logger}
}

// Settle records the split once per swap id. Repeats return the stored split.
func (s *SwapFeeSettler) Settle(ctx context.Context, in SwapFee) (*SwapSettlement, error) {
	if in.SwapID == "" {
		return nil, preconditionf("swap id is required")
	}
	if in.Fee.IsNegative() || !in.Fee.IsInteger() {
		return nil, preconditionf("fee must be a non-negative whole amount")
	}
	trader, err := ParseAddress(in.Trader)
	if err != nil {
		return nil, preconditionf("trader: %v", err)
	}

	if existing, err := s.load(ctx, in.SwapID); err == nil {
		existing.Replayed = true
		return existing, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	referred := []*models.Contribution{{Wallet: trader, Amount: in.Fee}}
	if in.Referrer != "" {
		referrer, err := ParseAddress(in.Referrer)
		if err != nil {
			return nil, preconditionf("referrer: %v", err)
		}
		if referrer == trader {
			return nil, preconditionf("trader cannot refer itself")
		}
		referred[0].ReferrerWallet = referrer
		if referred[0].ReferrerUserID, err = s.ledger.ResolveWallet(ctx, referrer); err != nil {
			return nil, fmt.Errorf("resolve referrer: %w", err)
		}
	}

	split, entries, err := feePlan(models.FeeSourceSwap, in.SwapID, in.Fee.BigInt(), s.fees, referred)
	if err != nil {
		return nil, err
	}
	if err := s.ledger.RecordFeeSplit(ctx, split, entries); err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			existing, lerr := s.load(ctx, in.SwapID)
			if lerr != nil {
				return nil, lerr
			}
			existing.Replayed = true
			return existing, nil
		}
		return nil, fmt.Errorf("record swap fee split: %w", err)
	}

	s.logger.WithFields(logrus.Fields{"swap_id": in.SwapID, "fee": in.Fee.String()}).Info("> swap fee split recorded")
	return &SwapSettlement{Split: split, Entries: entries}, nil
}

func (s *SwapFeeSettler) load(ctx context.Context, swapID string) (*SwapSettlement, error) {
	split, err := s.ledger.GetFeeSplit(ctx, models.FeeSourceSwap, swapID)
	if err != nil {
		return nil, err
	}
	entries, err := s.ledger.ListReferralEntries(ctx, models.FeeSourceSwap, swapID)
	if err != nil {
		return nil, err
	}
	return &SwapSettlement{Split: split, Entries: entries}, nil
}
