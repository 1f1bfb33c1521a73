package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// RoundKind 轮次类型
type RoundKind string

const (
	RoundKindPresale    RoundKind = "PRESALE"
	RoundKindFairlaunch RoundKind = "FAIRLAUNCH"
)

// RoundStatus 轮次生命周期状态
type RoundStatus string

const (
	RoundStatusUpcoming  RoundStatus = "UPCOMING"
	RoundStatusActive    RoundStatus = "ACTIVE"
	RoundStatusEnded     RoundStatus = "ENDED"
	RoundStatusFinalized RoundStatus = "FINALIZED"
	RoundStatusCancelled RoundStatus = "CANCELLED"
)

// RoundResult is NONE until the round is finalized.
type RoundResult string

const (
	RoundResultNone    RoundResult = "NONE"
	RoundResultSuccess RoundResult = "SUCCESS"
	RoundResultFailed  RoundResult = "FAILED"
)

// PresaleParams holds the fixed-price sale terms.
type PresaleParams struct {
	Price               decimal.Decimal `json:"price"`
	HardCap             decimal.Decimal `json:"hard_cap"`
	TokensForSale       decimal.Decimal `json:"tokens_for_sale"`
	LiquidityBps        uint32          `json:"liquidity_bps"`
	LockDays            uint32          `json:"lock_days"`
	VestingCliffDays    uint32          `json:"vesting_cliff_days"`
	VestingDurationDays uint32          `json:"vesting_duration_days"`
}

// FairlaunchParams holds the uncapped sale terms; the price is raised / tokens for sale.
type FairlaunchParams struct {
	TokensForSale       decimal.Decimal `json:"tokens_for_sale"`
	LiquidityBps        uint32          `json:"liquidity_bps"`
	LockDays            uint32          `json:"lock_days"`
	VestingCliffDays    uint32          `json:"vesting_cliff_days"`
	VestingDurationDays uint32          `json:"vesting_duration_days"`
}

// RoundParams is a tagged union over the round kinds. Exactly one variant is set,
// and it must agree with Round.Kind.
type RoundParams struct {
	Presale    *PresaleParams    `json:"presale,omitempty"`
	Fairlaunch *FairlaunchParams `json:"fairlaunch,omitempty"`
}

// Validate checks that the set variant matches kind and carries terms the round can settle
// with. Stores call it on create so a bad round is rejected before it takes contributions.
func (p RoundParams) Validate(kind RoundKind) error {
	switch kind {
	case RoundKindPresale:
		if p.Presale == nil || p.Fairlaunch != nil {
			return errors.New("presale round requires presale params only")
		}
		if !p.Presale.Price.IsPositive() {
			return errors.New("presale price must be positive")
		}
		return validateTerms(p.Presale.LiquidityBps, p.Presale.VestingCliffDays, p.Presale.VestingDurationDays)
	case RoundKindFairlaunch:
		if p.Fairlaunch == nil || p.Presale != nil {
			return errors.New("fairlaunch round requires fairlaunch params only")
		}
		if !p.Fairlaunch.TokensForSale.IsPositive() || !p.Fairlaunch.TokensForSale.IsInteger() {
			return errors.New("fairlaunch tokens for sale must be a positive whole number")
		}
		return validateTerms(p.Fairlaunch.LiquidityBps, p.Fairlaunch.VestingCliffDays, p.Fairlaunch.VestingDurationDays)
	}
	return fmt.Errorf("unknown round kind %q", kind)
}

// validateTerms covers what post-finalize setup needs: a liquidity share to lock and a
// cliff that fits inside the vesting duration.
func validateTerms(liquidityBps, cliffDays, durationDays uint32) error {
	if liquidityBps == 0 || liquidityBps > 10000 {
		return fmt.Errorf("liquidity bps %d must be within 1-10000", liquidityBps)
	}
	if cliffDays > durationDays {
		return fmt.Errorf("vesting cliff %d days exceeds duration %d days", cliffDays, durationDays)
	}
	return nil
}

// Value 实现 driver.Valuer 接口
func (p RoundParams) Value() (driver.Value, error) {
	return json.Marshal(p)
}

// Scan 实现 sql.Scanner 接口
func (p *RoundParams) Scan(value interface{}) error {
	if value == nil {
		*p = RoundParams{}
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("round params: unsupported column type")
	}
	return json.Unmarshal(raw, p)
}

// VestingTerms returns cliff and duration in days for whichever variant is set.
func (p RoundParams) VestingTerms() (cliffDays, durationDays uint32) {
	switch {
	case p.Presale != nil:
		return p.Presale.VestingCliffDays, p.Presale.VestingDurationDays
	case p.Fairlaunch != nil:
		return p.Fairlaunch.VestingCliffDays, p.Fairlaunch.VestingDurationDays
	}
	return 0, 0
}

// LockTerms returns the liquidity share and lock length for whichever variant is set.
func (p RoundParams) LockTerms() (liquidityBps, lockDays uint32) {
	switch {
	case p.Presale != nil:
		return p.Presale.LiquidityBps, p.Presale.LockDays
	case p.Fairlaunch != nil:
		return p.Fairlaunch.LiquidityBps, p.Fairlaunch.LockDays
	}
	return 0, 0
}

// Round 代币销售轮次
type Round struct {
	ID               uint64           `gorm:"primarykey" json:"id"`
	Kind             RoundKind        `gorm:"column:kind;size:16;not null" json:"kind"`
	ChainID          uint64           `gorm:"column:chain_id;not null;index" json:"chain_id"`
	ContractAddress  string           `gorm:"column:contract_address;size:42;not null;uniqueIndex" json:"contract_address"`
	VestingVault     string           `gorm:"column:vesting_vault;size:42" json:"vesting_vault"`
	SoftCap          decimal.Decimal  `gorm:"column:soft_cap;type:numeric(78,0);not null" json:"soft_cap"`
	MinContribution  decimal.Decimal  `gorm:"column:min_contribution;type:numeric(78,0);default:0" json:"min_contribution"`
	MaxContribution  decimal.Decimal  `gorm:"column:max_contribution;type:numeric(78,0);default:0" json:"max_contribution"`
	StartAt          time.Time        `gorm:"column:start_at;not null" json:"start_at"`
	EndAt            time.Time        `gorm:"column:end_at;not null" json:"end_at"`
	Params           RoundParams      `gorm:"column:params;type:jsonb;not null" json:"params"`
	Status           RoundStatus      `gorm:"column:status;size:16;not null;index" json:"status"`
	Result           RoundResult      `gorm:"column:result;size:16;not null;default:NONE" json:"result"`
	DeployBlock      uint64           `gorm:"column:deploy_block;default:0" json:"deploy_block"`
	LastIndexedBlock uint64           `gorm:"column:last_indexed_block;default:0" json:"last_indexed_block"`
	MerkleRoot       string           `gorm:"column:merkle_root;size:66" json:"merkle_root,omitempty"`
	TotalRaised      *decimal.Decimal `gorm:"column:total_raised;type:numeric(78,0)" json:"total_raised,omitempty"`
	TotalAllocation  *decimal.Decimal `gorm:"column:total_allocation;type:numeric(78,0)" json:"total_allocation,omitempty"`
	FinalizeTxHash   string           `gorm:"column:finalize_tx_hash;size:66" json:"finalize_tx_hash,omitempty"`
	FailReason       string           `gorm:"column:fail_reason;type:text" json:"fail_reason,omitempty"`
	FinalizedAt      *time.Time       `gorm:"column:finalized_at" json:"finalized_at,omitempty"`
	SettledAt        *time.Time       `gorm:"column:settled_at" json:"settled_at,omitempty"`
	CreatedAt        time.Time        `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time        `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName 指定表名
func (Round) TableName() string {
	return "rounds"
}

// IsFixedPrice reports whether allocations use a unit price.
func (r *Round) IsFixedPrice() bool {
	return r.Kind == RoundKindPresale
}
