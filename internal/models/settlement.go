package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// ClaimStatus is shared by allocations, referral rewards and refunds.
type ClaimStatus string

const (
	ClaimStatusPending ClaimStatus = "PENDING"
	ClaimStatusClaimed ClaimStatus = "CLAIMED"
)

// FeeSourceType 手续费来源
type FeeSourceType string

const (
	FeeSourceRound FeeSourceType = "ROUND"
	FeeSourceSwap  FeeSourceType = "SWAP"
)

// Allocation is a beneficiary's token entitlement in a successful round.
type Allocation struct {
	ID          uint64          `gorm:"primarykey" json:"id"`
	RoundID     uint64          `gorm:"column:round_id;not null;uniqueIndex:idx_allocation_round_beneficiary" json:"round_id"`
	Beneficiary string          `gorm:"column:beneficiary;size:42;not null;uniqueIndex:idx_allocation_round_beneficiary" json:"beneficiary"`
	UserID      *uint64         `gorm:"column:user_id" json:"user_id,omitempty"`
	Contributed decimal.Decimal `gorm:"column:contributed;type:numeric(78,0);not null" json:"contributed"`
	Tokens      decimal.Decimal `gorm:"column:tokens;type:numeric(78,0);not null" json:"tokens"`
	ClaimStatus ClaimStatus     `gorm:"column:claim_status;size:16;not null" json:"claim_status"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

// TableName 指定表名
func (Allocation) TableName() string {
	return "allocations"
}

// MerkleProof stores one beneficiary's leaf and proof path against the round root.
type MerkleProof struct {
	ID          uint64          `gorm:"primarykey" json:"id"`
	RoundID     uint64          `gorm:"column:round_id;not null;uniqueIndex:idx_proof_round_beneficiary" json:"round_id"`
	Beneficiary string          `gorm:"column:beneficiary;size:42;not null;uniqueIndex:idx_proof_round_beneficiary" json:"beneficiary"`
	Amount      decimal.Decimal `gorm:"column:amount;type:numeric(78,0);not null" json:"amount"`
	Leaf        string          `gorm:"column:leaf;size:66;not null" json:"leaf"`
	Proof       datatypes.JSON  `gorm:"column:proof;type:jsonb;not null" json:"proof"`
	Root        string          `gorm:"column:root;size:66;not null" json:"root"`
	Salt        string          `gorm:"column:salt;size:66;not null" json:"salt"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

// TableName 指定表名
func (MerkleProof) TableName() string {
	return "merkle_proofs"
}

// FeeSplit records how one settlement event's fee was divided.
type FeeSplit struct {
	ID           uint64          `gorm:"primarykey" json:"id"`
	SourceType   FeeSourceType   `gorm:"column:source_type;size:16;not null;uniqueIndex:idx_fee_split_source" json:"source_type"`
	SourceID     string          `gorm:"column:source_id;size:80;not null;uniqueIndex:idx_fee_split_source" json:"source_id"`
	TotalAmount  decimal.Decimal `gorm:"column:total_amount;type:numeric(78,0);not null" json:"total_amount"`
	Treasury     decimal.Decimal `gorm:"column:treasury;type:numeric(78,0);not null" json:"treasury"`
	ReferralPool decimal.Decimal `gorm:"column:referral_pool;type:numeric(78,0);not null" json:"referral_pool"`
	Staking      decimal.Decimal `gorm:"column:staking;type:numeric(78,0);not null" json:"staking"`
	Processed    bool            `gorm:"column:processed;default:false" json:"processed"`
	ProcessedAt  *time.Time      `gorm:"column:processed_at" json:"processed_at,omitempty"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

// TableName 指定表名
func (FeeSplit) TableName() string {
	return "fee_splits"
}

// ReferralLedgerEntry is a referrer's reward from one source event.
type ReferralLedgerEntry struct {
	ID             uint64          `gorm:"primarykey" json:"id"`
	ReferrerWallet string          `gorm:"column:referrer_wallet;size:42;not null;index" json:"referrer_wallet"`
	ReferrerUserID *uint64         `gorm:"column:referrer_user_id;index" json:"referrer_user_id,omitempty"`
	SourceType     FeeSourceType   `gorm:"column:source_type;size:16;not null;index:idx_referral_source" json:"source_type"`
	SourceID       string          `gorm:"column:source_id;size:80;not null;index:idx_referral_source" json:"source_id"`
	Amount         decimal.Decimal `gorm:"column:amount;type:numeric(78,0);not null" json:"amount"`
	Status         ClaimStatus     `gorm:"column:status;size:16;not null" json:"status"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

// TableName 指定表名
func (ReferralLedgerEntry) TableName() string {
	return "referral_ledger_entries"
}

// RefundRecord is one refund obligation per confirmed contribution of a failed round.
type RefundRecord struct {
	ID             uint64          `gorm:"primarykey" json:"id"`
	RoundID        uint64          `gorm:"column:round_id;not null;index" json:"round_id"`
	ContributionID uint64          `gorm:"column:contribution_id;not null;uniqueIndex" json:"contribution_id"`
	Wallet         string          `gorm:"column:wallet;size:42;not null" json:"wallet"`
	UserID         *uint64         `gorm:"column:user_id" json:"user_id,omitempty"`
	Amount         decimal.Decimal `gorm:"column:amount;type:numeric(78,0);not null" json:"amount"`
	Status         ClaimStatus     `gorm:"column:status;size:16;not null" json:"status"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

// TableName 指定表名
func (RefundRecord) TableName() string {
	return "refund_records"
}
