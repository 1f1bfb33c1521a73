package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// FinalizeRequestStatus tracks one idempotency key through the finalize flow.
type FinalizeRequestStatus string

const (
	FinalizeRequestPending   FinalizeRequestStatus = "PENDING"
	FinalizeRequestBroadcast FinalizeRequestStatus = "BROADCAST"
	FinalizeRequestCompleted FinalizeRequestStatus = "COMPLETED"
	FinalizeRequestReverted  FinalizeRequestStatus = "REVERTED"
)

// FinalizeRequest is the idempotency record for the finalize entry point.
// TxHash is written before the transaction is sent.
type FinalizeRequest struct {
	ID              uint64                `gorm:"primarykey" json:"id"`
	IdempotencyKey  string                `gorm:"column:idempotency_key;size:128;not null;uniqueIndex" json:"idempotency_key"`
	RoundID         uint64                `gorm:"column:round_id;not null;index" json:"round_id"`
	Status          FinalizeRequestStatus `gorm:"column:status;size:16;not null;index" json:"status"`
	Result          RoundResult           `gorm:"column:result;size:16;not null;default:NONE" json:"result"`
	MerkleRoot      string                `gorm:"column:merkle_root;size:66" json:"merkle_root,omitempty"`
	Salt            string                `gorm:"column:salt;size:66" json:"salt,omitempty"`
	TotalAllocation *decimal.Decimal      `gorm:"column:total_allocation;type:numeric(78,0)" json:"total_allocation,omitempty"`
	TotalRaised     *decimal.Decimal      `gorm:"column:total_raised;type:numeric(78,0)" json:"total_raised,omitempty"`
	TxHash          string                `gorm:"column:tx_hash;size:66" json:"tx_hash,omitempty"`
	Reason          string                `gorm:"column:reason;type:text" json:"reason,omitempty"`
	Error           string                `gorm:"column:error;type:text" json:"error,omitempty"`
	CreatedAt       time.Time             `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time             `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName 指定表名
func (FinalizeRequest) TableName() string {
	return "finalize_requests"
}
