package models

import (
	"time"

	"gorm.io/datatypes"
)

// SystemLog represents a record in system_logs table
type SystemLog struct {
	ID         uint           `gorm:"primarykey" json:"id"`
	RoundID    uint64         `gorm:"column:round_id;default:0;index" json:"round_id"`
	Level      string         `gorm:"column:level;size:10;not null" json:"level"` // DEBUG, INFO, WARN, ERROR, FATAL
	Message    string         `gorm:"column:message;type:text;not null" json:"message"`
	Module     string         `gorm:"column:module;size:100" json:"module"`
	ErrorStack string         `gorm:"column:error_stack;type:text" json:"error_stack"`
	Meta       datatypes.JSON `gorm:"column:meta;type:jsonb" json:"meta"`
	CreatedAt  time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (SystemLog) TableName() string {
	return "system_logs"
}

// AllModels lists every table owned by the settlement engine, in creation order.
func AllModels() []interface{} {
	return []interface{}{
		&ChainConfig{},
		&Round{},
		&WalletAddress{},
		&Contribution{},
		&Allocation{},
		&MerkleProof{},
		&FeeSplit{},
		&ReferralLedgerEntry{},
		&RefundRecord{},
		&FinalizeRequest{},
		&PostFinalizeProgress{},
		&VestingSchedule{},
		&LiquidityLock{},
		&OutboxMessage{},
		&SystemLog{},
	}
}
