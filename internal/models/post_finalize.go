package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SetupStatus 后置任务状态
type SetupStatus string

const (
	SetupStatusPending   SetupStatus = "PENDING"
	SetupStatusCompleted SetupStatus = "COMPLETED"
)

// PostFinalizeProgress tracks the vesting and lock sub-tasks of one round.
// There is exactly one row per round.
type PostFinalizeProgress struct {
	ID                 uint64      `gorm:"primarykey" json:"id"`
	RoundID            uint64      `gorm:"column:round_id;not null;uniqueIndex" json:"round_id"`
	VestingStatus      SetupStatus `gorm:"column:vesting_status;size:16;not null" json:"vesting_status"`
	VestingRetries     int         `gorm:"column:vesting_retries;default:0" json:"vesting_retries"`
	VestingLastError   string      `gorm:"column:vesting_last_error;type:text" json:"vesting_last_error,omitempty"`
	VestingCompletedAt *time.Time  `gorm:"column:vesting_completed_at" json:"vesting_completed_at,omitempty"`
	LockStatus         SetupStatus `gorm:"column:lock_status;size:16;not null" json:"lock_status"`
	LockRetries        int         `gorm:"column:lock_retries;default:0" json:"lock_retries"`
	LockLastError      string      `gorm:"column:lock_last_error;type:text" json:"lock_last_error,omitempty"`
	LockCompletedAt    *time.Time  `gorm:"column:lock_completed_at" json:"lock_completed_at,omitempty"`
	RetryCount         int         `gorm:"column:retry_count;default:0" json:"retry_count"`
	LastError          string      `gorm:"column:last_error;type:text" json:"last_error,omitempty"`
	Completed          bool        `gorm:"column:completed;default:false" json:"completed"`
	CompletedAt        *time.Time  `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CreatedAt          time.Time   `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time   `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName 指定表名
func (PostFinalizeProgress) TableName() string {
	return "post_finalize_progress"
}

// NewPostFinalizeProgress returns a fresh row with both sub-tasks pending.
func NewPostFinalizeProgress(roundID uint64) *PostFinalizeProgress {
	return &PostFinalizeProgress{
		RoundID:       roundID,
		VestingStatus: SetupStatusPending,
		LockStatus:    SetupStatusPending,
	}
}

// VestingSchedule is the per-round vesting configuration created after success.
type VestingSchedule struct {
	ID              uint64          `gorm:"primarykey" json:"id"`
	RoundID         uint64          `gorm:"column:round_id;not null;uniqueIndex" json:"round_id"`
	VaultAddress    string          `gorm:"column:vault_address;size:42;not null" json:"vault_address"`
	MerkleRoot      string          `gorm:"column:merkle_root;size:66;not null" json:"merkle_root"`
	TotalAllocation decimal.Decimal `gorm:"column:total_allocation;type:numeric(78,0);not null" json:"total_allocation"`
	TGEAt           time.Time       `gorm:"column:tge_at;not null" json:"tge_at"`
	CliffSeconds    int64           `gorm:"column:cliff_seconds;default:0" json:"cliff_seconds"`
	DurationSeconds int64           `gorm:"column:duration_seconds;default:0" json:"duration_seconds"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

// TableName 指定表名
func (VestingSchedule) TableName() string {
	return "vesting_schedules"
}

// LiquidityLock is the per-round LP lock initiation record.
type LiquidityLock struct {
	ID              uint64          `gorm:"primarykey" json:"id"`
	RoundID         uint64          `gorm:"column:round_id;not null;uniqueIndex" json:"round_id"`
	LiquidityAmount decimal.Decimal `gorm:"column:liquidity_amount;type:numeric(78,0);not null" json:"liquidity_amount"`
	LiquidityBps    uint32          `gorm:"column:liquidity_bps;not null" json:"liquidity_bps"`
	LockedAt        time.Time       `gorm:"column:locked_at;not null" json:"locked_at"`
	UnlockAt        time.Time       `gorm:"column:unlock_at;not null" json:"unlock_at"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

// TableName 指定表名
func (LiquidityLock) TableName() string {
	return "liquidity_locks"
}
