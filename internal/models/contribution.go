package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ContributionStatus 贡献记录状态
type ContributionStatus string

const (
	ContributionStatusConfirmed ContributionStatus = "CONFIRMED"
)

// Contribution is one on-chain Contributed event. TxHash is globally unique.
type Contribution struct {
	ID             uint64             `gorm:"primarykey" json:"id"`
	RoundID        uint64             `gorm:"column:round_id;not null;index" json:"round_id"`
	Wallet         string             `gorm:"column:wallet;size:42;not null;index" json:"wallet"`
	UserID         *uint64            `gorm:"column:user_id" json:"user_id,omitempty"`
	Amount         decimal.Decimal    `gorm:"column:amount;type:numeric(78,0);not null" json:"amount"`
	ReferrerWallet string             `gorm:"column:referrer_wallet;size:42" json:"referrer_wallet,omitempty"`
	ReferrerUserID *uint64            `gorm:"column:referrer_user_id" json:"referrer_user_id,omitempty"`
	TxHash         string             `gorm:"column:tx_hash;size:66;not null;uniqueIndex" json:"tx_hash"`
	BlockNumber    uint64             `gorm:"column:block_number;not null" json:"block_number"`
	LogIndex       uint               `gorm:"column:log_index" json:"log_index"`
	ConfirmedAt    time.Time          `gorm:"column:confirmed_at;not null" json:"confirmed_at"`
	Status         ContributionStatus `gorm:"column:status;size:16;not null" json:"status"`
	CreatedAt      time.Time          `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

// TableName 指定表名
func (Contribution) TableName() string {
	return "contributions"
}

// WalletAddress maps a wallet to an internal user identity.
type WalletAddress struct {
	ID        uint64    `gorm:"primarykey" json:"id"`
	Address   string    `gorm:"column:address;size:42;not null;uniqueIndex" json:"address"`
	UserID    uint64    `gorm:"column:user_id;not null;index" json:"user_id"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

// TableName 指定表名
func (WalletAddress) TableName() string {
	return "wallet_addresses"
}
