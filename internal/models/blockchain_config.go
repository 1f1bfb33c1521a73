package models

import (
	"time"
)

// ChainConfig represents an EVM chain the engine can read from and sign on
type ChainConfig struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	ChainID       uint64    `json:"chain_id" gorm:"uniqueIndex"`
	Name          string    `json:"name" gorm:"not null"`
	RpcEndpoint   string    `json:"rpc_endpoint" gorm:"not null"`
	Confirmations uint64    `json:"confirmations" gorm:"default:3"`
	IsActive      bool      `json:"is_active" gorm:"default:true"`
	CreatedAt     time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt     time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name
func (ChainConfig) TableName() string {
	return "chain_configs"
}
