package models

import (
	"time"

	"gorm.io/datatypes"
)

// OutboxStatus 发件箱消息状态
type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "PENDING"
	OutboxStatusPublished OutboxStatus = "PUBLISHED"
)

// TopicPostFinalizeSetup announces a round whose secondary setup can start.
const TopicPostFinalizeSetup = "post_finalize_setup"

// OutboxMessage is written in the same transaction as the state change it announces.
type OutboxMessage struct {
	ID          uint64         `gorm:"primarykey" json:"id"`
	MessageID   string         `gorm:"column:message_id;size:36;not null;uniqueIndex" json:"message_id"`
	Topic       string         `gorm:"column:topic;size:64;not null;index" json:"topic"`
	Payload     datatypes.JSON `gorm:"column:payload;type:jsonb;not null" json:"payload"`
	Status      OutboxStatus   `gorm:"column:status;size:16;not null;index" json:"status"`
	Attempts    int            `gorm:"column:attempts;default:0" json:"attempts"`
	LastError   string         `gorm:"column:last_error;type:text" json:"last_error,omitempty"`
	PublishedAt *time.Time     `gorm:"column:published_at" json:"published_at,omitempty"`
	CreatedAt   time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

// TableName 指定表名
func (OutboxMessage) TableName() string {
	return "outbox_messages"
}

// PostFinalizeSetupPayload is the body published on TopicPostFinalizeSetup.
type PostFinalizeSetupPayload struct {
	RoundID uint64 `json:"round_id"`
}
