package models

import (
	"time"

	"gorm.io/datatypes"
)

// WebhookEvent is the durable record of a processed gateway notification.
// Rows are insert-once and never updated: presence of the gateway event id
// means "already applied", which is what makes at-least-once delivery safe.
// The insert happens in the same transaction as the business-state mutation.
type WebhookEvent struct {
	GatewayEventID string         `gorm:"column:gateway_event_id;type:varchar(128);primary_key" json:"gateway_event_id"`
	EventType      string         `gorm:"column:event_type;type:varchar(128);not null;index" json:"event_type"`
	ProcessedAt    time.Time      `gorm:"column:processed_at;not null" json:"processed_at"`
	RawPayload     datatypes.JSON `gorm:"column:raw_payload;type:jsonb" json:"raw_payload"`
	CreatedAt      time.Time      `json:"created_at"`
}

func (WebhookEvent) TableName() string { return "webhook_event" }
