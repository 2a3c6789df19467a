package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// WebhookEvent statuses.
const (
	WebhookPending   = "pending"
	WebhookProcessed = "processed"
	WebhookFailed    = "failed"
)

// WebhookEvent is the append-only audit record of every inbound delivery,
// written before processing begins so a crash mid-processing still leaves
// a forensic trail. Business logic never reads it back.
type WebhookEvent struct {
	ID        uuid.UUID      `gorm:"type:uuid;primary_key" json:"id"`
	Provider  string         `gorm:"type:text;not null;index" json:"provider"`
	Payload   datatypes.JSON `gorm:"type:jsonb" json:"payload"`
	Status    string         `gorm:"type:text;default:'pending'" json:"status"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

func (WebhookEvent) TableName() string {
	return "webhook_events"
}

func (w *WebhookEvent) BeforeCreate(tx *gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	if w.Status == "" {
		w.Status = WebhookPending
	}
	return nil
}
