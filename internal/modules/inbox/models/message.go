package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Message sender types.
const (
	SenderCustomer = "customer"
	SenderAgent    = "agent"
	SenderSystem   = "system"
)

// Message is one unit of communication within a conversation. Immutable
// once created except external_message_id and api_response, which are
// patched after the provider send completes.
//
// The unique index on (conversation_id, external_message_id) is the
// idempotency key absorbing at-least-once webhook and poller deliveries.
type Message struct {
	ID                uuid.UUID      `gorm:"type:uuid;primary_key" json:"id"`
	ConversationID    uuid.UUID      `gorm:"type:uuid;not null;index;uniqueIndex:idx_messages_conversation_external" json:"conversation_id"`
	SenderType        string         `gorm:"type:text;not null" json:"sender_type"`
	Content           string         `gorm:"type:text" json:"content"`
	Attachments       datatypes.JSON `gorm:"type:jsonb" json:"attachments,omitempty"`
	ExternalMessageID *string        `gorm:"type:text;uniqueIndex:idx_messages_conversation_external" json:"external_message_id,omitempty"`
	APIResponse       datatypes.JSON `gorm:"type:jsonb" json:"api_response,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`

	Conversation Conversation `gorm:"foreignKey:ConversationID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Message) TableName() string {
	return "messages"
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	return nil
}
