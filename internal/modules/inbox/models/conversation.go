package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Conversation statuses.
const (
	ConversationOpen    = "open"
	ConversationSnoozed = "snoozed"
	ConversationClosed  = "closed"
)

// Conversation is a persistent thread between one customer and the
// organization over one channel. unread_count increments on inbound
// messages and resets when an agent opens the thread; last_message_at
// advances on every insert.
type Conversation struct {
	ID               uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	OrganizationID   uuid.UUID `gorm:"type:uuid;not null;index" json:"organization_id"`
	CustomerID       uuid.UUID `gorm:"type:uuid;not null;index" json:"customer_id"`
	ChannelID        uuid.UUID `gorm:"type:uuid;not null;index" json:"channel_id"`
	ExternalThreadID *string   `gorm:"type:text;index" json:"external_thread_id,omitempty"`
	Status           string    `gorm:"type:text;default:'open'" json:"status"`
	UnreadCount      int       `gorm:"default:0" json:"unread_count"`
	LastMessageAt    time.Time `json:"last_message_at"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Customer Customer `gorm:"foreignKey:CustomerID;references:ID;constraint:OnDelete:CASCADE" json:"customer"`
	Channel  Channel  `gorm:"foreignKey:ChannelID;references:ID;constraint:OnDelete:CASCADE" json:"channel"`
}

func (Conversation) TableName() string {
	return "conversations"
}

func (c *Conversation) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Status == "" {
		c.Status = ConversationOpen
	}
	return nil
}
