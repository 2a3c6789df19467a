package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Customer is a contact belonging to one organization. Identity resolution
// key is (organization_id, email) when an email is known; contacts arriving
// over phone-based platforms converge through the conversation's external
// thread id instead.
type Customer struct {
	ID             uuid.UUID      `gorm:"type:uuid;primary_key" json:"id"`
	OrganizationID uuid.UUID      `gorm:"type:uuid;not null;index" json:"organization_id"`
	FullName       string         `gorm:"type:text" json:"full_name"`
	Email          *string        `gorm:"type:text;index" json:"email,omitempty"`
	Phone          *string        `gorm:"type:text" json:"phone,omitempty"`
	Tags           datatypes.JSON `gorm:"type:jsonb" json:"tags"`
	AvatarURL      *string        `gorm:"type:text" json:"avatar_url,omitempty"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updated_at"`

	Organization Organization `gorm:"foreignKey:OrganizationID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Customer) TableName() string {
	return "customers"
}

func (c *Customer) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
