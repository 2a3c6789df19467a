package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Supported messaging platforms.
const (
	PlatformWhatsApp  = "whatsapp"
	PlatformInstagram = "instagram"
	PlatformMessenger = "messenger"
	PlatformEmail     = "email"
	PlatformWebsite   = "website"
)

// Channel is one organization's configured connection to one platform.
// At most one active channel per (organization, platform); Connect updates
// the existing row in place instead of inserting a duplicate.
type Channel struct {
	ID             uuid.UUID      `gorm:"type:uuid;primary_key" json:"id"`
	OrganizationID uuid.UUID      `gorm:"type:uuid;not null;index:idx_channels_org_platform" json:"organization_id"`
	Platform       string         `gorm:"type:text;not null;index:idx_channels_org_platform" json:"platform"`
	ProviderID     string         `gorm:"type:text;index" json:"provider_id"`
	Credentials    datatypes.JSON `gorm:"type:jsonb" json:"-"`
	IsActive       bool           `gorm:"default:true" json:"is_active"`
	PollWatermark  string         `gorm:"type:text" json:"-"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updated_at"`

	Organization Organization `gorm:"foreignKey:OrganizationID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Channel) TableName() string {
	return "channels"
}

func (c *Channel) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// ValidPlatform reports whether p is one of the supported platform values.
func ValidPlatform(p string) bool {
	switch p {
	case PlatformWhatsApp, PlatformInstagram, PlatformMessenger, PlatformEmail, PlatformWebsite:
		return true
	}
	return false
}
