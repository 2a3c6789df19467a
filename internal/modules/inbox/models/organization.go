package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Organization is the tenant root. Every other entity hangs off it by
// organization_id; the backend never deletes one.
type Organization struct {
	ID        uuid.UUID      `gorm:"type:uuid;primary_key" json:"id"`
	Slug      string         `gorm:"type:text;uniqueIndex;not null" json:"slug"`
	Name      string         `gorm:"type:text;not null" json:"name"`
	Settings  datatypes.JSON `gorm:"type:jsonb" json:"settings"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Organization) TableName() string {
	return "organizations"
}

func (o *Organization) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// Member is an organization staff account. Members with a registered push
// token receive the best-effort new-message notification.
type Member struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	OrganizationID uuid.UUID `gorm:"type:uuid;not null;index" json:"organization_id"`
	FullName       string    `gorm:"type:text" json:"full_name"`
	Email          string    `gorm:"type:text;not null" json:"email"`
	PushToken      *string   `gorm:"type:text" json:"push_token,omitempty"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Organization Organization `gorm:"foreignKey:OrganizationID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Member) TableName() string {
	return "members"
}

func (m *Member) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
