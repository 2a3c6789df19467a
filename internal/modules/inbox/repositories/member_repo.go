package repositories

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/restaurantos/backend/internal/modules/inbox/models"
)

type MemberRepo interface {
	// ListNotifiable returns the organization's members holding a push
	// token, the recipient set for new-message notifications.
	ListNotifiable(orgID uuid.UUID) ([]models.Member, error)
}

type memberRepo struct {
	db *gorm.DB
}

func NewMemberRepo(db *gorm.DB) MemberRepo {
	return &memberRepo{db: db}
}

func (r *memberRepo) ListNotifiable(orgID uuid.UUID) ([]models.Member, error) {
	var members []models.Member
	err := r.db.
		Where("organization_id = ?", orgID).
		Where("push_token IS NOT NULL AND push_token <> ''").
		Find(&members).Error
	return members, err
}
