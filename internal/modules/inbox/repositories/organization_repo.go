package repositories

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/restaurantos/backend/internal/modules/inbox/models"
)

type OrganizationRepo interface {
	GetByID(id uuid.UUID) (*models.Organization, error)
	GetBySlug(slug string) (*models.Organization, error)
}

type organizationRepo struct {
	db *gorm.DB
}

func NewOrganizationRepo(db *gorm.DB) OrganizationRepo {
	return &organizationRepo{db: db}
}

func (r *organizationRepo) GetByID(id uuid.UUID) (*models.Organization, error) {
	var org models.Organization
	if err := r.db.First(&org, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &org, nil
}

func (r *organizationRepo) GetBySlug(slug string) (*models.Organization, error) {
	var org models.Organization
	if err := r.db.First(&org, "slug = ?", slug).Error; err != nil {
		return nil, err
	}
	return &org, nil
}
