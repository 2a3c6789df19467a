package repositories

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/restaurantos/backend/internal/modules/inbox/models"
)

type WebhookEventRepo interface {
	Create(event *models.WebhookEvent) error
	MarkStatus(id uuid.UUID, status string) error
}

type webhookEventRepo struct {
	db *gorm.DB
}

func NewWebhookEventRepo(db *gorm.DB) WebhookEventRepo {
	return &webhookEventRepo{db: db}
}

func (r *webhookEventRepo) Create(event *models.WebhookEvent) error {
	return r.db.Create(event).Error
}

func (r *webhookEventRepo) MarkStatus(id uuid.UUID, status string) error {
	return r.db.Model(&models.WebhookEvent{}).
		Where("id = ?", id).
		Update("status", status).Error
}
