package repositories

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/restaurantos/backend/internal/modules/inbox/models"
)

type ConversationRepo interface {
	GetByID(id uuid.UUID) (*models.Conversation, error)
	// FindByExternalThread matches a provider-side thread id on one
	// channel; the authoritative way an inbound message finds its thread.
	FindByExternalThread(orgID, channelID uuid.UUID, externalThreadID string) (*models.Conversation, error)
	// FindLatest prefers the most recently active conversation for the
	// (customer, channel) pair over starting a new thread per message.
	FindLatest(orgID, customerID, channelID uuid.UUID) (*models.Conversation, error)
	ListByOrg(orgID uuid.UUID) ([]models.Conversation, error)
	Create(conversation *models.Conversation) error
	// RecordInbound advances last_message_at and bumps unread_count.
	RecordInbound(id uuid.UUID, at time.Time) error
	// RecordOutbound advances last_message_at, unread untouched.
	RecordOutbound(id uuid.UUID, at time.Time) error
	ResetUnread(id uuid.UUID) error
}

type conversationRepo struct {
	db *gorm.DB
}

func NewConversationRepo(db *gorm.DB) ConversationRepo {
	return &conversationRepo{db: db}
}

func (r *conversationRepo) GetByID(id uuid.UUID) (*models.Conversation, error) {
	var conv models.Conversation
	err := r.db.
		Preload("Customer").
		Preload("Channel").
		First(&conv, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *conversationRepo) FindByExternalThread(orgID, channelID uuid.UUID, externalThreadID string) (*models.Conversation, error) {
	var conv models.Conversation
	err := r.db.
		Where("organization_id = ? AND channel_id = ? AND external_thread_id = ?", orgID, channelID, externalThreadID).
		Order("last_message_at DESC").
		First(&conv).Error
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *conversationRepo) FindLatest(orgID, customerID, channelID uuid.UUID) (*models.Conversation, error) {
	var conv models.Conversation
	err := r.db.
		Where("organization_id = ? AND customer_id = ? AND channel_id = ?", orgID, customerID, channelID).
		Order("last_message_at DESC").
		First(&conv).Error
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *conversationRepo) ListByOrg(orgID uuid.UUID) ([]models.Conversation, error) {
	var conversations []models.Conversation
	err := r.db.
		Preload("Customer").
		Preload("Channel").
		Where("organization_id = ?", orgID).
		Order("last_message_at DESC").
		Find(&conversations).Error
	return conversations, err
}

func (r *conversationRepo) Create(conversation *models.Conversation) error {
	return r.db.Create(conversation).Error
}

func (r *conversationRepo) RecordInbound(id uuid.UUID, at time.Time) error {
	return r.db.Model(&models.Conversation{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"last_message_at": at,
			"unread_count":    gorm.Expr("unread_count + 1"),
		}).Error
}

func (r *conversationRepo) RecordOutbound(id uuid.UUID, at time.Time) error {
	return r.db.Model(&models.Conversation{}).
		Where("id = ?", id).
		Update("last_message_at", at).Error
}

func (r *conversationRepo) ResetUnread(id uuid.UUID) error {
	return r.db.Model(&models.Conversation{}).
		Where("id = ?", id).
		Update("unread_count", 0).Error
}
