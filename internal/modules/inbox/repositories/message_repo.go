package repositories

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/restaurantos/backend/internal/modules/inbox/models"
)

type MessageRepo interface {
	Create(message *models.Message) error
	// FindByExternalID is the idempotency lookup: a hit means this
	// provider message was already ingested.
	FindByExternalID(conversationID uuid.UUID, externalID string) (*models.Message, error)
	// LastCreatedAt returns the newest message timestamp in a
	// conversation, or the zero time when it holds none.
	LastCreatedAt(conversationID uuid.UUID) (time.Time, error)
	ListByConversation(conversationID uuid.UUID) ([]models.Message, error)
	// PatchSendResult attaches the provider's delivery outcome to an
	// already-persisted message; the only mutation messages ever see.
	PatchSendResult(id uuid.UUID, externalID *string, apiResponse datatypes.JSON) error
}

type messageRepo struct {
	db *gorm.DB
}

func NewMessageRepo(db *gorm.DB) MessageRepo {
	return &messageRepo{db: db}
}

func (r *messageRepo) Create(message *models.Message) error {
	return r.db.Create(message).Error
}

func (r *messageRepo) FindByExternalID(conversationID uuid.UUID, externalID string) (*models.Message, error) {
	var msg models.Message
	err := r.db.
		Where("conversation_id = ? AND external_message_id = ?", conversationID, externalID).
		First(&msg).Error
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *messageRepo) LastCreatedAt(conversationID uuid.UUID) (time.Time, error) {
	var msg models.Message
	err := r.db.
		Where("conversation_id = ?", conversationID).
		Order("created_at DESC").
		First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return msg.CreatedAt, nil
}

func (r *messageRepo) ListByConversation(conversationID uuid.UUID) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		Find(&messages).Error
	return messages, err
}

func (r *messageRepo) PatchSendResult(id uuid.UUID, externalID *string, apiResponse datatypes.JSON) error {
	updates := map[string]interface{}{
		"api_response": apiResponse,
	}
	if externalID != nil {
		updates["external_message_id"] = *externalID
	}
	return r.db.Model(&models.Message{}).
		Where("id = ?", id).
		Updates(updates).Error
}
