package repositories

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/restaurantos/backend/internal/modules/inbox/models"
)

type ChannelRepo interface {
	GetByID(id uuid.UUID) (*models.Channel, error)
	// FindActive locates the active channel bound to a provider-side
	// account id, the lookup the webhook gateway uses to attribute a
	// delivery to a tenant.
	FindActive(platform, providerID string) (*models.Channel, error)
	FindActiveByOrg(orgID uuid.UUID, platform string) (*models.Channel, error)
	ListByOrg(orgID uuid.UUID) ([]models.Channel, error)
	ListActiveByPlatform(platform string) ([]models.Channel, error)
	// Connect upserts the (organization, platform) channel: a found row is
	// authoritative and updated in place, never duplicated.
	Connect(orgID uuid.UUID, platform, providerID string, credentials datatypes.JSON) (*models.Channel, error)
	UpdateWatermark(id uuid.UUID, watermark string) error
}

type channelRepo struct {
	db *gorm.DB
}

func NewChannelRepo(db *gorm.DB) ChannelRepo {
	return &channelRepo{db: db}
}

func (r *channelRepo) GetByID(id uuid.UUID) (*models.Channel, error) {
	var ch models.Channel
	if err := r.db.First(&ch, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &ch, nil
}

func (r *channelRepo) FindActive(platform, providerID string) (*models.Channel, error) {
	var ch models.Channel
	err := r.db.
		Where("platform = ? AND provider_id = ? AND is_active = ?", platform, providerID, true).
		First(&ch).Error
	if err != nil {
		return nil, err
	}
	return &ch, nil
}

func (r *channelRepo) FindActiveByOrg(orgID uuid.UUID, platform string) (*models.Channel, error) {
	var ch models.Channel
	err := r.db.
		Where("organization_id = ? AND platform = ? AND is_active = ?", orgID, platform, true).
		First(&ch).Error
	if err != nil {
		return nil, err
	}
	return &ch, nil
}

func (r *channelRepo) ListByOrg(orgID uuid.UUID) ([]models.Channel, error) {
	var channels []models.Channel
	err := r.db.
		Where("organization_id = ?", orgID).
		Order("created_at ASC").
		Find(&channels).Error
	return channels, err
}

func (r *channelRepo) ListActiveByPlatform(platform string) ([]models.Channel, error) {
	var channels []models.Channel
	err := r.db.
		Where("platform = ? AND is_active = ?", platform, true).
		Order("created_at ASC").
		Find(&channels).Error
	return channels, err
}

func (r *channelRepo) Connect(orgID uuid.UUID, platform, providerID string, credentials datatypes.JSON) (*models.Channel, error) {
	var ch models.Channel
	err := r.db.
		Where("organization_id = ? AND platform = ?", orgID, platform).
		First(&ch).Error

	switch {
	case err == nil:
		updates := map[string]interface{}{
			"provider_id": providerID,
			"credentials": credentials,
			"is_active":   true,
		}
		if err := r.db.Model(&ch).Updates(updates).Error; err != nil {
			return nil, err
		}
		ch.ProviderID = providerID
		ch.Credentials = credentials
		ch.IsActive = true
		return &ch, nil

	case errors.Is(err, gorm.ErrRecordNotFound):
		ch = models.Channel{
			OrganizationID: orgID,
			Platform:       platform,
			ProviderID:     providerID,
			Credentials:    credentials,
			IsActive:       true,
		}
		if err := r.db.Create(&ch).Error; err != nil {
			return nil, err
		}
		return &ch, nil

	default:
		return nil, err
	}
}

func (r *channelRepo) UpdateWatermark(id uuid.UUID, watermark string) error {
	return r.db.Model(&models.Channel{}).
		Where("id = ?", id).
		Update("poll_watermark", watermark).Error
}
