package services

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/restaurantos/backend/internal/core/channels"
	"github.com/restaurantos/backend/internal/modules/inbox/models"
	"github.com/restaurantos/backend/internal/modules/inbox/repositories"
)

// ChannelService validates and upserts channel connections.
type ChannelService struct {
	orgRepo     repositories.OrganizationRepo
	channelRepo repositories.ChannelRepo
}

func NewChannelService(db *gorm.DB) *ChannelService {
	return &ChannelService{
		orgRepo:     repositories.NewOrganizationRepo(db),
		channelRepo: repositories.NewChannelRepo(db),
	}
}

// Connect binds (organization, platform) to a provider account. Connecting
// an already-connected platform updates the existing channel in place.
func (s *ChannelService) Connect(orgID uuid.UUID, platform, providerID string, credentials json.RawMessage) (*models.Channel, error) {
	if !models.ValidPlatform(platform) {
		return nil, fmt.Errorf("unsupported platform %q", platform)
	}

	org, err := s.orgRepo.GetByID(orgID)
	if err != nil {
		return nil, fmt.Errorf("load organization: %w", err)
	}

	// Validates required fields up front so a half-configured channel
	// never reaches the adapters.
	if _, err := channels.DecodeCredentials(platform, credentials); err != nil {
		return nil, err
	}

	// Website channels are addressed by storefront slug.
	if platform == models.PlatformWebsite && providerID == "" {
		providerID = org.Slug
	}

	if len(credentials) == 0 {
		credentials = json.RawMessage("{}")
	}

	return s.channelRepo.Connect(orgID, platform, providerID, datatypes.JSON(credentials))
}

func (s *ChannelService) List(orgID uuid.UUID) ([]models.Channel, error) {
	return s.channelRepo.ListByOrg(orgID)
}
