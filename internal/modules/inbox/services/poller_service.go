package services

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/restaurantos/backend/internal/core/channels"
	"github.com/restaurantos/backend/internal/modules/inbox/models"
	"github.com/restaurantos/backend/internal/modules/inbox/repositories"
	"github.com/restaurantos/backend/internal/shared/utils"
)

// PollerService pulls new mail for every active email channel and feeds it
// through the router. One channel failing never aborts the others, and a
// channel's watermark only advances after its whole batch routed, giving
// at-least-once semantics that the router's idempotency check absorbs.
type PollerService struct {
	channelRepo  repositories.ChannelRepo
	emailAdapter *channels.EmailAdapter
	router       *RouterService
}

func NewPollerService(db *gorm.DB, emailAdapter *channels.EmailAdapter, router *RouterService) *PollerService {
	return &PollerService{
		channelRepo:  repositories.NewChannelRepo(db),
		emailAdapter: emailAdapter,
		router:       router,
	}
}

// PollAll runs one tick over every active email channel and returns how
// many messages were routed.
func (s *PollerService) PollAll(ctx context.Context) (int, error) {
	list, err := s.channelRepo.ListActiveByPlatform(models.PlatformEmail)
	if err != nil {
		return 0, fmt.Errorf("list email channels: %w", err)
	}

	routed := 0
	for _, ch := range list {
		n, err := s.pollChannel(ctx, ch)
		routed += n
		if err != nil {
			utils.LogError("email channel poll failed", err, map[string]interface{}{
				"channel_id":      ch.ID,
				"organization_id": ch.OrganizationID,
			})
			continue
		}
	}

	return routed, nil
}

func (s *PollerService) pollChannel(ctx context.Context, ch models.Channel) (int, error) {
	creds, err := channels.DecodeCredentials(models.PlatformEmail, ch.Credentials)
	if err != nil {
		return 0, err
	}

	inbound, watermark, err := s.emailAdapter.PollInbox(ctx, *creds.Email, ch.PollWatermark)
	if err != nil {
		return 0, err
	}

	for i, in := range inbound {
		if _, err := s.router.RouteInbound(ctx, ch.OrganizationID, ch.ID, in); err != nil {
			// Watermark stays put so the whole batch is retried next tick.
			return i, fmt.Errorf("route message %q: %w", in.ExternalMessageID, err)
		}
	}

	if watermark != ch.PollWatermark {
		if err := s.channelRepo.UpdateWatermark(ch.ID, watermark); err != nil {
			return len(inbound), fmt.Errorf("advance watermark: %w", err)
		}
	}

	return len(inbound), nil
}
