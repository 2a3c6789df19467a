package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/restaurantos/backend/internal/core/channels"
	"github.com/restaurantos/backend/internal/modules/inbox/models"
	"github.com/restaurantos/backend/internal/modules/inbox/repositories"
	"github.com/restaurantos/backend/internal/shared/utils"
)

// DispatchService sends agent replies back out through the conversation's
// channel. The message is persisted first so the dashboard shows it
// immediately; the provider call's outcome is patched on afterwards and a
// failed send never rolls the message back.
type DispatchService struct {
	db       *gorm.DB
	registry *channels.Registry
	router   *RouterService
}

func NewDispatchService(db *gorm.DB, registry *channels.Registry, router *RouterService) *DispatchService {
	return &DispatchService{db: db, registry: registry, router: router}
}

// Send persists the agent reply and, when the channel has an external API
// and the conversation a provider-side thread, delivers it.
func (s *DispatchService) Send(ctx context.Context, conversationID uuid.UUID, content string) (*models.Message, error) {
	conversations := repositories.NewConversationRepo(s.db)
	messages := repositories.NewMessageRepo(s.db)

	conv, err := conversations.GetByID(conversationID)
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}

	msg, err := s.router.RouteAgentReply(ctx, conv, content)
	if err != nil {
		return nil, err
	}

	platform := conv.Channel.Platform
	if platform == models.PlatformWebsite || conv.ExternalThreadID == nil {
		return msg, nil
	}

	result := s.deliver(ctx, conv, content)
	if result.Err != nil {
		utils.LogWarn("outbound send failed", map[string]interface{}{
			"conversation_id": conv.ID,
			"platform":        platform,
			"error":           result.Err.Error(),
		})
		diag, _ := json.Marshal(map[string]interface{}{
			"error":    result.Err.Error(),
			"response": json.RawMessage(nonEmptyJSON(result.Response)),
		})
		if err := messages.PatchSendResult(msg.ID, nil, datatypes.JSON(diag)); err != nil {
			utils.LogError("failed to record send failure", err, map[string]interface{}{"message_id": msg.ID})
		}
		msg.APIResponse = datatypes.JSON(diag)
		return msg, nil
	}

	resp := datatypes.JSON(nonEmptyJSON(result.Response))
	if err := messages.PatchSendResult(msg.ID, &result.ExternalMessageID, resp); err != nil {
		utils.LogError("failed to record send result", err, map[string]interface{}{"message_id": msg.ID})
		return msg, nil
	}
	msg.ExternalMessageID = &result.ExternalMessageID
	msg.APIResponse = resp
	return msg, nil
}

func (s *DispatchService) deliver(ctx context.Context, conv *models.Conversation, content string) channels.SendResult {
	platform := conv.Channel.Platform

	adapter, err := s.registry.Get(platform)
	if err != nil {
		return channels.SendResult{Err: err}
	}

	creds, err := channels.DecodeCredentials(platform, conv.Channel.Credentials)
	if err != nil {
		return channels.SendResult{Err: err}
	}

	return adapter.SendOutbound(ctx, creds, *conv.ExternalThreadID, content)
}

func nonEmptyJSON(raw json.RawMessage) []byte {
	if len(raw) == 0 || !json.Valid(raw) {
		return []byte("null")
	}
	return raw
}
