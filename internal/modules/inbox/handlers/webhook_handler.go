package handlers

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/restaurantos/backend/internal/core/channels"
	"github.com/restaurantos/backend/internal/modules/inbox/models"
	"github.com/restaurantos/backend/internal/modules/inbox/repositories"
	"github.com/restaurantos/backend/internal/modules/inbox/services"
	"github.com/restaurantos/backend/internal/shared/config"
	"github.com/restaurantos/backend/internal/shared/utils"
)

// WebhookHandler is the gateway for provider callbacks: handshake
// verification plus ingestion. Ingestion always answers 200: a non-200
// streak makes Meta disable the subscription, so internal failures are
// logged and recorded on the audit event instead of surfaced.
type WebhookHandler struct {
	cfg              *config.Config
	registry         *channels.Registry
	webhookEventRepo repositories.WebhookEventRepo
	channelRepo      repositories.ChannelRepo
	router           *services.RouterService
}

func NewWebhookHandler(
	cfg *config.Config,
	registry *channels.Registry,
	webhookEventRepo repositories.WebhookEventRepo,
	channelRepo repositories.ChannelRepo,
	router *services.RouterService,
) *WebhookHandler {
	return &WebhookHandler{
		cfg:              cfg,
		registry:         registry,
		webhookEventRepo: webhookEventRepo,
		channelRepo:      channelRepo,
		router:           router,
	}
}

// Verify answers the Meta-style GET handshake: echo hub.challenge iff
// hub.mode is "subscribe" and hub.verify_token matches the deployment
// secret, 403 otherwise.
func (h *WebhookHandler) Verify(c *fiber.Ctx) error {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "subscribe" && h.cfg.WebhookVerifyToken != "" && token == h.cfg.WebhookVerifyToken {
		return c.SendString(challenge)
	}
	return c.SendStatus(fiber.StatusForbidden)
}

// Receive ingests a provider POST. The raw payload is persisted as a
// webhook_events row before anything else so a crash mid-processing still
// leaves a forensic trail.
func (h *WebhookHandler) Receive(c *fiber.Ctx) error {
	provider := c.Params("provider")

	// Fiber reuses its buffers after the handler returns.
	body := make([]byte, len(c.Body()))
	copy(body, c.Body())

	event := &models.WebhookEvent{
		Provider: provider,
		Payload:  auditPayload(body),
		Status:   models.WebhookPending,
	}
	if err := h.webhookEventRepo.Create(event); err != nil {
		utils.LogError("failed to persist webhook event", err, map[string]interface{}{"provider": provider})
	}

	status := h.process(c, provider, body)

	if event.ID != uuid.Nil {
		if err := h.webhookEventRepo.MarkStatus(event.ID, status); err != nil {
			utils.LogWarn("failed to mark webhook event", map[string]interface{}{"event_id": event.ID, "error": err.Error()})
		}
	}

	return c.JSON(fiber.Map{"status": "ok"})
}

func (h *WebhookHandler) process(c *fiber.Ctx, provider string, body []byte) string {
	ctx := c.UserContext()

	adapter, err := h.registry.Get(provider)
	if err != nil {
		utils.LogWarn("webhook for unknown provider", map[string]interface{}{"provider": provider})
		return models.WebhookFailed
	}

	providerID, err := adapter.ResolveProviderID(body)
	if err != nil {
		utils.LogWarn("webhook attribution failed", map[string]interface{}{"provider": provider, "error": err.Error()})
		return models.WebhookFailed
	}

	channel, err := h.channelRepo.FindActive(adapter.Platform(), providerID)
	if err != nil {
		utils.LogWarn("no active channel for webhook", map[string]interface{}{"provider": provider, "provider_id": providerID})
		return models.WebhookFailed
	}

	creds, err := channels.DecodeCredentials(channel.Platform, channel.Credentials)
	if err != nil {
		utils.LogError("channel credentials unreadable", err, map[string]interface{}{"channel_id": channel.ID})
		return models.WebhookFailed
	}

	inbound, err := adapter.Normalize(body, creds)
	if err != nil {
		utils.LogWarn("webhook normalization failed", map[string]interface{}{"provider": provider, "error": err.Error()})
		return models.WebhookFailed
	}

	// Messages route in adapter order; one failing sibling never stops
	// the rest.
	failed := false
	for _, in := range inbound {
		if _, err := h.router.RouteInbound(ctx, channel.OrganizationID, channel.ID, in); err != nil {
			failed = true
			utils.LogError("inbound routing failed", err, map[string]interface{}{
				"provider":   provider,
				"channel_id": channel.ID,
				"message_id": in.ExternalMessageID,
			})
		}
	}

	if failed {
		return models.WebhookFailed
	}
	return models.WebhookProcessed
}

// auditPayload keeps the raw body as-is when it is valid JSON, otherwise
// wraps it as a JSON string so the jsonb column still accepts it.
func auditPayload(body []byte) datatypes.JSON {
	if len(body) > 0 && json.Valid(body) {
		return datatypes.JSON(body)
	}
	wrapped, _ := json.Marshal(string(body))
	return datatypes.JSON(wrapped)
}
