package handlers

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/restaurantos/backend/internal/modules/inbox/services"
	"github.com/restaurantos/backend/internal/shared/utils"
)

type ChannelHandler struct {
	channelService *services.ChannelService
}

func NewChannelHandler(channelService *services.ChannelService) *ChannelHandler {
	return &ChannelHandler{channelService: channelService}
}

// Connect binds an organization to a platform account. Reconnecting the
// same platform updates the existing channel instead of duplicating it.
func (h *ChannelHandler) Connect(c *fiber.Ctx) error {
	var req struct {
		OrganizationID string          `json:"organization_id"`
		Platform       string          `json:"platform"`
		ProviderID     string          `json:"provider_id"`
		Credentials    json.RawMessage `json:"credentials"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
	}

	orgID, err := uuid.Parse(req.OrganizationID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "organization_id is required"})
	}

	channel, err := h.channelService.Connect(orgID, req.Platform, req.ProviderID, req.Credentials)
	if err != nil {
		utils.LogWarn("channel connect rejected", map[string]interface{}{
			"organization_id": orgID,
			"platform":        req.Platform,
			"error":           err.Error(),
		})
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	return c.Status(fiber.StatusCreated).JSON(channel)
}

func (h *ChannelHandler) List(c *fiber.Ctx) error {
	orgID, err := uuid.Parse(c.Query("organization_id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "organization_id is required"})
	}

	list, err := h.channelService.List(orgID)
	if err != nil {
		utils.LogError("failed to list channels", err, map[string]interface{}{"organization_id": orgID})
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to list channels"})
	}

	return c.JSON(fiber.Map{"channels": list})
}
