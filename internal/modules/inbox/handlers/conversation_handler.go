package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/restaurantos/backend/internal/modules/inbox/repositories"
	"github.com/restaurantos/backend/internal/modules/inbox/services"
	"github.com/restaurantos/backend/internal/shared/utils"
)

type ConversationHandler struct {
	conversationRepo repositories.ConversationRepo
	messageRepo      repositories.MessageRepo
	dispatcher       *services.DispatchService
}

func NewConversationHandler(
	conversationRepo repositories.ConversationRepo,
	messageRepo repositories.MessageRepo,
	dispatcher *services.DispatchService,
) *ConversationHandler {
	return &ConversationHandler{
		conversationRepo: conversationRepo,
		messageRepo:      messageRepo,
		dispatcher:       dispatcher,
	}
}

// List returns the organization's conversations, most recently active
// first.
func (h *ConversationHandler) List(c *fiber.Ctx) error {
	orgID, err := uuid.Parse(c.Query("organization_id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "organization_id is required"})
	}

	conversations, err := h.conversationRepo.ListByOrg(orgID)
	if err != nil {
		utils.LogError("failed to list conversations", err, map[string]interface{}{"organization_id": orgID})
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to list conversations"})
	}

	return c.JSON(fiber.Map{"conversations": conversations})
}

// GetMessages returns a conversation's messages oldest-first. Fetching is
// the "agent opened the thread" event, so it resets unread_count.
func (h *ConversationHandler) GetMessages(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid conversation id"})
	}

	conv, err := h.conversationRepo.GetByID(id)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "conversation not found"})
	}

	messages, err := h.messageRepo.ListByConversation(conv.ID)
	if err != nil {
		utils.LogError("failed to list messages", err, map[string]interface{}{"conversation_id": conv.ID})
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to list messages"})
	}

	if err := h.conversationRepo.ResetUnread(conv.ID); err != nil {
		utils.LogWarn("failed to reset unread count", map[string]interface{}{"conversation_id": conv.ID, "error": err.Error()})
	}

	return c.JSON(fiber.Map{
		"conversation": conv,
		"messages":     messages,
	})
}

// PostMessage sends an agent reply through the outbound dispatcher.
func (h *ConversationHandler) PostMessage(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid conversation id"})
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := c.BodyParser(&req); err != nil || strings.TrimSpace(req.Content) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "content is required"})
	}

	msg, err := h.dispatcher.Send(c.UserContext(), id, req.Content)
	if err != nil {
		utils.LogError("failed to send message", err, map[string]interface{}{"conversation_id": id})
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to send message"})
	}

	return c.Status(fiber.StatusCreated).JSON(msg)
}
