package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/restaurantos/backend/internal/modules/inbox/services"
	"github.com/restaurantos/backend/internal/shared/config"
	"github.com/restaurantos/backend/internal/shared/utils"
)

// CronHandler exposes the email poll tick to an external scheduler,
// authenticated by a shared secret header.
type CronHandler struct {
	cfg    *config.Config
	poller *services.PollerService
}

func NewCronHandler(cfg *config.Config, poller *services.PollerService) *CronHandler {
	return &CronHandler{cfg: cfg, poller: poller}
}

func (h *CronHandler) PollEmail(c *fiber.Ctx) error {
	if h.cfg.CronSecret == "" || c.Get("X-Cron-Secret") != h.cfg.CronSecret {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	routed, err := h.poller.PollAll(c.UserContext())
	if err != nil {
		utils.LogError("email poll tick failed", err, nil)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "poll failed"})
	}

	return c.JSON(fiber.Map{"status": "ok", "routed": routed})
}
