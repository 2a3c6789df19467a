package main

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"github.com/restaurantos/backend/internal/core/channels"
	"github.com/restaurantos/backend/internal/core/push"
	"github.com/restaurantos/backend/internal/modules/inbox/handlers"
	"github.com/restaurantos/backend/internal/modules/inbox/models"
	"github.com/restaurantos/backend/internal/modules/inbox/repositories"
	"github.com/restaurantos/backend/internal/modules/inbox/services"
	"github.com/restaurantos/backend/internal/shared/config"
	"github.com/restaurantos/backend/internal/shared/database"
	"github.com/restaurantos/backend/internal/shared/utils"
)

func main() {
	// Load config
	cfg := config.LoadConfig()
	utils.InitLogger(cfg.Env)
	log.Printf("🚀 Starting inbox-api on port %s", cfg.Port)

	// Init database
	db := database.NewDB(cfg.DatabaseURL)
	defer db.Close()

	// Init repositories
	channelRepo := repositories.NewChannelRepo(db.GORM)
	conversationRepo := repositories.NewConversationRepo(db.GORM)
	messageRepo := repositories.NewMessageRepo(db.GORM)
	webhookEventRepo := repositories.NewWebhookEventRepo(db.GORM)

	// Init provider adapters
	emailAdapter := channels.NewEmailAdapter()
	registry := channels.NewRegistry(
		channels.NewWhatsAppAdapter(cfg.GraphAPIVersion),
		channels.NewMetaAdapter(models.PlatformInstagram, cfg.GraphAPIVersion),
		channels.NewMetaAdapter(models.PlatformMessenger, cfg.GraphAPIVersion),
		channels.NewWebsiteAdapter(),
		emailAdapter,
	)

	// Init core services
	pushService := push.NewService(cfg.PushAPIURL)
	routerService := services.NewRouterService(db.GORM, pushService)
	dispatchService := services.NewDispatchService(db.GORM, registry, routerService)
	pollerService := services.NewPollerService(db.GORM, emailAdapter, routerService)
	channelService := services.NewChannelService(db.GORM)

	// Init handlers
	healthHandler := handlers.NewHealthHandler()
	webhookHandler := handlers.NewWebhookHandler(cfg, registry, webhookEventRepo, channelRepo, routerService)
	conversationHandler := handlers.NewConversationHandler(conversationRepo, messageRepo, dispatchService)
	channelHandler := handlers.NewChannelHandler(channelService)
	cronHandler := handlers.NewCronHandler(cfg, pollerService)

	// Init Fiber app
	app := fiber.New(fiber.Config{
		AppName: "Restaurant OS Inbox API",
	})
	app.Use(cors.New())

	// Routes
	app.Get("/health", healthHandler.GetHealth)

	app.Get("/webhooks/:provider", webhookHandler.Verify)
	app.Post("/webhooks/:provider", webhookHandler.Receive)

	api := app.Group("/api")
	api.Get("/conversations", conversationHandler.List)
	api.Get("/conversations/:id/messages", conversationHandler.GetMessages)
	api.Post("/conversations/:id/messages", conversationHandler.PostMessage)
	api.Get("/channels", channelHandler.List)
	api.Post("/channels/connect", channelHandler.Connect)

	app.Post("/cron/poll-email", cronHandler.PollEmail)

	log.Printf("✅ inbox-api listening on :%s", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Server error: %v", err)
	}
}
