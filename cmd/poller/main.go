package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"

	"github.com/restaurantos/backend/internal/core/channels"
	"github.com/restaurantos/backend/internal/core/push"
	"github.com/restaurantos/backend/internal/modules/inbox/services"
	"github.com/restaurantos/backend/internal/shared/config"
	"github.com/restaurantos/backend/internal/shared/database"
	"github.com/restaurantos/backend/internal/shared/utils"
)

// The poller daemon pulls new mail for every active email channel on a
// fixed schedule. Deployments with an external scheduler can hit
// POST /cron/poll-email on the API instead of running this binary.
func main() {
	cfg := config.LoadConfig()
	utils.InitLogger(cfg.Env)
	log.Printf("🚀 Starting email poller (schedule: %s)", cfg.PollSchedule)

	db := database.NewDB(cfg.DatabaseURL)
	defer db.Close()

	emailAdapter := channels.NewEmailAdapter()
	pushService := push.NewService(cfg.PushAPIURL)
	routerService := services.NewRouterService(db.GORM, pushService)
	pollerService := services.NewPollerService(db.GORM, emailAdapter, routerService)

	c := cron.New()
	_, err := c.AddFunc(cfg.PollSchedule, func() {
		routed, err := pollerService.PollAll(context.Background())
		if err != nil {
			utils.LogError("poll tick failed", err, nil)
			return
		}
		if routed > 0 {
			utils.LogInfo("poll tick routed messages", map[string]interface{}{"routed": routed})
		}
	})
	if err != nil {
		log.Fatalf("❌ Invalid poll schedule %q: %v", cfg.PollSchedule, err)
	}

	c.Start()
	log.Println("✅ Email poller started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Stopping email poller...")
	<-c.Stop().Done()
	log.Println("✅ Email poller stopped")
}
