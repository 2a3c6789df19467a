package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL        string
	Port               string
	Env                string
	WebhookVerifyToken string
	CronSecret         string
	GraphAPIVersion    string
	PushAPIURL         string
	PollSchedule       string
}

func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ .env file not found, using system environment variables")
	}

	cfg := &Config{
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		Port:               os.Getenv("PORT"),
		Env:                os.Getenv("ENV"),
		WebhookVerifyToken: os.Getenv("WEBHOOK_VERIFY_TOKEN"),
		CronSecret:         os.Getenv("CRON_SECRET"),
		GraphAPIVersion:    os.Getenv("GRAPH_API_VERSION"),
		PushAPIURL:         os.Getenv("PUSH_API_URL"),
		PollSchedule:       os.Getenv("EMAIL_POLL_SCHEDULE"),
	}

	// Default values
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.Env == "" {
		cfg.Env = "development"
	}
	if cfg.GraphAPIVersion == "" {
		cfg.GraphAPIVersion = "v21.0"
	}
	if cfg.PushAPIURL == "" {
		cfg.PushAPIURL = "https://exp.host/--/api/v2/push/send"
	}
	if cfg.PollSchedule == "" {
		cfg.PollSchedule = "*/2 * * * *"
	}

	return cfg
}
