package services

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/restaurantos/backend/internal/modules/inbox/models"
)

// newTestDB opens a throwaway sqlite database. File-backed rather than
// :memory: because gorm's pool would otherwise hand each connection its
// own empty database.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "inbox.db")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.Organization{},
		&models.Member{},
		&models.Channel{},
		&models.Customer{},
		&models.Conversation{},
		&models.Message{},
		&models.WebhookEvent{},
	))
	return db
}

func seedOrg(t *testing.T, db *gorm.DB, slug string) *models.Organization {
	t.Helper()
	org := &models.Organization{Slug: slug, Name: slug}
	require.NoError(t, db.Create(org).Error)
	return org
}

func seedChannel(t *testing.T, db *gorm.DB, org *models.Organization, platform, providerID, credentials string) *models.Channel {
	t.Helper()
	ch := &models.Channel{
		OrganizationID: org.ID,
		Platform:       platform,
		ProviderID:     providerID,
		Credentials:    []byte(credentials),
		IsActive:       true,
	}
	require.NoError(t, db.Create(ch).Error)
	return ch
}
