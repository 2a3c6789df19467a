package handlers

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/restaurantos/backend/internal/modules/inbox/models"
	"github.com/restaurantos/backend/internal/modules/inbox/services"
)

func newChannelApp(t *testing.T, db *gorm.DB) *fiber.App {
	t.Helper()

	handler := NewChannelHandler(services.NewChannelService(db))
	app := fiber.New()
	app.Get("/api/channels", handler.List)
	app.Post("/api/channels/connect", handler.Connect)
	return app
}

func TestChannelConnectEndpoint(t *testing.T) {
	db := newTestDB(t)
	org := &models.Organization{Slug: "chez-fatou", Name: "Chez Fatou"}
	require.NoError(t, db.Create(org).Error)
	app := newChannelApp(t, db)

	payload := `{
		"organization_id": "` + org.ID.String() + `",
		"platform": "whatsapp",
		"provider_id": "1122334455",
		"credentials": {"phone_number_id": "1122334455", "access_token": "tok"}
	}`

	req := httptest.NewRequest("POST", "/api/channels/connect", bytes.NewReader([]byte(payload)))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, 201, resp.StatusCode)

	var ch models.Channel
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ch))
	assert.Equal(t, models.PlatformWhatsApp, ch.Platform)
	assert.Equal(t, "1122334455", ch.ProviderID)
}

func TestChannelConnectEndpointRejectsBadPlatform(t *testing.T) {
	db := newTestDB(t)
	org := &models.Organization{Slug: "chez-fatou", Name: "Chez Fatou"}
	require.NoError(t, db.Create(org).Error)
	app := newChannelApp(t, db)

	payload := `{"organization_id": "` + org.ID.String() + `", "platform": "telegram"}`
	req := httptest.NewRequest("POST", "/api/channels/connect", bytes.NewReader([]byte(payload)))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestChannelListEndpoint(t *testing.T) {
	db := newTestDB(t)
	org := &models.Organization{Slug: "chez-fatou", Name: "Chez Fatou"}
	require.NoError(t, db.Create(org).Error)
	require.NoError(t, db.Create(&models.Channel{
		OrganizationID: org.ID,
		Platform:       models.PlatformWebsite,
		ProviderID:     org.Slug,
		Credentials:    []byte(`{}`),
		IsActive:       true,
	}).Error)
	app := newChannelApp(t, db)

	req := httptest.NewRequest("GET", "/api/channels?organization_id="+org.ID.String(), nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var body struct {
		Channels []models.Channel `json:"channels"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Channels, 1)
	assert.Equal(t, models.PlatformWebsite, body.Channels[0].Platform)
}
