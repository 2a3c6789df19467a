package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/restaurantos/backend/internal/core/channels"
	"github.com/restaurantos/backend/internal/modules/inbox/models"
	"github.com/restaurantos/backend/internal/modules/inbox/repositories"
)

// stubAdapter records SendOutbound calls and replies with a canned result.
type stubAdapter struct {
	platform string
	result   channels.SendResult
	calls    int
	lastTo   string
	lastBody string
}

func (s *stubAdapter) Platform() string { return s.platform }

func (s *stubAdapter) ResolveProviderID(payload []byte) (string, error) {
	return "", fmt.Errorf("not used")
}

func (s *stubAdapter) Normalize(payload []byte, creds channels.Credentials) ([]channels.InboundMessage, error) {
	return nil, nil
}

func (s *stubAdapter) SendOutbound(ctx context.Context, creds channels.Credentials, externalThreadID, content string) channels.SendResult {
	s.calls++
	s.lastTo = externalThreadID
	s.lastBody = content
	return s.result
}

func TestDispatchSendSuccess(t *testing.T) {
	db := newTestDB(t)
	org := seedOrg(t, db, "chez-fatou")
	ch := seedChannel(t, db, org, models.PlatformWhatsApp, "1122334455",
		`{"phone_number_id": "1122334455", "access_token": "tok"}`)

	router := NewRouterService(db, nil)
	inbound, err := router.RouteInbound(context.Background(), org.ID, ch.ID, channels.InboundMessage{
		ExternalThreadID: "221770000001", ExternalSenderID: "221770000001",
		ExternalMessageID: "wamid.IN", Content: "Bonjour", ReceivedAt: time.Now(),
	})
	require.NoError(t, err)

	stub := &stubAdapter{
		platform: models.PlatformWhatsApp,
		result: channels.SendResult{
			ExternalMessageID: "wamid.OUT",
			Response:          []byte(`{"messages": [{"id": "wamid.OUT"}]}`),
		},
	}
	dispatcher := NewDispatchService(db, channels.NewRegistry(stub), router)

	msg, err := dispatcher.Send(context.Background(), inbound.ConversationID, "On vous attend!")
	require.NoError(t, err)
	require.NotNil(t, msg)

	assert.Equal(t, 1, stub.calls)
	assert.Equal(t, "221770000001", stub.lastTo)
	assert.Equal(t, "On vous attend!", stub.lastBody)

	var stored models.Message
	require.NoError(t, db.First(&stored, "id = ?", msg.ID).Error)
	assert.Equal(t, models.SenderAgent, stored.SenderType)
	require.NotNil(t, stored.ExternalMessageID)
	assert.Equal(t, "wamid.OUT", *stored.ExternalMessageID)
	assert.JSONEq(t, `{"messages": [{"id": "wamid.OUT"}]}`, string(stored.APIResponse))
}

func TestDispatchSendProviderFailureKeepsMessage(t *testing.T) {
	db := newTestDB(t)
	org := seedOrg(t, db, "chez-fatou")
	ch := seedChannel(t, db, org, models.PlatformWhatsApp, "1122334455",
		`{"phone_number_id": "1122334455", "access_token": "tok"}`)

	router := NewRouterService(db, nil)
	inbound, err := router.RouteInbound(context.Background(), org.ID, ch.ID, channels.InboundMessage{
		ExternalThreadID: "221770000001", ExternalSenderID: "221770000001",
		ExternalMessageID: "wamid.IN", Content: "Bonjour", ReceivedAt: time.Now(),
	})
	require.NoError(t, err)

	stub := &stubAdapter{
		platform: models.PlatformWhatsApp,
		result: channels.SendResult{
			Response: []byte(`{"error": {"message": "expired token"}}`),
			Err:      fmt.Errorf("graph API error (status 401)"),
		},
	}
	dispatcher := NewDispatchService(db, channels.NewRegistry(stub), router)

	// The send failure is recorded, not surfaced as a request error.
	msg, err := dispatcher.Send(context.Background(), inbound.ConversationID, "On vous attend!")
	require.NoError(t, err)
	require.NotNil(t, msg)

	var stored models.Message
	require.NoError(t, db.First(&stored, "id = ?", msg.ID).Error)
	assert.Nil(t, stored.ExternalMessageID)
	assert.Contains(t, string(stored.APIResponse), "graph API error")
	assert.Contains(t, string(stored.APIResponse), "expired token")
}

func TestDispatchSendWebsiteSkipsDelivery(t *testing.T) {
	db := newTestDB(t)
	org := seedOrg(t, db, "chez-fatou")
	ch := seedChannel(t, db, org, models.PlatformWebsite, "chez-fatou", `{}`)

	router := NewRouterService(db, nil)
	inbound, err := router.RouteInbound(context.Background(), org.ID, ch.ID, channels.InboundMessage{
		ExternalThreadID: "awa@example.sn", SenderEmail: "awa@example.sn",
		Content: "from the form", ReceivedAt: time.Now(),
	})
	require.NoError(t, err)

	stub := &stubAdapter{platform: models.PlatformWebsite}
	dispatcher := NewDispatchService(db, channels.NewRegistry(stub), router)

	msg, err := dispatcher.Send(context.Background(), inbound.ConversationID, "Thanks, noted!")
	require.NoError(t, err)
	require.NotNil(t, msg)

	// Website replies are dashboard-only; the adapter is never called.
	assert.Equal(t, 0, stub.calls)

	messages, err := repositories.NewMessageRepo(db).ListByConversation(inbound.ConversationID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, models.SenderAgent, messages[1].SenderType)
}

func TestDispatchSendUnknownConversation(t *testing.T) {
	db := newTestDB(t)
	router := NewRouterService(db, nil)
	dispatcher := NewDispatchService(db, channels.NewRegistry(), router)

	_, err := dispatcher.Send(context.Background(), uuid.New(), "hello")
	assert.Error(t, err)
}
