package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/restaurantos/backend/internal/core/channels"
	"github.com/restaurantos/backend/internal/modules/inbox/models"
	"github.com/restaurantos/backend/internal/modules/inbox/repositories"
)

func TestRouteInboundCreatesCustomerAndConversation(t *testing.T) {
	db := newTestDB(t)
	org := seedOrg(t, db, "chez-fatou")
	ch := seedChannel(t, db, org, models.PlatformWhatsApp, "1122334455", `{}`)

	router := NewRouterService(db, nil)

	msg, err := router.RouteInbound(context.Background(), org.ID, ch.ID, channels.InboundMessage{
		ExternalThreadID:  "221770000001",
		ExternalSenderID:  "221770000001",
		ExternalMessageID: "wamid.ABC",
		SenderName:        "Awa Diop",
		SenderPhone:       "221770000001",
		Content:           "Bonjour",
		ReceivedAt:        time.Unix(1700000000, 0),
	})
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, models.SenderCustomer, msg.SenderType)
	assert.Equal(t, "Bonjour", msg.Content)

	var customer models.Customer
	require.NoError(t, db.First(&customer, "organization_id = ?", org.ID).Error)
	assert.Equal(t, "Awa Diop", customer.FullName)
	require.NotNil(t, customer.Phone)
	assert.Equal(t, "221770000001", *customer.Phone)

	var conv models.Conversation
	require.NoError(t, db.First(&conv, "id = ?", msg.ConversationID).Error)
	assert.Equal(t, models.ConversationOpen, conv.Status)
	assert.Equal(t, 1, conv.UnreadCount)
	require.NotNil(t, conv.ExternalThreadID)
	assert.Equal(t, "221770000001", *conv.ExternalThreadID)
}

func TestRouteInboundReusesThreadByExternalID(t *testing.T) {
	db := newTestDB(t)
	org := seedOrg(t, db, "chez-fatou")
	ch := seedChannel(t, db, org, models.PlatformWhatsApp, "1122334455", `{}`)

	router := NewRouterService(db, nil)
	ctx := context.Background()

	first, err := router.RouteInbound(ctx, org.ID, ch.ID, channels.InboundMessage{
		ExternalThreadID: "221770000001", ExternalSenderID: "221770000001",
		ExternalMessageID: "wamid.1", Content: "first", ReceivedAt: time.Now(),
	})
	require.NoError(t, err)

	second, err := router.RouteInbound(ctx, org.ID, ch.ID, channels.InboundMessage{
		ExternalThreadID: "221770000001", ExternalSenderID: "221770000001",
		ExternalMessageID: "wamid.2", Content: "second", ReceivedAt: time.Now(),
	})
	require.NoError(t, err)

	assert.Equal(t, first.ConversationID, second.ConversationID)

	var convCount, customerCount int64
	db.Model(&models.Conversation{}).Count(&convCount)
	db.Model(&models.Customer{}).Count(&customerCount)
	assert.EqualValues(t, 1, convCount)
	assert.EqualValues(t, 1, customerCount)

	var conv models.Conversation
	require.NoError(t, db.First(&conv, "id = ?", first.ConversationID).Error)
	assert.Equal(t, 2, conv.UnreadCount)
}

func TestRouteInboundDuplicateExternalID(t *testing.T) {
	db := newTestDB(t)
	org := seedOrg(t, db, "chez-fatou")
	ch := seedChannel(t, db, org, models.PlatformWhatsApp, "1122334455", `{}`)

	router := NewRouterService(db, nil)
	ctx := context.Background()

	in := channels.InboundMessage{
		ExternalThreadID: "221770000001", ExternalSenderID: "221770000001",
		ExternalMessageID: "wamid.DUP", Content: "Bonjour", ReceivedAt: time.Now(),
	}

	first, err := router.RouteInbound(ctx, org.ID, ch.ID, in)
	require.NoError(t, err)

	// Webhook redelivery of the same message is absorbed without side
	// effects.
	again, err := router.RouteInbound(ctx, org.ID, ch.ID, in)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	var msgCount int64
	db.Model(&models.Message{}).Count(&msgCount)
	assert.EqualValues(t, 1, msgCount)

	var conv models.Conversation
	require.NoError(t, db.First(&conv, "id = ?", first.ConversationID).Error)
	assert.Equal(t, 1, conv.UnreadCount)
}

func TestRouteInboundPreservesProviderOrder(t *testing.T) {
	db := newTestDB(t)
	org := seedOrg(t, db, "chez-fatou")
	ch := seedChannel(t, db, org, models.PlatformWhatsApp, "1122334455", `{}`)

	router := NewRouterService(db, nil)
	ctx := context.Background()

	base := time.Unix(1700000000, 0)
	for i, content := range []string{"one", "two", "three"} {
		_, err := router.RouteInbound(ctx, org.ID, ch.ID, channels.InboundMessage{
			ExternalThreadID:  "221770000001",
			ExternalSenderID:  "221770000001",
			ExternalMessageID: content,
			Content:           content,
			ReceivedAt:        base.Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
	}

	var conv models.Conversation
	require.NoError(t, db.First(&conv).Error)

	listed, err := repositories.NewMessageRepo(db).ListByConversation(conv.ID)
	require.NoError(t, err)
	require.Len(t, listed, 3)
	assert.Equal(t, "one", listed[0].Content)
	assert.Equal(t, "two", listed[1].Content)
	assert.Equal(t, "three", listed[2].Content)
	// Messages are stamped with the provider timestamp, not ingestion time.
	assert.Equal(t, base.Unix(), listed[0].CreatedAt.Unix())
}

func TestRouteInboundOrdersSameSecondBatch(t *testing.T) {
	db := newTestDB(t)
	org := seedOrg(t, db, "chez-fatou")
	ch := seedChannel(t, db, org, models.PlatformWhatsApp, "1122334455", `{}`)

	router := NewRouterService(db, nil)
	ctx := context.Background()

	// WhatsApp timestamps in whole seconds: a burst delivered in one
	// webhook shares a single ReceivedAt.
	at := time.Unix(1700000000, 0)
	for _, content := range []string{"one", "two", "three"} {
		_, err := router.RouteInbound(ctx, org.ID, ch.ID, channels.InboundMessage{
			ExternalThreadID:  "221770000001",
			ExternalSenderID:  "221770000001",
			ExternalMessageID: content,
			Content:           content,
			ReceivedAt:        at,
		})
		require.NoError(t, err)
	}

	var conv models.Conversation
	require.NoError(t, db.First(&conv).Error)

	listed, err := repositories.NewMessageRepo(db).ListByConversation(conv.ID)
	require.NoError(t, err)
	require.Len(t, listed, 3)
	assert.Equal(t, "one", listed[0].Content)
	assert.Equal(t, "two", listed[1].Content)
	assert.Equal(t, "three", listed[2].Content)
	// created_at is a strict insertion sequence even within the batch.
	assert.True(t, listed[0].CreatedAt.Before(listed[1].CreatedAt))
	assert.True(t, listed[1].CreatedAt.Before(listed[2].CreatedAt))
	assert.Equal(t, at.Unix(), listed[0].CreatedAt.Unix())
}

func TestRouteInboundMergesCustomerByEmail(t *testing.T) {
	db := newTestDB(t)
	org := seedOrg(t, db, "chez-fatou")
	website := seedChannel(t, db, org, models.PlatformWebsite, "chez-fatou", `{}`)
	mail := seedChannel(t, db, org, models.PlatformEmail, "", `{}`)

	router := NewRouterService(db, nil)
	ctx := context.Background()

	_, err := router.RouteInbound(ctx, org.ID, website.ID, channels.InboundMessage{
		ExternalThreadID: "awa@example.sn", ExternalSenderID: "awa@example.sn",
		SenderEmail: "awa@example.sn", SenderName: "Awa Diop",
		Content: "from the contact form", ReceivedAt: time.Now(),
	})
	require.NoError(t, err)

	_, err = router.RouteInbound(ctx, org.ID, mail.ID, channels.InboundMessage{
		ExternalThreadID: "awa@example.sn", ExternalSenderID: "awa@example.sn",
		ExternalMessageID: "m1@mail", SenderEmail: "awa@example.sn",
		Content: "by email", ReceivedAt: time.Now(),
	})
	require.NoError(t, err)

	// One customer, one conversation per channel.
	var customerCount, convCount int64
	db.Model(&models.Customer{}).Count(&customerCount)
	db.Model(&models.Conversation{}).Count(&convCount)
	assert.EqualValues(t, 1, customerCount)
	assert.EqualValues(t, 2, convCount)
}

func TestRouteInboundDoesNotMergeAcrossOrganizations(t *testing.T) {
	db := newTestDB(t)
	orgA := seedOrg(t, db, "chez-fatou")
	orgB := seedOrg(t, db, "dakar-grill")
	chA := seedChannel(t, db, orgA, models.PlatformWebsite, "chez-fatou", `{}`)
	chB := seedChannel(t, db, orgB, models.PlatformWebsite, "dakar-grill", `{}`)

	router := NewRouterService(db, nil)
	ctx := context.Background()

	in := channels.InboundMessage{
		ExternalThreadID: "awa@example.sn", ExternalSenderID: "awa@example.sn",
		SenderEmail: "awa@example.sn", Content: "hi", ReceivedAt: time.Now(),
	}

	_, err := router.RouteInbound(ctx, orgA.ID, chA.ID, in)
	require.NoError(t, err)
	_, err = router.RouteInbound(ctx, orgB.ID, chB.ID, in)
	require.NoError(t, err)

	var customerCount int64
	db.Model(&models.Customer{}).Count(&customerCount)
	assert.EqualValues(t, 2, customerCount)
}

func TestAgentReplyLeavesUnreadUntouched(t *testing.T) {
	db := newTestDB(t)
	org := seedOrg(t, db, "chez-fatou")
	ch := seedChannel(t, db, org, models.PlatformWhatsApp, "1122334455", `{}`)

	router := NewRouterService(db, nil)
	ctx := context.Background()

	inbound, err := router.RouteInbound(ctx, org.ID, ch.ID, channels.InboundMessage{
		ExternalThreadID: "221770000001", ExternalSenderID: "221770000001",
		ExternalMessageID: "wamid.1", Content: "Bonjour", ReceivedAt: time.Now(),
	})
	require.NoError(t, err)

	conversations := repositories.NewConversationRepo(db)
	conv, err := conversations.GetByID(inbound.ConversationID)
	require.NoError(t, err)
	require.Equal(t, 1, conv.UnreadCount)

	reply, err := router.RouteAgentReply(ctx, conv, "On vous attend!")
	require.NoError(t, err)
	assert.Equal(t, models.SenderAgent, reply.SenderType)

	conv, err = conversations.GetByID(conv.ID)
	require.NoError(t, err)
	// Unread tracks customer messages only.
	assert.Equal(t, 1, conv.UnreadCount)
	assert.False(t, conv.LastMessageAt.Before(reply.CreatedAt.Truncate(time.Second)))

	require.NoError(t, conversations.ResetUnread(conv.ID))
	conv, err = conversations.GetByID(conv.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, conv.UnreadCount)
}

func TestRouteSystemNotice(t *testing.T) {
	db := newTestDB(t)
	org := seedOrg(t, db, "chez-fatou")
	ch := seedChannel(t, db, org, models.PlatformWebsite, "chez-fatou", `{}`)

	router := NewRouterService(db, nil)
	ctx := context.Background()

	inbound, err := router.RouteInbound(ctx, org.ID, ch.ID, channels.InboundMessage{
		ExternalThreadID: "awa@example.sn", SenderEmail: "awa@example.sn",
		Content: "order please", ReceivedAt: time.Now(),
	})
	require.NoError(t, err)

	conv, err := repositories.NewConversationRepo(db).GetByID(inbound.ConversationID)
	require.NoError(t, err)

	notice, err := router.RouteSystemNotice(ctx, conv, "Order #42 confirmed")
	require.NoError(t, err)
	assert.Equal(t, models.SenderSystem, notice.SenderType)
}
