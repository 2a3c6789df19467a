package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/restaurantos/backend/internal/core/channels"
	"github.com/restaurantos/backend/internal/core/push"
	"github.com/restaurantos/backend/internal/modules/inbox/models"
	"github.com/restaurantos/backend/internal/modules/inbox/repositories"
	"github.com/restaurantos/backend/internal/shared/utils"
)

// RouterService turns a canonical inbound message into persisted state:
// customer, conversation, message, conversation metadata. Steps run inside
// one transaction; the push side-effect fires after commit and never
// blocks or fails routing.
type RouterService struct {
	db      *gorm.DB
	pushSvc *push.Service // nil disables notifications
}

func NewRouterService(db *gorm.DB, pushSvc *push.Service) *RouterService {
	return &RouterService{db: db, pushSvc: pushSvc}
}

// RouteInbound resolves (or creates) the customer and conversation for an
// inbound message, appends it and updates unread/last-activity metadata.
// A duplicate external message id returns the already-stored message with
// no side effects.
func (s *RouterService) RouteInbound(ctx context.Context, orgID, channelID uuid.UUID, in channels.InboundMessage) (*models.Message, error) {
	var routed *models.Message
	duplicate := false

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		conversations := repositories.NewConversationRepo(tx)
		messages := repositories.NewMessageRepo(tx)

		conv, err := s.resolveConversation(tx, orgID, channelID, in)
		if err != nil {
			return err
		}

		if in.ExternalMessageID != "" {
			existing, err := messages.FindByExternalID(conv.ID, in.ExternalMessageID)
			switch {
			case err == nil:
				routed = existing
				duplicate = true
				return nil
			case !errors.Is(err, gorm.ErrRecordNotFound):
				return err
			}
		}

		createdAt, err := sequencedCreatedAt(messages, conv.ID, in.ReceivedAt)
		if err != nil {
			return err
		}

		msg := &models.Message{
			ConversationID: conv.ID,
			SenderType:     models.SenderCustomer,
			Content:        in.Content,
			CreatedAt:      createdAt,
		}
		if in.ExternalMessageID != "" {
			msg.ExternalMessageID = &in.ExternalMessageID
		}
		if len(in.Attachments) > 0 {
			if raw, err := json.Marshal(in.Attachments); err == nil {
				msg.Attachments = datatypes.JSON(raw)
			}
		}
		if err := messages.Create(msg); err != nil {
			return err
		}

		if err := conversations.RecordInbound(conv.ID, time.Now()); err != nil {
			return err
		}

		routed = msg
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !duplicate {
		s.notify(orgID, routed)
	}
	return routed, nil
}

// RouteAgentReply appends an agent message to an existing conversation and
// advances last_message_at; unread_count is untouched (it tracks unread
// customer messages only).
func (s *RouterService) RouteAgentReply(ctx context.Context, conv *models.Conversation, content string) (*models.Message, error) {
	return s.appendLocal(ctx, conv, models.SenderAgent, content)
}

// RouteSystemNotice appends an automated notice (e.g. an order
// confirmation echoed into the thread) without touching unread counts.
func (s *RouterService) RouteSystemNotice(ctx context.Context, conv *models.Conversation, content string) (*models.Message, error) {
	return s.appendLocal(ctx, conv, models.SenderSystem, content)
}

func (s *RouterService) appendLocal(ctx context.Context, conv *models.Conversation, senderType, content string) (*models.Message, error) {
	var routed *models.Message

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		conversations := repositories.NewConversationRepo(tx)
		messages := repositories.NewMessageRepo(tx)

		createdAt, err := sequencedCreatedAt(messages, conv.ID, time.Now())
		if err != nil {
			return err
		}

		msg := &models.Message{
			ConversationID: conv.ID,
			SenderType:     senderType,
			Content:        content,
			CreatedAt:      createdAt,
		}
		if err := messages.Create(msg); err != nil {
			return err
		}
		if err := conversations.RecordOutbound(conv.ID, msg.CreatedAt); err != nil {
			return err
		}

		routed = msg
		return nil
	})
	if err != nil {
		return nil, err
	}
	return routed, nil
}

// sequencedCreatedAt keeps created_at a strict insertion sequence per
// thread. WhatsApp timestamps messages in whole seconds, so a burst
// batched into one webhook shares one timestamp; nudging each insert a
// microsecond past its predecessor makes created_at alone preserve
// delivery order.
func sequencedCreatedAt(messages repositories.MessageRepo, conversationID uuid.UUID, proposed time.Time) (time.Time, error) {
	last, err := messages.LastCreatedAt(conversationID)
	if err != nil {
		return time.Time{}, err
	}
	if proposed.IsZero() {
		proposed = time.Now()
	}
	if !proposed.After(last) {
		proposed = last.Add(time.Microsecond)
	}
	return proposed, nil
}

// resolveConversation implements the identity chain: external thread id on
// this channel first, then (organization, email), then a fresh customer.
// The most recently active conversation wins over creating a new thread.
func (s *RouterService) resolveConversation(tx *gorm.DB, orgID, channelID uuid.UUID, in channels.InboundMessage) (*models.Conversation, error) {
	conversations := repositories.NewConversationRepo(tx)
	customers := repositories.NewCustomerRepo(tx)

	if in.ExternalThreadID != "" {
		conv, err := conversations.FindByExternalThread(orgID, channelID, in.ExternalThreadID)
		if err == nil {
			return conv, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	customer, err := s.resolveCustomer(customers, orgID, in)
	if err != nil {
		return nil, err
	}

	conv, err := conversations.FindLatest(orgID, customer.ID, channelID)
	if err == nil {
		if conv.ExternalThreadID == nil && in.ExternalThreadID != "" {
			tx.Model(conv).Update("external_thread_id", in.ExternalThreadID)
			conv.ExternalThreadID = &in.ExternalThreadID
		}
		return conv, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	conv = &models.Conversation{
		OrganizationID: orgID,
		CustomerID:     customer.ID,
		ChannelID:      channelID,
		Status:         models.ConversationOpen,
		LastMessageAt:  time.Now(),
	}
	if in.ExternalThreadID != "" {
		conv.ExternalThreadID = &in.ExternalThreadID
	}
	if err := conversations.Create(conv); err != nil {
		return nil, err
	}
	return conv, nil
}

func (s *RouterService) resolveCustomer(customers repositories.CustomerRepo, orgID uuid.UUID, in channels.InboundMessage) (*models.Customer, error) {
	if in.SenderEmail != "" {
		customer, err := customers.FindByEmail(orgID, in.SenderEmail)
		if err == nil {
			return customer, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	name := in.SenderName
	if name == "" {
		name = in.SenderEmail
	}
	if name == "" {
		name = in.ExternalSenderID
	}

	customer := &models.Customer{
		OrganizationID: orgID,
		FullName:       name,
	}
	if in.SenderEmail != "" {
		customer.Email = &in.SenderEmail
	}
	if in.SenderPhone != "" {
		customer.Phone = &in.SenderPhone
	}
	if err := customers.Create(customer); err != nil {
		return nil, err
	}
	return customer, nil
}

// notify fans the new message out to members holding a push token. Runs
// detached with its own deadline; failures are logged and dropped.
func (s *RouterService) notify(orgID uuid.UUID, msg *models.Message) {
	if s.pushSvc == nil || msg == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		members, err := repositories.NewMemberRepo(s.db).ListNotifiable(orgID)
		if err != nil {
			utils.LogWarn("push recipient lookup failed", map[string]interface{}{"organization_id": orgID, "error": err.Error()})
			return
		}

		body := msg.Content
		if len(body) > 120 {
			body = body[:117] + "..."
		}
		data := map[string]interface{}{
			"conversation_id": msg.ConversationID.String(),
		}

		for _, member := range members {
			if member.PushToken == nil {
				continue
			}
			if err := s.pushSvc.Send(ctx, *member.PushToken, "New message", body, data); err != nil {
				utils.LogWarn("push delivery failed", map[string]interface{}{"member_id": member.ID, "error": err.Error()})
			}
		}
	}()
}
