package channels

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"

	"github.com/restaurantos/backend/internal/core/email"
	"github.com/restaurantos/backend/internal/core/mailbox"
	"github.com/restaurantos/backend/internal/modules/inbox/models"
)

// EmailAdapter ingests mailbox messages and sends agent replies through a
// transactional provider. Email has no push webhook; the poller drives
// ingestion through PollInbox instead of the gateway.
//
// Both collaborators are injectable so tests can substitute fakes.
type EmailAdapter struct {
	DialMailbox func(creds EmailCredentials) (mailbox.Client, error)
	NewSender   func(creds EmailCredentials) email.Provider
}

func NewEmailAdapter() *EmailAdapter {
	return &EmailAdapter{
		DialMailbox: func(creds EmailCredentials) (mailbox.Client, error) {
			return mailbox.Dial(creds.IMAPHost, creds.IMAPPort, creds.Username, creds.Password, creds.Mailbox)
		},
		NewSender: func(creds EmailCredentials) email.Provider {
			return email.NewProvider(creds.Provider, creds.APIKey, creds.FromAddress, creds.FromName)
		},
	}
}

func (a *EmailAdapter) Platform() string {
	return models.PlatformEmail
}

// ResolveProviderID never succeeds: email deliveries do not arrive through
// the webhook gateway.
func (a *EmailAdapter) ResolveProviderID(payload []byte) (string, error) {
	return "", fmt.Errorf("email channels are poll-driven, not webhook-driven")
}

// Normalize parses one raw RFC 5322 message. Thread identity is the sender
// address; the Message-Id header doubles as the idempotency key so
// re-polling the same mailbox state cannot duplicate messages.
func (a *EmailAdapter) Normalize(payload []byte, creds Credentials) ([]InboundMessage, error) {
	in, err := parseRFC822(payload)
	if err != nil {
		return nil, err
	}
	return []InboundMessage{in}, nil
}

// PollInbox fetches messages with UID above the watermark, normalizes each
// in UID order, and reports the watermark the caller should persist once
// the whole batch routed. Idempotent across repeated polls of the same
// mailbox state.
func (a *EmailAdapter) PollInbox(ctx context.Context, creds EmailCredentials, watermark string) ([]InboundMessage, string, error) {
	lastUID := parseWatermark(watermark)

	box, err := a.DialMailbox(creds)
	if err != nil {
		return nil, watermark, err
	}
	defer box.Close()

	raws, err := box.FetchSince(lastUID)
	if err != nil {
		return nil, watermark, err
	}

	var out []InboundMessage
	maxUID := lastUID
	for _, raw := range raws {
		if raw.UID > maxUID {
			maxUID = raw.UID
		}
		in, err := parseRFC822(raw.Raw)
		if err != nil {
			// An unparseable message is skipped, not retried forever.
			continue
		}
		out = append(out, in)
	}

	return out, strconv.FormatUint(uint64(maxUID), 10), nil
}

// SendOutbound delivers the reply through the channel's transactional
// provider; externalThreadID is the customer's address.
func (a *EmailAdapter) SendOutbound(ctx context.Context, creds Credentials, externalThreadID, content string) SendResult {
	if creds.Email == nil {
		return SendResult{Err: fmt.Errorf("email credentials missing")}
	}

	sender := a.NewSender(*creds.Email)

	from := creds.Email.FromName
	if from == "" {
		from = creds.Email.FromAddress
	}
	subject := fmt.Sprintf("New message from %s", from)

	id, err := sender.SendEmail(ctx, externalThreadID, subject, content)
	if err != nil {
		return SendResult{Err: err}
	}
	return SendResult{ExternalMessageID: id}
}

func parseWatermark(watermark string) uint32 {
	if watermark == "" {
		return 0
	}
	uid, err := strconv.ParseUint(watermark, 10, 32)
	if err != nil {
		return 0
	}
	return uint32(uid)
}

func parseRFC822(raw []byte) (InboundMessage, error) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return InboundMessage{}, fmt.Errorf("parse message: %w", err)
	}

	froms, err := mr.Header.AddressList("From")
	if err != nil || len(froms) == 0 {
		return InboundMessage{}, fmt.Errorf("message carries no From address")
	}
	addr := strings.ToLower(strings.TrimSpace(froms[0].Address))

	subject, _ := mr.Header.Subject()
	msgID, _ := mr.Header.MessageID()
	date, _ := mr.Header.Date()
	if date.IsZero() {
		date = time.Now()
	}

	var body string
	var attachments []Attachment
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}

		switch h := p.Header.(type) {
		case *mail.InlineHeader:
			ct, _, _ := h.ContentType()
			if body == "" && (ct == "" || strings.HasPrefix(ct, "text/plain")) {
				b, _ := io.ReadAll(p.Body)
				body = strings.TrimSpace(string(b))
			}
		case *mail.AttachmentHeader:
			filename, _ := h.Filename()
			attachments = append(attachments, Attachment{Type: "file", ProviderRef: filename})
		}
	}

	content := body
	if subject != "" {
		if content != "" {
			content = subject + "\n\n" + content
		} else {
			content = subject
		}
	}

	// Some senders omit Message-Id. Derive a stable key from the sender,
	// date and content so re-polling the same mailbox state still hits
	// the idempotency check instead of duplicating the message.
	if msgID == "" {
		sum := sha256.Sum256([]byte(addr + "\x00" + date.UTC().Format(time.RFC3339) + "\x00" + content))
		msgID = "sha256-" + hex.EncodeToString(sum[:16])
	}

	return InboundMessage{
		ExternalThreadID:  addr,
		ExternalSenderID:  addr,
		ExternalMessageID: msgID,
		SenderName:        froms[0].Name,
		SenderEmail:       addr,
		Content:           content,
		Attachments:       attachments,
		ReceivedAt:        date,
	}, nil
}
