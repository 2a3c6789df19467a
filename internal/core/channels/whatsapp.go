package channels

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/restaurantos/backend/internal/modules/inbox/models"
)

// WhatsAppAdapter speaks the Meta WhatsApp Cloud API.
// Documentation: https://developers.facebook.com/docs/whatsapp/cloud-api
type WhatsAppAdapter struct {
	BaseURL string // graph.facebook.com unless overridden in tests
	version string // Graph API version when the channel sets none
	client  *http.Client
}

func NewWhatsAppAdapter(graphVersion string) *WhatsAppAdapter {
	if graphVersion == "" {
		graphVersion = "v21.0"
	}
	return &WhatsAppAdapter{
		BaseURL: "https://graph.facebook.com",
		version: graphVersion,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (a *WhatsAppAdapter) Platform() string {
	return models.PlatformWhatsApp
}

// Cloud API webhook shape, decoded defensively. Every field is optional;
// shape is whatever Meta happened to send.
type waWebhook struct {
	Entry []struct {
		ID      string `json:"id"`
		Changes []struct {
			Value struct {
				Metadata struct {
					PhoneNumberID string `json:"phone_number_id"`
				} `json:"metadata"`
				Contacts []struct {
					WaID    string `json:"wa_id"`
					Profile struct {
						Name string `json:"name"`
					} `json:"profile"`
				} `json:"contacts"`
				Messages []waMessage `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

type waMessage struct {
	From      string   `json:"from"`
	ID        string   `json:"id"`
	Timestamp string   `json:"timestamp"`
	Type      string   `json:"type"`
	Text      *waText  `json:"text"`
	Image     *waMedia `json:"image"`
	Document  *waMedia `json:"document"`
	Audio     *waMedia `json:"audio"`
	Video     *waMedia `json:"video"`
}

type waText struct {
	Body string `json:"body"`
}

type waMedia struct {
	ID       string `json:"id"`
	MimeType string `json:"mime_type"`
	Caption  string `json:"caption"`
}

// ResolveProviderID returns the phone_number_id the delivery targets, the
// key binding a webhook to its channel.
func (a *WhatsAppAdapter) ResolveProviderID(payload []byte) (string, error) {
	var hook waWebhook
	if err := json.Unmarshal(payload, &hook); err != nil {
		return "", fmt.Errorf("decode whatsapp webhook: %w", err)
	}
	for _, entry := range hook.Entry {
		for _, change := range entry.Changes {
			if id := change.Value.Metadata.PhoneNumberID; id != "" {
				return id, nil
			}
		}
	}
	return "", fmt.Errorf("whatsapp webhook carries no phone_number_id")
}

// Normalize flattens the entry/changes/messages nesting into one
// InboundMessage per message, preserving batch order. Status-only
// deliveries normalize to an empty slice.
func (a *WhatsAppAdapter) Normalize(payload []byte, creds Credentials) ([]InboundMessage, error) {
	var hook waWebhook
	if err := json.Unmarshal(payload, &hook); err != nil {
		return nil, fmt.Errorf("decode whatsapp webhook: %w", err)
	}

	var out []InboundMessage
	for _, entry := range hook.Entry {
		for _, change := range entry.Changes {
			names := make(map[string]string, len(change.Value.Contacts))
			for _, c := range change.Value.Contacts {
				if c.WaID != "" {
					names[c.WaID] = c.Profile.Name
				}
			}

			for _, msg := range change.Value.Messages {
				if msg.From == "" || msg.ID == "" {
					continue
				}

				in := InboundMessage{
					ExternalThreadID:  msg.From,
					ExternalSenderID:  msg.From,
					ExternalMessageID: msg.ID,
					SenderName:        names[msg.From],
					SenderPhone:       msg.From,
					ReceivedAt:        parseUnixSeconds(msg.Timestamp),
				}

				switch {
				case msg.Text != nil:
					in.Content = msg.Text.Body
				case msg.Image != nil:
					in.Content = mediaContent(msg.Image.Caption, "[image]")
					in.Attachments = append(in.Attachments, Attachment{Type: "image", ProviderRef: msg.Image.ID})
				case msg.Document != nil:
					in.Content = mediaContent(msg.Document.Caption, "[document]")
					in.Attachments = append(in.Attachments, Attachment{Type: "document", ProviderRef: msg.Document.ID})
				case msg.Audio != nil:
					in.Content = "[audio]"
					in.Attachments = append(in.Attachments, Attachment{Type: "audio", ProviderRef: msg.Audio.ID})
				case msg.Video != nil:
					in.Content = mediaContent(msg.Video.Caption, "[video]")
					in.Attachments = append(in.Attachments, Attachment{Type: "video", ProviderRef: msg.Video.ID})
				default:
					in.Content = fmt.Sprintf("[%s]", msg.Type)
				}

				out = append(out, in)
			}
		}
	}

	return out, nil
}

// SendOutbound posts a text message to /<version>/<phone_number_id>/messages
// with the channel's bearer token.
func (a *WhatsAppAdapter) SendOutbound(ctx context.Context, creds Credentials, externalThreadID, content string) SendResult {
	if creds.WhatsApp == nil {
		return SendResult{Err: fmt.Errorf("whatsapp credentials missing")}
	}

	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"recipient_type":    "individual",
		"to":                externalThreadID,
		"type":              "text",
		"text": map[string]string{
			"preview_url": "false",
			"body":        content,
		},
	}

	version := creds.WhatsApp.APIVersion
	if version == "" {
		version = a.version
	}
	url := fmt.Sprintf("%s/%s/%s/messages", a.BaseURL, version, creds.WhatsApp.PhoneNumberID)

	body, status, err := postJSON(ctx, a.client, url, payload, "Bearer "+creds.WhatsApp.AccessToken)
	if err != nil {
		return SendResult{Response: body, Err: err}
	}
	if status < 200 || status >= 300 {
		return SendResult{Response: body, Err: fmt.Errorf("graph API error (status %d): %s", status, string(body))}
	}

	var resp struct {
		Messages []struct {
			ID string `json:"id"`
		} `json:"messages"`
	}
	if err := json.Unmarshal(body, &resp); err != nil || len(resp.Messages) == 0 {
		return SendResult{Response: body, Err: fmt.Errorf("graph API response carries no message id")}
	}

	return SendResult{ExternalMessageID: resp.Messages[0].ID, Response: body}
}

func parseUnixSeconds(ts string) time.Time {
	secs, err := strconv.ParseInt(ts, 10, 64)
	if err != nil || secs <= 0 {
		return time.Now()
	}
	return time.Unix(secs, 0)
}

func mediaContent(caption, placeholder string) string {
	if caption != "" {
		return caption
	}
	return placeholder
}

// postJSON posts a JSON payload and returns the raw response body and
// status. The body is returned even on transport-level errors when
// available, so callers can persist it as diagnostics.
func postJSON(ctx context.Context, client *http.Client, url string, payload interface{}, authorization string) (json.RawMessage, int, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", authorization)
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	return respBody, resp.StatusCode, nil
}
