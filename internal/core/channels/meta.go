package channels

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// MetaAdapter speaks the Graph messaging API shared by Instagram and
// Messenger pages. One instance is registered per platform value so the
// two channels stay independently configurable.
type MetaAdapter struct {
	BaseURL  string
	platform string
	version  string
	client   *http.Client
}

func NewMetaAdapter(platform, graphVersion string) *MetaAdapter {
	if graphVersion == "" {
		graphVersion = "v21.0"
	}
	return &MetaAdapter{
		BaseURL:  "https://graph.facebook.com",
		platform: platform,
		version:  graphVersion,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (a *MetaAdapter) Platform() string {
	return a.platform
}

type metaWebhook struct {
	Entry []struct {
		ID        string `json:"id"` // page / IG account id
		Messaging []struct {
			Sender struct {
				ID string `json:"id"`
			} `json:"sender"`
			Timestamp int64 `json:"timestamp"` // milliseconds
			Message   *struct {
				MID         string `json:"mid"`
				Text        string `json:"text"`
				IsEcho      bool   `json:"is_echo"`
				Attachments []struct {
					Type    string `json:"type"`
					Payload struct {
						URL string `json:"url"`
					} `json:"payload"`
				} `json:"attachments"`
			} `json:"message"`
		} `json:"messaging"`
	} `json:"entry"`
}

func (a *MetaAdapter) ResolveProviderID(payload []byte) (string, error) {
	var hook metaWebhook
	if err := json.Unmarshal(payload, &hook); err != nil {
		return "", fmt.Errorf("decode %s webhook: %w", a.platform, err)
	}
	for _, entry := range hook.Entry {
		if entry.ID != "" {
			return entry.ID, nil
		}
	}
	return "", fmt.Errorf("%s webhook carries no entry id", a.platform)
}

// Normalize produces one InboundMessage per messaging event, in delivery
// order. Echoes of the page's own messages and delivery/read events are
// skipped.
func (a *MetaAdapter) Normalize(payload []byte, creds Credentials) ([]InboundMessage, error) {
	var hook metaWebhook
	if err := json.Unmarshal(payload, &hook); err != nil {
		return nil, fmt.Errorf("decode %s webhook: %w", a.platform, err)
	}

	var out []InboundMessage
	for _, entry := range hook.Entry {
		for _, event := range entry.Messaging {
			if event.Message == nil || event.Message.IsEcho {
				continue
			}
			if event.Sender.ID == "" || event.Message.MID == "" {
				continue
			}

			in := InboundMessage{
				ExternalThreadID:  event.Sender.ID,
				ExternalSenderID:  event.Sender.ID,
				ExternalMessageID: event.Message.MID,
				Content:           event.Message.Text,
				ReceivedAt:        parseUnixMillis(event.Timestamp),
			}
			for _, att := range event.Message.Attachments {
				in.Attachments = append(in.Attachments, Attachment{Type: att.Type, URL: att.Payload.URL})
			}
			if in.Content == "" && len(in.Attachments) > 0 {
				in.Content = fmt.Sprintf("[%s]", in.Attachments[0].Type)
			}

			out = append(out, in)
		}
	}

	return out, nil
}

// SendOutbound posts to /<version>/<page_id>/messages with the recipient's
// scoped id.
func (a *MetaAdapter) SendOutbound(ctx context.Context, creds Credentials, externalThreadID, content string) SendResult {
	if creds.Meta == nil {
		return SendResult{Err: fmt.Errorf("%s credentials missing", a.platform)}
	}

	payload := map[string]interface{}{
		"recipient":      map[string]string{"id": externalThreadID},
		"messaging_type": "RESPONSE",
		"message":        map[string]string{"text": content},
	}

	version := creds.Meta.APIVersion
	if version == "" {
		version = a.version
	}
	url := fmt.Sprintf("%s/%s/%s/messages", a.BaseURL, version, creds.Meta.PageID)

	body, status, err := postJSON(ctx, a.client, url, payload, "Bearer "+creds.Meta.AccessToken)
	if err != nil {
		return SendResult{Response: body, Err: err}
	}
	if status < 200 || status >= 300 {
		return SendResult{Response: body, Err: fmt.Errorf("graph API error (status %d): %s", status, string(body))}
	}

	var resp struct {
		MessageID string `json:"message_id"`
	}
	if err := json.Unmarshal(body, &resp); err != nil || resp.MessageID == "" {
		return SendResult{Response: body, Err: fmt.Errorf("graph API response carries no message id")}
	}

	return SendResult{ExternalMessageID: resp.MessageID, Response: body}
}

func parseUnixMillis(ms int64) time.Time {
	if ms <= 0 {
		return time.Now()
	}
	return time.UnixMilli(ms)
}
