package channels

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/restaurantos/backend/internal/modules/inbox/models"
)

// WebsiteAdapter ingests the storefront contact form. There is no external
// API on the other side: replies are stored for the dashboard only.
type WebsiteAdapter struct{}

func NewWebsiteAdapter() *WebsiteAdapter {
	return &WebsiteAdapter{}
}

func (a *WebsiteAdapter) Platform() string {
	return models.PlatformWebsite
}

type websiteForm struct {
	OrganizationSlug string `json:"organization_slug"`
	Name             string `json:"name"`
	Email            string `json:"email"`
	Phone            string `json:"phone"`
	Subject          string `json:"subject"`
	Message          string `json:"message"`
}

// ResolveProviderID returns the storefront's organization slug; website
// channels are connected with provider_id = slug.
func (a *WebsiteAdapter) ResolveProviderID(payload []byte) (string, error) {
	var form websiteForm
	if err := json.Unmarshal(payload, &form); err != nil {
		return "", fmt.Errorf("decode contact form: %w", err)
	}
	if form.OrganizationSlug == "" {
		return "", fmt.Errorf("contact form carries no organization_slug")
	}
	return form.OrganizationSlug, nil
}

func (a *WebsiteAdapter) Normalize(payload []byte, creds Credentials) ([]InboundMessage, error) {
	var form websiteForm
	if err := json.Unmarshal(payload, &form); err != nil {
		return nil, fmt.Errorf("decode contact form: %w", err)
	}

	email := strings.TrimSpace(strings.ToLower(form.Email))
	if email == "" || strings.TrimSpace(form.Message) == "" {
		return nil, fmt.Errorf("contact form requires email and message")
	}

	content := form.Message
	if form.Subject != "" {
		content = form.Subject + "\n\n" + form.Message
	}

	return []InboundMessage{{
		ExternalThreadID: email,
		ExternalSenderID: email,
		SenderName:       form.Name,
		SenderEmail:      email,
		SenderPhone:      form.Phone,
		Content:          content,
		ReceivedAt:       time.Now(),
	}}, nil
}

// SendOutbound is a no-op success: agent replies to website-origin
// conversations are stored but not transmitted anywhere external.
func (a *WebsiteAdapter) SendOutbound(ctx context.Context, creds Credentials, externalThreadID, content string) SendResult {
	return SendResult{}
}
