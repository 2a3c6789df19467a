package channels

import (
	"encoding/json"
	"fmt"

	"github.com/restaurantos/backend/internal/modules/inbox/models"
)

// Credentials is the tagged union of per-platform channel secrets. Exactly
// one variant is set, matching Platform; the website platform needs none.
type Credentials struct {
	Platform string
	WhatsApp *WhatsAppCredentials
	Meta     *MetaCredentials
	Email    *EmailCredentials
}

// WhatsAppCredentials configures a Meta WhatsApp Cloud API number.
type WhatsAppCredentials struct {
	PhoneNumberID string `json:"phone_number_id"`
	AccessToken   string `json:"access_token"`
	APIVersion    string `json:"api_version,omitempty"`
}

// MetaCredentials configures an Instagram or Messenger page.
type MetaCredentials struct {
	PageID      string `json:"page_id"`
	AccessToken string `json:"access_token"`
	APIVersion  string `json:"api_version,omitempty"`
}

// EmailCredentials configures a mailbox for polling plus a transactional
// provider for sending.
type EmailCredentials struct {
	IMAPHost    string `json:"imap_host"`
	IMAPPort    int    `json:"imap_port"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	Mailbox     string `json:"mailbox,omitempty"`
	Provider    string `json:"provider,omitempty"` // brevo (default) or resend
	APIKey      string `json:"api_key"`
	FromAddress string `json:"from_address"`
	FromName    string `json:"from_name,omitempty"`
}

// DecodeCredentials decodes a channel's raw credentials bag into the
// variant for its platform, validating required fields so missing-field
// bugs surface here instead of inside a provider call.
func DecodeCredentials(platform string, raw []byte) (Credentials, error) {
	creds := Credentials{Platform: platform}

	switch platform {
	case models.PlatformWhatsApp:
		var wa WhatsAppCredentials
		if err := json.Unmarshal(raw, &wa); err != nil {
			return creds, fmt.Errorf("decode whatsapp credentials: %w", err)
		}
		if wa.PhoneNumberID == "" || wa.AccessToken == "" {
			return creds, fmt.Errorf("whatsapp credentials require phone_number_id and access_token")
		}
		creds.WhatsApp = &wa

	case models.PlatformInstagram, models.PlatformMessenger:
		var m MetaCredentials
		if err := json.Unmarshal(raw, &m); err != nil {
			return creds, fmt.Errorf("decode %s credentials: %w", platform, err)
		}
		if m.PageID == "" || m.AccessToken == "" {
			return creds, fmt.Errorf("%s credentials require page_id and access_token", platform)
		}
		creds.Meta = &m

	case models.PlatformEmail:
		var e EmailCredentials
		if err := json.Unmarshal(raw, &e); err != nil {
			return creds, fmt.Errorf("decode email credentials: %w", err)
		}
		if e.IMAPHost == "" || e.Username == "" || e.Password == "" {
			return creds, fmt.Errorf("email credentials require imap_host, username and password")
		}
		if e.IMAPPort == 0 {
			e.IMAPPort = 993
		}
		if e.Mailbox == "" {
			e.Mailbox = "INBOX"
		}
		if e.Provider == "" {
			e.Provider = "brevo"
		}
		creds.Email = &e

	case models.PlatformWebsite:
		// The website channel has no external API.

	default:
		return creds, fmt.Errorf("unknown platform %q", platform)
	}

	return creds, nil
}
