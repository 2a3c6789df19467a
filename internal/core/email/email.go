package email

import "context"

// Provider defines the interface for transactional email providers used to
// deliver agent replies on email channels.
type Provider interface {
	// SendEmail sends a plain-text email and returns the provider-side
	// message id.
	SendEmail(ctx context.Context, to, subject, body string) (string, error)
	GetProviderName() string
}

// NewProvider builds the provider named by an email channel's credentials.
func NewProvider(name, apiKey, fromEmail, fromName string) Provider {
	switch name {
	case "resend":
		return NewResendProvider(apiKey, fromEmail, fromName)
	default:
		return NewBrevoProvider(apiKey, fromEmail, fromName)
	}
}
