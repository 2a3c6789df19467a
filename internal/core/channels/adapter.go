package channels

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// InboundMessage is the canonical form every provider payload is normalized
// into before routing. One InboundMessage per actual message; a single
// webhook delivery may yield several, in delivery order.
type InboundMessage struct {
	ExternalThreadID  string
	ExternalSenderID  string
	ExternalMessageID string
	SenderName        string
	SenderEmail       string
	SenderPhone       string
	Content           string
	Attachments       []Attachment
	ReceivedAt        time.Time
}

// Attachment is a reference to provider-hosted media; the backend stores
// the reference, never the bytes.
type Attachment struct {
	Type        string `json:"type"`
	URL         string `json:"url,omitempty"`
	ProviderRef string `json:"provider_ref,omitempty"`
}

// SendResult carries the outcome of an outbound provider call. Response
// keeps the raw provider body for diagnostics either way.
type SendResult struct {
	ExternalMessageID string
	Response          json.RawMessage
	Err               error
}

// Adapter normalizes one platform's inbound payloads and sends outbound
// replies through that platform's API.
type Adapter interface {
	// Platform returns the platform value this adapter serves.
	Platform() string

	// ResolveProviderID extracts the provider-side account identifier from
	// a raw webhook payload, used to find the owning channel before
	// normalization.
	ResolveProviderID(payload []byte) (string, error)

	// Normalize decodes a raw provider payload into zero or more inbound
	// messages, preserving delivery order. Every field is treated as
	// optional; malformed events are skipped, a payload with no usable
	// message is not an error.
	Normalize(payload []byte, creds Credentials) ([]InboundMessage, error)

	// SendOutbound delivers an agent reply to the provider. A failure here
	// never touches persisted state; it is reported for the caller to
	// attach to the stored message.
	SendOutbound(ctx context.Context, creds Credentials, externalThreadID, content string) SendResult
}

// Registry maps platform values to adapters.
type Registry struct {
	adapters map[string]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[string]Adapter)}
	for _, a := range adapters {
		r.adapters[a.Platform()] = a
	}
	return r
}

func (r *Registry) Get(platform string) (Adapter, error) {
	a, ok := r.adapters[platform]
	if !ok {
		return nil, fmt.Errorf("no adapter registered for platform %q", platform)
	}
	return a, nil
}
