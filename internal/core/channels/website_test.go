package channels

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebsiteNormalize(t *testing.T) {
	payload := []byte(`{
		"organization_slug": "chez-fatou",
		"name": "Moussa Ba",
		"email": "Moussa.Ba@Example.sn",
		"phone": "+221770000002",
		"subject": "Catering quote",
		"message": "We need catering for 50 people next Saturday."
	}`)

	adapter := NewWebsiteAdapter()
	out, err := adapter.Normalize(payload, Credentials{})
	require.NoError(t, err)
	require.Len(t, out, 1)

	in := out[0]
	// Email is the thread identity, normalized to lower case.
	assert.Equal(t, "moussa.ba@example.sn", in.ExternalThreadID)
	assert.Equal(t, "moussa.ba@example.sn", in.SenderEmail)
	assert.Equal(t, "Moussa Ba", in.SenderName)
	assert.Equal(t, "+221770000002", in.SenderPhone)
	assert.Equal(t, "Catering quote\n\nWe need catering for 50 people next Saturday.", in.Content)
	assert.Empty(t, in.ExternalMessageID)
}

func TestWebsiteNormalizeRejectsIncompleteForms(t *testing.T) {
	adapter := NewWebsiteAdapter()

	_, err := adapter.Normalize([]byte(`{"organization_slug": "chez-fatou", "message": "no email"}`), Credentials{})
	assert.Error(t, err)

	_, err = adapter.Normalize([]byte(`{"organization_slug": "chez-fatou", "email": "a@b.sn", "message": "   "}`), Credentials{})
	assert.Error(t, err)
}

func TestWebsiteResolveProviderID(t *testing.T) {
	adapter := NewWebsiteAdapter()

	id, err := adapter.ResolveProviderID([]byte(`{"organization_slug": "chez-fatou", "email": "a@b.sn", "message": "hi"}`))
	require.NoError(t, err)
	assert.Equal(t, "chez-fatou", id)

	_, err = adapter.ResolveProviderID([]byte(`{"email": "a@b.sn"}`))
	assert.Error(t, err)
}

func TestWebsiteSendOutboundIsNoOp(t *testing.T) {
	adapter := NewWebsiteAdapter()
	result := adapter.SendOutbound(context.Background(), Credentials{}, "a@b.sn", "stored only")
	assert.NoError(t, result.Err)
	assert.Empty(t, result.ExternalMessageID)
}
