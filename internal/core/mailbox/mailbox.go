// Package mailbox wraps the IMAP protocol behind a minimal fetch-since
// interface so the email poller can be tested against a fake.
package mailbox

// RawMessage is one fetched mailbox message: its server-assigned UID and
// the raw RFC 5322 bytes.
type RawMessage struct {
	UID uint32
	Raw []byte
}

// Client lists messages newer than a UID watermark. UIDs are strictly
// increasing per mailbox, which is what makes the watermark safe.
type Client interface {
	// FetchSince returns all messages with UID > lastUID, ascending.
	FetchSince(lastUID uint32) ([]RawMessage, error)
	Close() error
}
