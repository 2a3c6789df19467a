package mailbox

import (
	"fmt"
	"io"
	"sort"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
)

// IMAPClient is the production Client, one TLS connection per poll.
type IMAPClient struct {
	c *client.Client
}

// Dial connects, authenticates and selects the mailbox read-only.
func Dial(host string, port int, username, password, box string) (*IMAPClient, error) {
	addr := fmt.Sprintf("%s:%d", host, port)

	c, err := client.DialTLS(addr, nil)
	if err != nil {
		return nil, fmt.Errorf("imap dial %s: %w", addr, err)
	}

	if err := c.Login(username, password); err != nil {
		c.Logout()
		return nil, fmt.Errorf("imap login: %w", err)
	}

	if box == "" {
		box = "INBOX"
	}
	if _, err := c.Select(box, true); err != nil {
		c.Logout()
		return nil, fmt.Errorf("imap select %s: %w", box, err)
	}

	return &IMAPClient{c: c}, nil
}

// FetchSince fetches full bodies for every message with UID > lastUID.
// Servers may echo the anchor message back for a range like "n:*", so the
// watermark guard filters it out.
func (m *IMAPClient) FetchSince(lastUID uint32) ([]RawMessage, error) {
	seq := new(imap.SeqSet)
	seq.AddRange(lastUID+1, 0) // 0 means "*"

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchUid, section.FetchItem()}

	messages := make(chan *imap.Message, 16)
	done := make(chan error, 1)
	go func() {
		done <- m.c.UidFetch(seq, items, messages)
	}()

	var out []RawMessage
	for msg := range messages {
		if msg.Uid <= lastUID {
			continue
		}
		body := msg.GetBody(section)
		if body == nil {
			continue
		}
		raw, err := io.ReadAll(body)
		if err != nil {
			continue
		}
		out = append(out, RawMessage{UID: msg.Uid, Raw: raw})
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("imap fetch: %w", err)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].UID < out[j].UID })
	return out, nil
}

func (m *IMAPClient) Close() error {
	return m.c.Logout()
}
