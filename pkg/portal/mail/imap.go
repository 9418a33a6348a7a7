package mail

import (
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
)

// IMAPConfig configures the IMAP mailbox connection.
type IMAPConfig struct {
	// Server is the IMAP host, optionally with port. Port 993 (implicit
	// TLS) is assumed when absent.
	Server string

	// User is the delivery address the portal sends codes to.
	User string

	// Password is an app-level credential for User.
	Password string
}

// IMAPMailbox is the production Mailbox over IMAP with implicit TLS.
type IMAPMailbox struct {
	client *imapclient.Client
}

var _ Mailbox = (*IMAPMailbox)(nil)

// DialIMAP connects and authenticates against the configured server.
func DialIMAP(cfg IMAPConfig) (*IMAPMailbox, error) {
	addr := cfg.Server
	if !strings.Contains(addr, ":") {
		addr += ":993"
	}

	client, err := imapclient.DialTLS(addr, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	if err := client.Login(cfg.User, cfg.Password).Wait(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("login as %s: %w", cfg.User, err)
	}
	return &IMAPMailbox{client: client}, nil
}

// MarkAllRead adds \Seen to every message in INBOX (STORE 1:* +FLAGS),
// the same sweep the login protocol relies on before requesting a code.
// An empty inbox is already swept; STORE 1:* on it draws a BAD from many
// servers.
func (m *IMAPMailbox) MarkAllRead() error {
	inbox, err := m.client.Select("INBOX", nil).Wait()
	if err != nil {
		return fmt.Errorf("select inbox: %w", err)
	}
	if inbox.NumMessages == 0 {
		return nil
	}

	var all imap.SeqSet
	all.AddRange(1, 0) // 1:*
	store := m.client.Store(all, &imap.StoreFlags{
		Op:     imap.StoreFlagsAdd,
		Flags:  []imap.Flag{imap.FlagSeen},
		Silent: true,
	}, nil)
	if err := store.Close(); err != nil {
		return fmt.Errorf("mark all read: %w", err)
	}
	return nil
}

// FetchSince returns INBOX messages received at or after since, oldest
// first. IMAP SINCE matches whole days, so the result over-approximates;
// callers filter on ReceivedAt.
func (m *IMAPMailbox) FetchSince(since time.Time) ([]Message, error) {
	if _, err := m.client.Select("INBOX", nil).Wait(); err != nil {
		return nil, fmt.Errorf("select inbox: %w", err)
	}

	search, err := m.client.Search(&imap.SearchCriteria{Since: since}, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("search since %s: %w", since.Format(time.RFC3339), err)
	}
	nums := search.AllSeqNums()
	if len(nums) == 0 {
		return nil, nil
	}

	var set imap.SeqSet
	set.AddNum(nums...)
	bodySection := &imap.FetchItemBodySection{}
	buffers, err := m.client.Fetch(set, &imap.FetchOptions{
		UID:          true,
		InternalDate: true,
		BodySection:  []*imap.FetchItemBodySection{bodySection},
	}).Collect()
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}

	msgs := make([]Message, 0, len(buffers))
	for _, buf := range buffers {
		msgs = append(msgs, Message{
			ID:         fmt.Sprintf("%d", buf.UID),
			ReceivedAt: buf.InternalDate,
			Body:       ExtractBody(buf.FindBodySection(bodySection)),
		})
	}
	return msgs, nil
}

// Close logs out and releases the connection.
func (m *IMAPMailbox) Close() error {
	if err := m.client.Logout().Wait(); err != nil {
		return m.client.Close()
	}
	return nil
}
