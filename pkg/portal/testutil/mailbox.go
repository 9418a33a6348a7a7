package testutil

import (
	"time"

	"portalqa/pkg/portal/mail"
)

// FakeMessage is a mailbox message with read-state tracking.
type FakeMessage struct {
	mail.Message
	Read bool
}

// FakeMailbox is a scripted mail.Mailbox. Calls are recorded so tests
// can assert the mark-then-request ordering.
type FakeMailbox struct {
	Messages []*FakeMessage
	Calls    []string // "markallread" and "fetchsince" in call order

	// FetchErrs is consumed one error per FetchSince call, simulating
	// transient connectivity failures.
	FetchErrs []error
}

var _ mail.Mailbox = (*FakeMailbox)(nil)

// Deliver appends an unread message to the mailbox.
func (m *FakeMailbox) Deliver(id string, receivedAt time.Time, body string) {
	m.Messages = append(m.Messages, &FakeMessage{
		Message: mail.Message{ID: id, ReceivedAt: receivedAt, Body: body},
	})
}

// MarkAllRead marks every message read and records the call.
func (m *FakeMailbox) MarkAllRead() error {
	m.Calls = append(m.Calls, "markallread")
	for _, msg := range m.Messages {
		msg.Read = true
	}
	return nil
}

// FetchSince returns unread messages received on or after since (day
// truncation mirrors the IMAP SINCE over-approximation).
func (m *FakeMailbox) FetchSince(since time.Time) ([]mail.Message, error) {
	m.Calls = append(m.Calls, "fetchsince")
	if len(m.FetchErrs) > 0 {
		err := m.FetchErrs[0]
		m.FetchErrs = m.FetchErrs[1:]
		if err != nil {
			return nil, err
		}
	}

	day := since.Truncate(24 * time.Hour)
	var out []mail.Message
	for _, msg := range m.Messages {
		if msg.Read {
			continue
		}
		if !msg.ReceivedAt.Before(day) {
			out = append(out, msg.Message)
		}
	}
	return out, nil
}

// Close is a no-op.
func (m *FakeMailbox) Close() error { return nil }

// CallsOfKind returns the recorded call names filtered to kind.
func (m *FakeMailbox) CallsOfKind(kind string) int {
	n := 0
	for _, c := range m.Calls {
		if c == kind {
			n++
		}
	}
	return n
}
