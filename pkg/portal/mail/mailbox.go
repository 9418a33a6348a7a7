// Package mail implements one-time-code retrieval from a remote mailbox:
// a Mailbox abstraction with an IMAP backend, multipart body extraction,
// and the polling loop that correlates a delivered code with the login
// attempt that requested it.
package mail

import "time"

// Message is a delivered mail message reduced to what code correlation
// needs.
type Message struct {
	// ID identifies the message within its mailbox (IMAP UID).
	ID string

	// ReceivedAt is the server receipt time. Correlation compares this
	// against the code request time; it must come from the mailbox, not
	// from the message headers a sender controls.
	ReceivedAt time.Time

	// Body is the extracted text body (plain text preferred, HTML
	// stripped as fallback).
	Body string
}

// Mailbox is the remote-mailbox collaborator. Access uses a delivery
// address plus an app-level credential, never a primary account password.
type Mailbox interface {
	// MarkAllRead marks every message in the inbox as read. The login
	// protocol calls this before each code request so a code from an
	// earlier run can never be picked up.
	MarkAllRead() error

	// FetchSince returns messages received at or after since, oldest
	// first. Implementations may over-approximate (IMAP SINCE has day
	// resolution); the poller re-checks ReceivedAt exactly.
	FetchSince(since time.Time) ([]Message, error)

	// Close releases the mailbox connection.
	Close() error
}
