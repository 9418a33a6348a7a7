package mail

import (
	"fmt"
	"regexp"
	"time"

	"github.com/rs/zerolog"

	"portalqa/pkg/portal"
	"portalqa/pkg/portal/internal"
)

// Code is a one-time code extracted from a delivered message. It is
// consumed exactly once by the login protocol.
type Code struct {
	Value      string
	ReceivedAt time.Time
	MessageID  string
}

// codePattern matches the 6-digit codes the portal sends.
var codePattern = regexp.MustCompile(`\b\d{6}\b`)

// Poller watches a Mailbox for the code answering a specific request.
type Poller struct {
	box   Mailbox
	clock internal.Clock
	log   zerolog.Logger
}

// NewPoller creates a Poller. A nil clock selects the system clock.
func NewPoller(box Mailbox, clock internal.Clock, log zerolog.Logger) *Poller {
	if clock == nil {
		clock = internal.MonotonicClock{}
	}
	return &Poller{box: box, clock: clock, log: log}
}

// MarkAllRead sweeps the inbox. The caller must do this before
// triggering a new code request; sweeping afterwards reopens the
// stale-code race.
func (p *Poller) MarkAllRead() error {
	return p.box.MarkAllRead()
}

// FetchCodeAfter polls the mailbox at interval until a message received
// at or after requestTime carries a code, or timeout elapses
// (ErrNotFound). Messages older than requestTime are stale and never
// accepted, regardless of content. Transient mailbox errors are retried
// within the remaining budget rather than surfaced.
func (p *Poller) FetchCodeAfter(requestTime time.Time, timeout, interval time.Duration) (Code, error) {
	if interval <= 0 {
		interval = time.Second
	}
	deadline := p.clock.Now().Add(timeout)

	for {
		msgs, err := p.box.FetchSince(requestTime)
		if err != nil {
			p.log.Warn().Err(err).Msg("mailbox fetch failed, retrying within budget")
		}

		for _, m := range msgs {
			if m.ReceivedAt.Before(requestTime) {
				p.log.Debug().
					Str("message", m.ID).
					Time("received_at", m.ReceivedAt).
					Msgf("rejecting message older than request: %v", portal.ErrStale)
				continue
			}
			if v := codePattern.FindString(m.Body); v != "" {
				p.log.Info().Str("message", m.ID).Msg("code received")
				return Code{Value: v, ReceivedAt: m.ReceivedAt, MessageID: m.ID}, nil
			}
		}

		if p.clock.Now().Add(interval).After(deadline) {
			return Code{}, fmt.Errorf("no code delivered after %s: %w",
				requestTime.Format(time.RFC3339), portal.ErrNotFound)
		}
		p.clock.Sleep(interval)
	}
}
