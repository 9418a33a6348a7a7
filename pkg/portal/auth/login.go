// Package auth implements the OTP login protocol: credential entry,
// code-delivery triggering, mailbox correlation, code submission, and the
// retry loop binding them together.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"portalqa/pkg/portal"
	"portalqa/pkg/portal/internal"
	"portalqa/pkg/portal/mail"
)

// State is the login protocol state.
//
//	CredentialsEntered -> CodeRequested -> CodeReceived -> Submitted -> LoggedIn | Failed
type State int

const (
	// StateIdle is the state before Login is called.
	StateIdle State = iota
	// StateCredentialsEntered means username and password were submitted.
	StateCredentialsEntered
	// StateCodeRequested means code delivery was triggered and the
	// request timestamp recorded.
	StateCodeRequested
	// StateCodeReceived means a non-stale code was obtained.
	StateCodeReceived
	// StateSubmitted means the code was entered and verification
	// triggered.
	StateSubmitted
	// StateLoggedIn is the success terminal state.
	StateLoggedIn
	// StateFailed is the failure terminal state.
	StateFailed
)

// String returns a string representation of the State.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateCredentialsEntered:
		return "CredentialsEntered"
	case StateCodeRequested:
		return "CodeRequested"
	case StateCodeReceived:
		return "CodeReceived"
	case StateSubmitted:
		return "Submitted"
	case StateLoggedIn:
		return "LoggedIn"
	case StateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Attempt tracks one pass through the retry loop. RequestTime is stamped
// at the instant delivery is triggered; a code received before it is
// stale on every attempt.
type Attempt struct {
	RequestTime time.Time
	Retry       int
	MaxRetries  int
	RetryDelay  time.Duration
}

// Portal selectors for the login flow.
const (
	selUsername    = "#name"
	selPassword    = "#password"
	selLoginButton = `button[type="submit"]`
	selSendCode    = `//button[contains(., "OTP")]`
	selVerifyCode  = `//button[normalize-space()='Verify OTP']`
	selDashboard   = `//p[normalize-space()='Circles']`
	selCredsError  = `//*[contains(., "Invalid credentials")]`

	// selCodeDigitFmt addresses one of the six single-character code
	// inputs, 1-based.
	selCodeDigitFmt = `input[aria-label="Please enter OTP character %d"]`

	codeLength = 6
)

// loginCompletePoll is the recheck interval while waiting for the
// login-complete signal.
const loginCompletePoll = 500 * time.Millisecond

// Protocol drives the OTP login state machine against the portal.
type Protocol struct {
	drv    portal.Driver
	poller *mail.Poller
	cfg    *portal.Config
	clock  internal.Clock
	log    zerolog.Logger
	state  State
}

// NewProtocol creates a login protocol. A nil clock selects the system
// clock.
func NewProtocol(drv portal.Driver, poller *mail.Poller, cfg *portal.Config, clock internal.Clock, log zerolog.Logger) *Protocol {
	if clock == nil {
		clock = internal.MonotonicClock{}
	}
	return &Protocol{drv: drv, poller: poller, cfg: cfg, clock: clock, log: log, state: StateIdle}
}

// State returns the current protocol state.
func (p *Protocol) State() State { return p.state }

// Login runs the full protocol. nil means logged in. A terminal
// credential rejection returns ErrTerminal without retrying; an
// exhausted delivery budget returns ErrNotFound. Each delivery retry
// re-marks the mailbox read and re-stamps the request time, so a code
// from an earlier attempt can never satisfy a later one.
func (p *Protocol) Login() error {
	if err := p.enterCredentials(); err != nil {
		p.state = StateFailed
		return err
	}

	attempt := Attempt{
		MaxRetries: p.cfg.OTPRetries,
		RetryDelay: p.cfg.OTPDelay(),
	}

	for attempt.Retry = 0; attempt.Retry < attempt.MaxRetries; attempt.Retry++ {
		code, err := p.requestCode(&attempt)
		if errors.Is(err, portal.ErrNotFound) {
			p.log.Warn().
				Int("attempt", attempt.Retry+1).
				Int("max", attempt.MaxRetries).
				Msg("no code delivered, retrying")
			p.clock.Sleep(attempt.RetryDelay)
			continue
		}
		if err != nil {
			p.state = StateFailed
			return err
		}
		p.state = StateCodeReceived

		if err := p.submitCode(code); err != nil {
			p.state = StateFailed
			return err
		}
		p.state = StateSubmitted

		if err := p.awaitLoginComplete(); err != nil {
			p.state = StateFailed
			return err
		}
		p.state = StateLoggedIn
		p.log.Info().Msg("login complete")
		return nil
	}

	p.state = StateFailed
	return fmt.Errorf("code not delivered after %d attempts: %w", attempt.MaxRetries, portal.ErrNotFound)
}

// enterCredentials opens the portal, submits username and password, and
// waits for the code-request control to appear. An explicit credential
// rejection is terminal.
func (p *Protocol) enterCredentials() error {
	if !strings.Contains(p.drv.URL(), p.cfg.PortalURL) {
		if err := p.drv.Navigate(p.cfg.PortalURL); err != nil {
			return fmt.Errorf("open portal: %w", err)
		}
	}

	wait := p.cfg.WaitTimeout()
	if err := p.drv.WaitVisible(selUsername, wait); err != nil {
		return fmt.Errorf("login form: %w", err)
	}
	if err := p.drv.Fill(selUsername, p.cfg.Username); err != nil {
		return err
	}
	if err := p.drv.Fill(selPassword, p.cfg.Password); err != nil {
		return err
	}
	if err := p.drv.Click(selLoginButton); err != nil {
		return fmt.Errorf("submit credentials: %w", err)
	}
	p.state = StateCredentialsEntered
	p.log.Info().Msg("credentials entered")

	p.clock.Sleep(p.cfg.OTPCredentialEntryWait())

	if p.drv.Has(selCredsError) {
		return fmt.Errorf("credentials rejected by portal: %w", portal.ErrTerminal)
	}
	if err := p.drv.WaitVisible(selSendCode, p.cfg.OTPButtonTimeout()); err != nil {
		return fmt.Errorf("code-request control: %w", err)
	}
	return nil
}

// requestCode performs one delivery attempt: sweep the mailbox, trigger
// delivery, stamp the request time, then poll. The sweep MUST precede
// the trigger; reversing the order lets a code from a previous run
// answer this request.
func (p *Protocol) requestCode(attempt *Attempt) (mail.Code, error) {
	if err := p.poller.MarkAllRead(); err != nil {
		// Not fatal: the receipt-time check still rejects old codes.
		p.log.Warn().Err(err).Msg("could not sweep mailbox before request")
	}

	if err := p.drv.Click(selSendCode); err != nil {
		return mail.Code{}, fmt.Errorf("trigger code delivery: %w", err)
	}
	attempt.RequestTime = p.clock.Now()
	p.state = StateCodeRequested
	p.log.Info().Time("request_time", attempt.RequestTime).Msg("code requested")

	if manual := strings.TrimSpace(p.cfg.ManualOTP); manual != "" {
		p.log.Info().Msg("using manually supplied code")
		return mail.Code{Value: manual, ReceivedAt: attempt.RequestTime}, nil
	}

	return p.poller.FetchCodeAfter(attempt.RequestTime, p.cfg.OTPEmailWait(), time.Second)
}

// submitCode types the code one character at a time (fast input gets
// dropped by the portal's per-character inputs) and triggers
// verification.
func (p *Protocol) submitCode(code mail.Code) error {
	if len(code.Value) != codeLength {
		return fmt.Errorf("code %q has %d characters, want %d", code.Value, len(code.Value), codeLength)
	}
	for i, r := range code.Value {
		sel := fmt.Sprintf(selCodeDigitFmt, i+1)
		if err := p.drv.Fill(sel, string(r)); err != nil {
			return fmt.Errorf("enter code character %d: %w", i+1, err)
		}
		p.clock.Sleep(p.cfg.OTPInputDelay())
	}

	if err := p.drv.WaitVisible(selVerifyCode, p.cfg.OTPVerifyButtonTimeout()); err != nil {
		return fmt.Errorf("verify control: %w", err)
	}
	if err := p.drv.Click(selVerifyCode); err != nil {
		return fmt.Errorf("verify code: %w", err)
	}
	return nil
}

// awaitLoginComplete waits for either a navigation away from the login
// page or the dashboard marker, within the configured bound.
func (p *Protocol) awaitLoginComplete() error {
	deadline := p.clock.Now().Add(p.cfg.OTPLoginCompleteWait())
	for {
		if url := p.drv.URL(); url != "" && !strings.Contains(url, "/login") {
			return nil
		}
		if p.drv.Has(selDashboard) {
			return nil
		}
		if p.clock.Now().Add(loginCompletePoll).After(deadline) {
			return fmt.Errorf("login-complete signal: %w", portal.ErrNotFound)
		}
		p.clock.Sleep(loginCompletePoll)
	}
}
