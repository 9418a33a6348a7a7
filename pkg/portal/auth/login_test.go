package auth

import (
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portalqa/pkg/portal"
	"portalqa/pkg/portal/internal"
	"portalqa/pkg/portal/mail"
	"portalqa/pkg/portal/testutil"
)

func loginConfig() *portal.Config {
	return &portal.Config{
		PortalURL: "https://portal.example/login",
		Username:  "tester",
		Password:  "secret",

		OTPRetries:               3,
		OTPDelaySeconds:          2,
		OTPCredentialEntryWaitMs: 100,
		OTPButtonTimeoutMs:       1000,
		OTPEmailWaitTimeMs:       1000,
		OTPInputDelayMs:          10,
		OTPVerifyButtonTimeoutMs: 1000,
		OTPLoginCompleteWaitMs:   1000,

		WaitTimeoutSeconds: 1,
	}
}

func loginFixtures(cfg *portal.Config) (*testutil.FakeDriver, *testutil.FakeMailbox, *internal.MockClock, *Protocol) {
	drv := testutil.NewFakeDriver()
	drv.Present[selUsername] = true
	drv.Present[selSendCode] = true
	drv.Present[selVerifyCode] = true

	box := &testutil.FakeMailbox{}
	clk := internal.NewMockClock(time.Time{})
	p := NewProtocol(drv, mail.NewPoller(box, clk, zerolog.Nop()), cfg, clk, zerolog.Nop())
	return drv, box, clk, p
}

func TestLoginHappyPath(t *testing.T) {
	cfg := loginConfig()
	drv, box, clk, p := loginFixtures(cfg)

	// The portal delivers a code when the request control is clicked.
	// The sweep must already have happened by then.
	var sweepsAtRequest int
	drv.ClickHooks[selSendCode] = func() error {
		sweepsAtRequest = box.CallsOfKind("markallread")
		box.Deliver("m1", clk.Now().Add(time.Second), "Your verification code is 135790.")
		return nil
	}
	drv.ClickHooks[selVerifyCode] = func() error {
		drv.CurrentURL = "https://portal.example/dashboard"
		return nil
	}

	require.NoError(t, p.Login())
	assert.Equal(t, StateLoggedIn, p.State())
	assert.Equal(t, 1, sweepsAtRequest, "mailbox must be swept before the code request")

	// Six single-character fills against the code inputs.
	fills := 0
	for _, op := range drv.Ops {
		if op.Kind == "fill" && op.Selector == fmt.Sprintf(selCodeDigitFmt, 1) {
			assert.Equal(t, "1", op.Value)
		}
		if op.Kind == "fill" && len(op.Value) == 1 {
			fills++
		}
	}
	assert.Equal(t, codeLength, fills)
}

func TestLoginRetriesDeliveryThenGivesUp(t *testing.T) {
	cfg := loginConfig()
	drv, box, clk, p := loginFixtures(cfg)

	err := p.Login()
	require.Error(t, err)
	assert.ErrorIs(t, err, portal.ErrNotFound)
	assert.Equal(t, StateFailed, p.State())

	// Three full delivery attempts, each preceded by its own sweep.
	assert.Equal(t, 3, drv.Clicked(selSendCode))
	assert.Equal(t, 3, box.CallsOfKind("markallread"))

	// Each retry waits the configured delay, so three attempts span at
	// least six seconds of waiting.
	assert.GreaterOrEqual(t, clk.Slept(), 6*time.Second)
}

func TestLoginLateCodeSucceedsOnRetry(t *testing.T) {
	cfg := loginConfig()
	drv, box, clk, p := loginFixtures(cfg)

	// First request goes unanswered; the second one delivers.
	requests := 0
	drv.ClickHooks[selSendCode] = func() error {
		requests++
		if requests == 2 {
			box.Deliver("late", clk.Now().Add(time.Second), "Code 246801")
		}
		return nil
	}
	drv.ClickHooks[selVerifyCode] = func() error {
		drv.CurrentURL = "https://portal.example/dashboard"
		return nil
	}

	require.NoError(t, p.Login())
	assert.Equal(t, StateLoggedIn, p.State())
	assert.Equal(t, 2, requests)
	assert.Equal(t, 2, box.CallsOfKind("markallread"))
}

func TestLoginTerminalCredentialRejection(t *testing.T) {
	cfg := loginConfig()
	drv, box, _, p := loginFixtures(cfg)
	drv.Texts[selCredsError] = "Invalid credentials"

	err := p.Login()
	require.Error(t, err)
	assert.ErrorIs(t, err, portal.ErrTerminal)
	assert.Equal(t, StateFailed, p.State())

	// Terminal means terminal: no code request, no mailbox traffic.
	assert.Zero(t, drv.Clicked(selSendCode))
	assert.Zero(t, box.CallsOfKind("markallread"))
}

func TestLoginManualCodeBypassesMailbox(t *testing.T) {
	cfg := loginConfig()
	cfg.ManualOTP = "112233"
	drv, box, _, p := loginFixtures(cfg)
	drv.ClickHooks[selVerifyCode] = func() error {
		drv.CurrentURL = "https://portal.example/dashboard"
		return nil
	}

	require.NoError(t, p.Login())
	assert.Equal(t, StateLoggedIn, p.State())
	assert.Zero(t, box.CallsOfKind("fetchsince"))
}

func TestLoginRejectsMalformedCode(t *testing.T) {
	cfg := loginConfig()
	cfg.ManualOTP = "12345678"
	_, _, _, p := loginFixtures(cfg)

	err := p.Login()
	require.Error(t, err)
	assert.Equal(t, StateFailed, p.State())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "Idle", StateIdle.String())
	assert.Equal(t, "LoggedIn", StateLoggedIn.String())
	assert.Equal(t, "Unknown", State(99).String())
}
