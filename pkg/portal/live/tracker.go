package live

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"portalqa/pkg/portal"
	"portalqa/pkg/portal/internal"
)

// StreamTimeSample compares the portal's reported live-stream elapsed
// time against wall clock. Drift is recorded for the operator, never
// enforced: a drifting stream does not fail the run.
type StreamTimeSample struct {
	Channel       Channel
	PortalElapsed time.Duration
	WallElapsed   time.Duration
	Drift         time.Duration
}

// Live-view selectors.
const (
	selStartLive     = `//button[normalize-space()='Start from Live']`
	selTimeIndicator = `//*[contains(@class, "time-indicator")]`
)

// evalVideoTime reads the playhead of the live video element, in whole
// seconds, or -1 when the element is absent.
const evalVideoTime = `() => { const v = document.querySelector('video'); return v ? Math.floor(v.currentTime) : -1; }`

// indicatorPoll is the recheck interval while waiting for the elapsed
// indicator to appear (the stream may not have started yet).
const indicatorPoll = time.Second

// Tracker samples a channel's live feed.
type Tracker struct {
	drv   portal.Driver
	cfg   *portal.Config
	clock internal.Clock
	log   zerolog.Logger
}

// NewTracker creates a live time tracker. A nil clock selects the system
// clock.
func NewTracker(drv portal.Driver, cfg *portal.Config, clock internal.Clock, log zerolog.Logger) *Tracker {
	if clock == nil {
		clock = internal.MonotonicClock{}
	}
	return &Tracker{drv: drv, cfg: cfg, clock: clock, log: log}
}

// Track opens the channel, starts the live view, and samples the
// portal's elapsed indicator against wall clock measured from live-view
// start. When the indicator is absent (stream not yet started) it waits
// up to the configured timeout before giving up with ErrNotFound.
func (t *Tracker) Track(ch Channel) (StreamTimeSample, error) {
	sample := StreamTimeSample{Channel: ch}

	if err := openChannel(t.drv, t.cfg, t.clock, ch); err != nil {
		return sample, err
	}
	if t.drv.Has(selStartLive) {
		if err := t.drv.Click(selStartLive); err != nil {
			return sample, err
		}
	}

	start := t.clock.Now()
	deadline := start.Add(t.cfg.WaitTimeout())

	for {
		if elapsed, ok := t.readElapsed(); ok {
			sample.PortalElapsed = elapsed
			sample.WallElapsed = t.clock.Now().Sub(start)
			sample.Drift = absDur(sample.PortalElapsed - sample.WallElapsed)
			t.log.Info().
				Str("channel", ch.Name).
				Dur("portal_elapsed", sample.PortalElapsed).
				Dur("wall_elapsed", sample.WallElapsed).
				Dur("drift", sample.Drift).
				Msg("stream time sampled")
			return sample, nil
		}
		if t.clock.Now().Add(indicatorPoll).After(deadline) {
			return sample, fmt.Errorf("elapsed indicator for channel %s: %w", ch.Name, portal.ErrNotFound)
		}
		t.clock.Sleep(indicatorPoll)
	}
}

// readElapsed tries the rendered indicator first, then falls back to the
// video element's playhead.
func (t *Tracker) readElapsed() (time.Duration, bool) {
	if s, err := t.drv.Text(selTimeIndicator); err == nil {
		if d, perr := ParseClock(s); perr == nil {
			return d, true
		}
	}
	if out, err := t.drv.Eval(evalVideoTime); err == nil {
		if secs, perr := strconv.ParseFloat(strings.Trim(out, `"`), 64); perr == nil && secs >= 0 {
			return time.Duration(secs) * time.Second, true
		}
	}
	return 0, false
}

// ParseClock parses a rendered elapsed indicator such as "4:05",
// "1:02:03", or "4:05 / 6:00:00" (the part before the slash is the
// current position).
func ParseClock(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, "/"); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("unrecognized clock format %q", s)
	}

	var total time.Duration
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 {
			return 0, fmt.Errorf("unrecognized clock format %q", s)
		}
		total = total*60 + time.Duration(n)*time.Second
	}
	return total, nil
}

func absDur(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
