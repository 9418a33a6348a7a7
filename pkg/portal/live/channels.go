// Package live exercises the portal's live-video feature: channel
// discovery, live-stream time tracking against wall clock, historical-day
// verification through the calendar, and bounded-window clip extraction.
package live

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"portalqa/pkg/portal"
	"portalqa/pkg/portal/internal"
)

// Channel is a live-feed channel. Identity is positional: the 1-based
// index into the rendered channel list plus the display name. Channels
// are discovered fresh each run and carry no identity across runs.
type Channel struct {
	Index int
	Name  string
}

func (c Channel) String() string {
	return fmt.Sprintf("#%d %s", c.Index, c.Name)
}

// Channel-list selectors.
const (
	selLiveMenu         = `//p[normalize-space()='Live']`
	selChannelButtonFmt = `//*[@id="root"]/div/div[2]/div/div/div[3]/div/button[%d]`
	selChannelNameFmt   = selChannelButtonFmt + `/div[2]/p`
	selBackToList       = `//button[contains(@aria-label, "back")]`

	// maxChannels bounds the positional scan of the rendered list.
	maxChannels = 50
)

// Discovery enumerates the channels the portal exposes and moves the
// surface between the channel list and individual channel views.
type Discovery struct {
	drv   portal.Driver
	cfg   *portal.Config
	clock internal.Clock
	log   zerolog.Logger
}

// NewDiscovery creates a channel discovery. A nil clock selects the
// system clock.
func NewDiscovery(drv portal.Driver, cfg *portal.Config, clock internal.Clock, log zerolog.Logger) *Discovery {
	if clock == nil {
		clock = internal.MonotonicClock{}
	}
	return &Discovery{drv: drv, cfg: cfg, clock: clock, log: log}
}

// OpenLiveMenu navigates to the live-feed surface.
func (d *Discovery) OpenLiveMenu() error {
	if err := d.drv.WaitVisible(selLiveMenu, d.cfg.WaitTimeout()); err != nil {
		return fmt.Errorf("live menu: %w", err)
	}
	return d.drv.Click(selLiveMenu)
}

// ListChannels scans the rendered channel list and returns (index, name)
// pairs. It fails soft: if the list cannot be located the result is
// empty and the caller decides whether zero channels is fatal.
func (d *Discovery) ListChannels() []Channel {
	var channels []Channel
	for i := 1; i <= maxChannels; i++ {
		sel := fmt.Sprintf(selChannelNameFmt, i)
		if !d.drv.Has(sel) {
			break
		}
		name, err := d.drv.Text(sel)
		if err != nil {
			break
		}
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		channels = append(channels, Channel{Index: i, Name: name})
	}

	if len(channels) == 0 {
		d.log.Warn().Msg("no channels found in rendered list")
	} else {
		d.log.Info().Int("count", len(channels)).Msg("channels discovered")
	}
	return channels
}

// OpenChannel clicks into ch's live view from the channel list. The
// list entry is only reachable from the list itself; callers coming
// from another channel's view go through ReturnToList first.
func (d *Discovery) OpenChannel(ch Channel) error {
	return openChannel(d.drv, d.cfg, d.clock, ch)
}

// ReturnToList leaves a channel's live view and restores the channel
// list. A back control is preferred; when none renders the live menu is
// re-opened, which lands on the list as well.
func (d *Discovery) ReturnToList() error {
	if d.drv.Has(selBackToList) {
		if err := d.drv.Click(selBackToList); err != nil {
			return err
		}
		d.clock.Sleep(d.cfg.StepGap())
		return nil
	}
	return d.OpenLiveMenu()
}

// openChannel is the shared list-to-channel navigation used by
// Discovery, the tracker, and the clip flow.
func openChannel(drv portal.Driver, cfg *portal.Config, clock internal.Clock, ch Channel) error {
	sel := fmt.Sprintf(selChannelButtonFmt, ch.Index)
	if err := drv.WaitVisible(sel, cfg.WaitTimeout()); err != nil {
		return fmt.Errorf("channel %s: %w", ch.Name, err)
	}
	if err := drv.Click(sel); err != nil {
		return err
	}
	clock.Sleep(cfg.StepGap())
	return nil
}
