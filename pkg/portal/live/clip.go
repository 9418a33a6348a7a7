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

// ClipDuration is the fixed extraction window. The portal's cropping
// tool exports exactly this much video regardless of configuration;
// there is deliberately no knob for it.
const ClipDuration = 5 * time.Minute

// ClipRequest describes one extraction: a window of ClipDuration
// starting at StartOffset into the channel's stream.
type ClipRequest struct {
	Channel     Channel
	StartOffset time.Duration
	Duration    time.Duration
}

// Clip-tool selectors.
const (
	selScissors      = `//button[contains(@aria-label, "crop")]`
	selStartCropping = `//button[normalize-space()='Start Cropping']`
	selExportClip    = `//button[normalize-space()='Export']`
	selPublishDialog = `//div[contains(@class, "publish-dialog")]`
	selClipTitle     = `input[name="clipTitle"]`
	selClipDesc      = `textarea[name="clipDescription"]`
	selSaveClip      = `//button[normalize-space()='Save']`
	selClipSaved     = `//*[contains(., "Clip saved")]`
)

// evalPlayhead reads the current playhead position in whole seconds.
const evalPlayhead = `() => { const v = document.querySelector('video'); return v ? Math.floor(v.currentTime) : -1; }`

// evalSetWindowFmt drags the cropping window to the requested bounds by
// driving the tool's range inputs. Both ends dispatch the events the
// portal's framework listens for.
const evalSetWindowFmt = `() => {
	const inputs = document.querySelectorAll('input[type="range"]');
	if (inputs.length < 2) { return false; }
	const setter = Object.getOwnPropertyDescriptor(window.HTMLInputElement.prototype, 'value').set;
	const apply = (el, v) => {
		setter.call(el, String(v));
		el.dispatchEvent(new Event('input', { bubbles: true }));
		el.dispatchEvent(new Event('change', { bubbles: true }));
	};
	apply(inputs[0], %d);
	apply(inputs[1], %d);
	return true;
}`

// Extractor drives the portal's clip-extraction tool.
type Extractor struct {
	drv   portal.Driver
	cfg   *portal.Config
	clock internal.Clock
	log   zerolog.Logger
}

// NewExtractor creates a clip extractor. A nil clock selects the system
// clock.
func NewExtractor(drv portal.Driver, cfg *portal.Config, clock internal.Clock, log zerolog.Logger) *Extractor {
	if clock == nil {
		clock = internal.MonotonicClock{}
	}
	return &Extractor{drv: drv, cfg: cfg, clock: clock, log: log}
}

// BuildRequest anchors an extraction window at the channel's current
// playhead. The window always spans ClipDuration; when the playhead sits
// inside the first five minutes the window starts at zero.
func (e *Extractor) BuildRequest(ch Channel) (ClipRequest, error) {
	out, err := e.drv.Eval(evalPlayhead)
	if err != nil {
		return ClipRequest{}, fmt.Errorf("read playhead: %w", err)
	}
	secs, perr := strconv.ParseFloat(strings.Trim(out, `"`), 64)
	if perr != nil || secs < 0 {
		return ClipRequest{}, fmt.Errorf("no playable video on channel %s: %w", ch.Name, portal.ErrNotFound)
	}

	start := time.Duration(secs)*time.Second - ClipDuration
	if start < 0 {
		start = 0
	}
	return ClipRequest{Channel: ch, StartOffset: start, Duration: ClipDuration}, nil
}

// Extract runs the full extraction: open the cropping tool, set the
// window, export, and publish with generated metadata. It returns the
// title the clip was saved under.
func (e *Extractor) Extract(req ClipRequest) (string, error) {
	wait := e.cfg.WaitTimeout()

	if err := e.drv.WaitVisible(selScissors, wait); err != nil {
		return "", fmt.Errorf("crop control: %w", err)
	}
	if err := e.drv.Click(selScissors); err != nil {
		return "", err
	}
	if err := e.drv.WaitVisible(selStartCropping, wait); err != nil {
		return "", fmt.Errorf("cropping tool: %w", err)
	}
	if err := e.drv.Click(selStartCropping); err != nil {
		return "", err
	}
	e.clock.Sleep(e.cfg.StepGap())

	if err := e.setWindow(req); err != nil {
		return "", err
	}

	if err := e.drv.WaitVisible(selExportClip, wait); err != nil {
		return "", fmt.Errorf("export control: %w", err)
	}
	if err := e.drv.Click(selExportClip); err != nil {
		return "", err
	}
	// Export renders the clip server side before the publish dialog
	// appears.
	e.clock.Sleep(e.cfg.ClipExportWait())

	title, err := e.publish(req)
	if err != nil {
		return "", err
	}
	e.log.Info().
		Str("channel", req.Channel.Name).
		Str("title", title).
		Dur("start_offset", req.StartOffset).
		Dur("duration", req.Duration).
		Msg("clip extracted")
	return title, nil
}

func (e *Extractor) setWindow(req ClipRequest) error {
	startSec := int(req.StartOffset / time.Second)
	endSec := int((req.StartOffset + req.Duration) / time.Second)

	js := fmt.Sprintf(evalSetWindowFmt, startSec, endSec)
	out, err := e.drv.Eval(js)
	if err != nil {
		return fmt.Errorf("set clip window: %w", err)
	}
	if strings.TrimSpace(out) != "true" {
		return fmt.Errorf("cropping sliders: %w", portal.ErrNotFound)
	}
	return nil
}

// publish fills the publish dialog with generated metadata and saves.
// The title carries a clock-based suffix so repeated runs never collide.
func (e *Extractor) publish(req ClipRequest) (string, error) {
	wait := e.cfg.WaitTimeout()

	if err := e.drv.WaitVisible(selPublishDialog, wait); err != nil {
		return "", fmt.Errorf("publish dialog: %w", err)
	}

	stamp := e.clock.Now().Format("20060102-150405")
	title := fmt.Sprintf("clip-%s-%s", sanitizeName(req.Channel.Name), stamp)
	desc := fmt.Sprintf("Automated clip of %s starting at %s", req.Channel.Name, req.StartOffset)

	if err := e.drv.Fill(selClipTitle, title); err != nil {
		return "", err
	}
	if err := e.drv.Fill(selClipDesc, desc); err != nil {
		return "", err
	}
	if err := e.drv.Click(selSaveClip); err != nil {
		return "", err
	}

	if err := e.drv.WaitVisible(selClipSaved, wait); err != nil {
		return "", fmt.Errorf("save confirmation: %w", err)
	}
	return title, nil
}

// sanitizeName flattens a channel name into a title-safe token.
func sanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == ' ', r == '-', r == '_':
			return '-'
		default:
			return -1
		}
	}, strings.TrimSpace(name))
}
