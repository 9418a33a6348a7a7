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

// VerifyState is the historical-verification state.
//
//	LiveView -> CalendarOpen -> DateSelected -> RecordFound | RecordAbsent -> ReturnedToLive
type VerifyState int

const (
	// VerifyLiveView is the state before and after a verification pass.
	VerifyLiveView VerifyState = iota
	// VerifyCalendarOpen means the calendar control is open.
	VerifyCalendarOpen
	// VerifyDateSelected means the target day was picked.
	VerifyDateSelected
	// VerifyRecordFound means a playable recording exists for the day.
	VerifyRecordFound
	// VerifyRecordAbsent means the day has no recording.
	VerifyRecordAbsent
	// VerifyReturnedToLive means the view was restored to live.
	VerifyReturnedToLive
)

// String returns a string representation of the VerifyState.
func (s VerifyState) String() string {
	switch s {
	case VerifyLiveView:
		return "LiveView"
	case VerifyCalendarOpen:
		return "CalendarOpen"
	case VerifyDateSelected:
		return "DateSelected"
	case VerifyRecordFound:
		return "RecordFound"
	case VerifyRecordAbsent:
		return "RecordAbsent"
	case VerifyReturnedToLive:
		return "ReturnedToLive"
	default:
		return "Unknown"
	}
}

// HistoricalStreamRecord is the outcome of checking one channel for a
// recording on a past day. An absent recording is a finding, not an
// error.
type HistoricalStreamRecord struct {
	Channel    Channel
	TargetDate time.Time
	Found      bool
	Duration   time.Duration
}

// Historical-view selectors.
const (
	selCalendarButton = `//button[contains(@aria-label, "calendar")]`
	selCalendarInput  = `input[type="date"]`
	selGetStream      = `//button[normalize-space()='Get Stream']`
	selGoLive         = `//button[normalize-space()='Go Live']`
	selGoLiveAlt      = `//button[normalize-space()='Back to Live']`
)

// evalSelectDate assigns the date input and dispatches the events the
// portal's framework listens for. Setting .value alone does not update
// the framework's state.
const evalSelectDateFmt = `() => {
	const el = document.querySelector('input[type="date"]');
	if (!el) { return false; }
	const setter = Object.getOwnPropertyDescriptor(window.HTMLInputElement.prototype, 'value').set;
	setter.call(el, %q);
	el.dispatchEvent(new Event('input', { bubbles: true }));
	el.dispatchEvent(new Event('change', { bubbles: true }));
	return true;
}`

// recordPoll is the recheck interval while waiting for the historical
// player to expose a duration.
const recordPoll = time.Second

// Verifier checks past days for stream recordings. Every verification
// pass ends back on the live view, whether it found a recording, found
// none, or failed partway.
type Verifier struct {
	drv   portal.Driver
	cfg   *portal.Config
	clock internal.Clock
	log   zerolog.Logger
	state VerifyState
}

// NewVerifier creates a historical-stream verifier. A nil clock selects
// the system clock.
func NewVerifier(drv portal.Driver, cfg *portal.Config, clock internal.Clock, log zerolog.Logger) *Verifier {
	if clock == nil {
		clock = internal.MonotonicClock{}
	}
	return &Verifier{drv: drv, cfg: cfg, clock: clock, log: log, state: VerifyLiveView}
}

// State returns the current verification state.
func (v *Verifier) State() VerifyState { return v.state }

// Verify checks whether the channel has a recording daysBack days before
// today. It opens the calendar, selects the day, and inspects the
// historical player. The return to live view runs on every exit path,
// including errors: a later caller must always find the surface in live
// mode.
func (v *Verifier) Verify(ch Channel, daysBack int) (rec HistoricalStreamRecord, err error) {
	target := v.clock.Now().AddDate(0, 0, -daysBack)
	rec = HistoricalStreamRecord{Channel: ch, TargetDate: target}

	defer func() {
		if rerr := v.returnToLive(); rerr != nil {
			v.log.Warn().Err(rerr).Msg("could not restore live view")
			if err == nil {
				err = rerr
			}
		}
	}()

	if err = v.openCalendar(); err != nil {
		return rec, err
	}
	if err = v.selectDate(target); err != nil {
		return rec, err
	}

	rec.Found, rec.Duration, err = v.inspectRecord()
	if err != nil {
		return rec, err
	}

	if rec.Found {
		v.state = VerifyRecordFound
		v.log.Info().
			Str("channel", ch.Name).
			Str("date", target.Format("2006-01-02")).
			Dur("duration", rec.Duration).
			Msg("historical recording found")
	} else {
		v.state = VerifyRecordAbsent
		v.log.Info().
			Str("channel", ch.Name).
			Str("date", target.Format("2006-01-02")).
			Msg("no recording for day")
	}
	return rec, nil
}

func (v *Verifier) openCalendar() error {
	if err := v.drv.WaitVisible(selCalendarButton, v.cfg.WaitTimeout()); err != nil {
		return fmt.Errorf("calendar control: %w", err)
	}
	if err := v.drv.Click(selCalendarButton); err != nil {
		return err
	}
	v.state = VerifyCalendarOpen
	v.clock.Sleep(v.cfg.StepGap())
	return nil
}

func (v *Verifier) selectDate(day time.Time) error {
	if err := v.drv.WaitVisible(selCalendarInput, v.cfg.WaitTimeout()); err != nil {
		return fmt.Errorf("date input: %w", err)
	}
	js := fmt.Sprintf(evalSelectDateFmt, day.Format("2006-01-02"))
	out, err := v.drv.Eval(js)
	if err != nil {
		return fmt.Errorf("select date: %w", err)
	}
	if strings.TrimSpace(out) != "true" {
		return fmt.Errorf("date input vanished while selecting %s: %w", day.Format("2006-01-02"), portal.ErrNotFound)
	}
	v.state = VerifyDateSelected
	v.clock.Sleep(v.cfg.StepGap())

	// Portals that encode the selected day in the URL give a second
	// confirmation signal. Absence of the token is logged, not fatal.
	token := day.Format("2006-01-02")
	if url := v.drv.URL(); url != "" && !strings.Contains(url, token) {
		v.log.Warn().Str("url", url).Str("date", token).Msg("selected date not reflected in URL")
	}
	return nil
}

// inspectRecord requests the day's stream and polls the historical
// player for a duration. A player that never materializes means no
// recording exists for the day.
func (v *Verifier) inspectRecord() (bool, time.Duration, error) {
	if !v.drv.Has(selGetStream) {
		return false, 0, nil
	}
	if err := v.drv.Click(selGetStream); err != nil {
		return false, 0, err
	}

	deadline := v.clock.Now().Add(v.cfg.WaitTimeout())
	for {
		if out, err := v.drv.Eval(`() => { const v = document.querySelector('video'); return v && isFinite(v.duration) ? Math.floor(v.duration) : -1; }`); err == nil {
			if secs, perr := strconv.ParseFloat(strings.Trim(out, `"`), 64); perr == nil && secs > 0 {
				return true, time.Duration(secs) * time.Second, nil
			}
		}
		if v.clock.Now().Add(recordPoll).After(deadline) {
			return false, 0, nil
		}
		v.clock.Sleep(recordPoll)
	}
}

// returnToLive restores the live view, trying the primary control first
// and a fallback label second.
func (v *Verifier) returnToLive() error {
	for _, sel := range []string{selGoLive, selGoLiveAlt} {
		if !v.drv.Has(sel) {
			continue
		}
		if err := v.drv.Click(sel); err != nil {
			return err
		}
		v.state = VerifyReturnedToLive
		v.clock.Sleep(v.cfg.StepGap())
		return nil
	}
	// Neither control rendered. The surface may already be live, for
	// example when the failure happened before the calendar opened.
	if v.state == VerifyLiveView {
		return nil
	}
	return fmt.Errorf("live-view control: %w", portal.ErrNotFound)
}
