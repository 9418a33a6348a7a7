package live

import (
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portalqa/pkg/portal"
	"portalqa/pkg/portal/internal"
	"portalqa/pkg/portal/testutil"
)

func TestTrackSamplesIndicator(t *testing.T) {
	cfg := liveConfig()
	drv := testutil.NewFakeDriver()
	drv.Present[fmt.Sprintf(selChannelButtonFmt, 1)] = true
	drv.Texts[selTimeIndicator] = "0:05 / 6:00:00"

	clk := internal.NewMockClock(time.Time{})
	tr := NewTracker(drv, cfg, clk, zerolog.Nop())

	sample, err := tr.Track(Channel{Index: 1, Name: "North Gate"})
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, sample.PortalElapsed)
	// Drift is reported, never enforced.
	assert.Equal(t, absDur(sample.PortalElapsed-sample.WallElapsed), sample.Drift)
}

func TestTrackFallsBackToVideoPlayhead(t *testing.T) {
	cfg := liveConfig()
	drv := testutil.NewFakeDriver()
	drv.Present[fmt.Sprintf(selChannelButtonFmt, 2)] = true
	drv.EvalOut["currentTime"] = "42"

	clk := internal.NewMockClock(time.Time{})
	tr := NewTracker(drv, cfg, clk, zerolog.Nop())

	sample, err := tr.Track(Channel{Index: 2, Name: "Warehouse"})
	require.NoError(t, err)
	assert.Equal(t, 42*time.Second, sample.PortalElapsed)
}

func TestTrackClicksStartFromLiveWhenOffered(t *testing.T) {
	cfg := liveConfig()
	drv := testutil.NewFakeDriver()
	drv.Present[fmt.Sprintf(selChannelButtonFmt, 1)] = true
	drv.Present[selStartLive] = true
	drv.EvalOut["currentTime"] = "1"

	clk := internal.NewMockClock(time.Time{})
	tr := NewTracker(drv, cfg, clk, zerolog.Nop())

	_, err := tr.Track(Channel{Index: 1, Name: "North Gate"})
	require.NoError(t, err)
	assert.Equal(t, 1, drv.Clicked(selStartLive))
}

func TestTrackTimesOutWithoutIndicator(t *testing.T) {
	cfg := liveConfig()
	drv := testutil.NewFakeDriver()
	drv.Present[fmt.Sprintf(selChannelButtonFmt, 1)] = true
	drv.EvalOut["currentTime"] = "-1" // video element absent

	clk := internal.NewMockClock(time.Time{})
	tr := NewTracker(drv, cfg, clk, zerolog.Nop())

	_, err := tr.Track(Channel{Index: 1, Name: "North Gate"})
	require.Error(t, err)
	assert.ErrorIs(t, err, portal.ErrNotFound)
}

func TestParseClock(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
	}{
		{"0:05", 5 * time.Second},
		{"4:05", 4*time.Minute + 5*time.Second},
		{"1:02:03", time.Hour + 2*time.Minute + 3*time.Second},
		{"4:05 / 6:00:00", 4*time.Minute + 5*time.Second},
		{"  12:00  ", 12 * time.Minute},
	}
	for _, c := range cases {
		got, err := ParseClock(c.in)
		require.NoError(t, err, c.in)
		assert.Equal(t, c.want, got, c.in)
	}

	for _, bad := range []string{"", "12", "1:2:3:4", "a:05", "-1:00"} {
		_, err := ParseClock(bad)
		assert.Error(t, err, bad)
	}
}
