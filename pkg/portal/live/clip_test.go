package live

import (
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portalqa/pkg/portal"
	"portalqa/pkg/portal/internal"
	"portalqa/pkg/portal/testutil"
)

func clipFixtures() (*testutil.FakeDriver, *internal.MockClock, *Extractor) {
	drv := testutil.NewFakeDriver()
	for _, sel := range []string{
		selScissors, selStartCropping, selExportClip,
		selPublishDialog, selClipSaved,
	} {
		drv.Present[sel] = true
	}
	drv.EvalOut[`type="range"`] = "true"

	clk := internal.NewMockClock(time.Time{})
	return drv, clk, NewExtractor(drv, liveConfig(), clk, zerolog.Nop())
}

func TestBuildRequestAnchorsAtPlayhead(t *testing.T) {
	drv, _, e := clipFixtures()
	drv.EvalOut["currentTime"] = "700"

	req, err := e.BuildRequest(Channel{Index: 1, Name: "North Gate"})
	require.NoError(t, err)
	assert.Equal(t, 400*time.Second, req.StartOffset)
	assert.Equal(t, ClipDuration, req.Duration)
}

func TestBuildRequestClampsToStreamStart(t *testing.T) {
	drv, _, e := clipFixtures()
	drv.EvalOut["currentTime"] = "100"

	req, err := e.BuildRequest(Channel{Index: 1, Name: "North Gate"})
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), req.StartOffset)
	assert.Equal(t, ClipDuration, req.Duration)
}

func TestBuildRequestWithoutVideo(t *testing.T) {
	drv, _, e := clipFixtures()
	drv.EvalOut["currentTime"] = "-1"

	_, err := e.BuildRequest(Channel{Index: 1, Name: "North Gate"})
	require.Error(t, err)
	assert.ErrorIs(t, err, portal.ErrNotFound)
}

func TestExtractDrivesFixedWindow(t *testing.T) {
	drv, _, e := clipFixtures()

	req := ClipRequest{
		Channel:     Channel{Index: 1, Name: "North Gate"},
		StartOffset: 400 * time.Second,
		Duration:    ClipDuration,
	}
	title, err := e.Extract(req)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(title, "clip-North-Gate-"), title)
	assert.Equal(t, 1, drv.Clicked(selScissors))
	assert.Equal(t, 1, drv.Clicked(selStartCropping))
	assert.Equal(t, 1, drv.Clicked(selExportClip))
	assert.Equal(t, 1, drv.Clicked(selSaveClip))

	// The window script receives the absolute bounds of the five-minute
	// window, whatever the configuration says.
	var window string
	for _, op := range drv.Ops {
		if op.Kind == "eval" && strings.Contains(op.Value, "range") {
			window = op.Value
		}
	}
	require.NotEmpty(t, window)
	assert.Contains(t, window, "apply(inputs[0], 400)")
	assert.Contains(t, window, "apply(inputs[1], 700)")

	// The publish dialog gets the generated metadata.
	var filledTitle, filledDesc string
	for _, op := range drv.Ops {
		if op.Kind == "fill" && op.Selector == selClipTitle {
			filledTitle = op.Value
		}
		if op.Kind == "fill" && op.Selector == selClipDesc {
			filledDesc = op.Value
		}
	}
	assert.Equal(t, title, filledTitle)
	assert.Contains(t, filledDesc, "North Gate")
}

func TestExtractFailsWhenSlidersMissing(t *testing.T) {
	drv, _, e := clipFixtures()
	drv.EvalOut[`type="range"`] = "false"

	_, err := e.Extract(ClipRequest{
		Channel:     Channel{Index: 1, Name: "North Gate"},
		StartOffset: 0,
		Duration:    ClipDuration,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, portal.ErrNotFound)
}

func TestClipDurationIsFiveMinutes(t *testing.T) {
	assert.Equal(t, 5*time.Minute, ClipDuration)
}

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "", sanitizeName("!!!"))
	assert.Equal(t, "North-Gate", sanitizeName("North Gate"))
	assert.Equal(t, "Cam-01", sanitizeName("Cam #01"))
}
