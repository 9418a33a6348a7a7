package main

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portalqa/pkg/portal"
	"portalqa/pkg/portal/testutil"
)

// Selectors of the live surface, as rendered by the portal.
const (
	liveMenuSel      = `//p[normalize-space()='Live']`
	channelButtonSel = `//*[@id="root"]/div/div[2]/div/div/div[3]/div/button[%d]`
	channelNameSel   = channelButtonSel + `/div[2]/p`
	indicatorSel     = `//*[contains(@class, "time-indicator")]`
	calendarSel      = `//button[contains(@aria-label, "calendar")]`
	dateInputSel     = `input[type="date"]`
	getStreamSel     = `//button[normalize-space()='Get Stream']`
	goLiveSel        = `//button[normalize-space()='Go Live']`
	scissorsSel      = `//button[contains(@aria-label, "crop")]`
	startCropSel     = `//button[normalize-space()='Start Cropping']`
	exportSel        = `//button[normalize-space()='Export']`
	publishSel       = `//div[contains(@class, "publish-dialog")]`
	savedSel         = `//*[contains(., "Clip saved")]`
)

// liveRunFixture scripts a portal with n live channels on which every
// live-flow step succeeds.
func liveRunFixture(t *testing.T, n int) (*testutil.FakeDriver, *portal.Config, *portal.LogSet) {
	t.Helper()

	drv := testutil.NewFakeDriver()
	drv.Present[liveMenuSel] = true
	for i := 1; i <= n; i++ {
		drv.Present[fmt.Sprintf(channelButtonSel, i)] = true
		drv.Texts[fmt.Sprintf(channelNameSel, i)] = fmt.Sprintf("Channel %d", i)
	}
	drv.Texts[indicatorSel] = "0:05"
	for _, sel := range []string{
		calendarSel, dateInputSel, getStreamSel, goLiveSel,
		scissorsSel, startCropSel, exportSel, publishSel, savedSel,
	} {
		drv.Present[sel] = true
	}
	drv.EvalOut["HTMLInputElement"] = "true" // date selection
	drv.EvalOut["v.duration"] = "300"
	drv.EvalOut["currentTime"] = "400"
	drv.EvalOut[`type="range"`] = "true"

	cfg := &portal.Config{WaitTimeoutSeconds: 1, DaysBack: 1, StepGapSeconds: 0}
	logs, err := portal.NewLogSet(t.TempDir(), "error")
	require.NoError(t, err)
	t.Cleanup(func() { _ = logs.Close() })
	return drv, cfg, logs
}

// TestRunLiveClipsSecondChannel pins the clip policy: with three
// channels the loop ends on channel three, so the clip flow must
// navigate back into channel two before touching the crop tool.
func TestRunLiveClipsSecondChannel(t *testing.T) {
	drv, cfg, logs := liveRunFixture(t, 3)

	results := runLive(drv, cfg, logs)
	for _, r := range results {
		assert.True(t, r.OK, "%s: %s", r.Name, r.Note)
	}

	scissorsAt := -1
	lastChannelClick := ""
	sawThird := false
	for i, op := range drv.Ops {
		if op.Kind != "click" {
			continue
		}
		if op.Selector == scissorsSel {
			scissorsAt = i
			break
		}
		if strings.HasPrefix(op.Selector, `//*[@id="root"]`) {
			lastChannelClick = op.Selector
			if op.Selector == fmt.Sprintf(channelButtonSel, 3) {
				sawThird = true
			}
		}
	}
	require.GreaterOrEqual(t, scissorsAt, 0, "crop tool never opened")
	assert.True(t, sawThird, "loop should visit channel three before the clip")
	assert.Equal(t, fmt.Sprintf(channelButtonSel, 2), lastChannelClick,
		"crop tool must open on channel two's view")
}

// TestRunLiveReturnsToListBetweenChannels pins the navigation between
// channels: each channel after the first, plus the clip flow, restores
// the channel list first. Without a back control that means re-opening
// the live menu.
func TestRunLiveReturnsToListBetweenChannels(t *testing.T) {
	drv, cfg, logs := liveRunFixture(t, 3)

	results := runLive(drv, cfg, logs)
	for _, r := range results {
		assert.True(t, r.OK, "%s: %s", r.Name, r.Note)
	}

	// Initial open, two between-channel restores, one before the clip.
	assert.Equal(t, 4, drv.Clicked(liveMenuSel))

	assert.Equal(t, 1, drv.Clicked(fmt.Sprintf(channelButtonSel, 1)))
	// Channel two is opened by the loop and again by the clip flow.
	assert.Equal(t, 2, drv.Clicked(fmt.Sprintf(channelButtonSel, 2)))
	assert.Equal(t, 1, drv.Clicked(fmt.Sprintf(channelButtonSel, 3)))
}

func TestRunLiveVerifiesEachConfiguredDay(t *testing.T) {
	drv, cfg, logs := liveRunFixture(t, 1)
	cfg.DaysBack = 2

	results := runLive(drv, cfg, logs)

	historyChecks := 0
	for _, r := range results {
		if strings.HasPrefix(r.Name, "live/history") {
			historyChecks++
			assert.True(t, r.OK, "%s: %s", r.Name, r.Note)
		}
	}
	assert.Equal(t, 2, historyChecks)
}

func TestRunLiveSkipsClipWithSingleChannel(t *testing.T) {
	drv, cfg, logs := liveRunFixture(t, 1)

	results := runLive(drv, cfg, logs)

	last := results[len(results)-1]
	assert.Equal(t, "live/clip", last.Name)
	assert.True(t, last.OK)
	assert.Zero(t, drv.Clicked(scissorsSel))
}
