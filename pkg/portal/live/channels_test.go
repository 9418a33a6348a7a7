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

func liveConfig() *portal.Config {
	return &portal.Config{
		WaitTimeoutSeconds:    1,
		ClipExportWaitSeconds: 1,
		DaysBack:              1,
	}
}

func TestListChannels(t *testing.T) {
	cfg := liveConfig()
	drv := testutil.NewFakeDriver()
	drv.Present[selLiveMenu] = true
	drv.Texts[fmt.Sprintf(selChannelNameFmt, 1)] = "North Gate"
	drv.Texts[fmt.Sprintf(selChannelNameFmt, 2)] = "  Warehouse  "

	d := NewDiscovery(drv, cfg, nil, zerolog.Nop())
	require.NoError(t, d.OpenLiveMenu())

	channels := d.ListChannels()
	require.Len(t, channels, 2)
	assert.Equal(t, Channel{Index: 1, Name: "North Gate"}, channels[0])
	assert.Equal(t, Channel{Index: 2, Name: "Warehouse"}, channels[1])
	assert.Equal(t, "#2 Warehouse", channels[1].String())
}

func TestListChannelsEmptyListIsNotAnError(t *testing.T) {
	drv := testutil.NewFakeDriver()
	d := NewDiscovery(drv, liveConfig(), nil, zerolog.Nop())
	assert.Empty(t, d.ListChannels())
}

func TestOpenChannelClicksListEntry(t *testing.T) {
	drv := testutil.NewFakeDriver()
	sel := fmt.Sprintf(selChannelButtonFmt, 2)
	drv.Present[sel] = true

	clk := internal.NewMockClock(time.Time{})
	d := NewDiscovery(drv, liveConfig(), clk, zerolog.Nop())

	require.NoError(t, d.OpenChannel(Channel{Index: 2, Name: "Warehouse"}))
	assert.Equal(t, 1, drv.Clicked(sel))
}

func TestOpenChannelMissingEntry(t *testing.T) {
	drv := testutil.NewFakeDriver()
	d := NewDiscovery(drv, liveConfig(), internal.NewMockClock(time.Time{}), zerolog.Nop())

	err := d.OpenChannel(Channel{Index: 3, Name: "Gone"})
	require.Error(t, err)
	assert.ErrorIs(t, err, portal.ErrNotFound)
}

func TestReturnToListPrefersBackControl(t *testing.T) {
	drv := testutil.NewFakeDriver()
	drv.Present[selBackToList] = true
	drv.Present[selLiveMenu] = true

	d := NewDiscovery(drv, liveConfig(), internal.NewMockClock(time.Time{}), zerolog.Nop())
	require.NoError(t, d.ReturnToList())

	assert.Equal(t, 1, drv.Clicked(selBackToList))
	assert.Zero(t, drv.Clicked(selLiveMenu))
}

func TestReturnToListFallsBackToLiveMenu(t *testing.T) {
	drv := testutil.NewFakeDriver()
	drv.Present[selLiveMenu] = true

	d := NewDiscovery(drv, liveConfig(), internal.NewMockClock(time.Time{}), zerolog.Nop())
	require.NoError(t, d.ReturnToList())

	assert.Equal(t, 1, drv.Clicked(selLiveMenu))
}
