package internal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMockClockSleepAdvances(t *testing.T) {
	clk := NewMockClock(time.Time{})
	start := clk.Now()

	clk.Sleep(3 * time.Second)
	clk.Sleep(-time.Second) // ignored
	clk.Sleep(2 * time.Second)

	assert.Equal(t, start.Add(5*time.Second), clk.Now())
	assert.Equal(t, 5*time.Second, clk.Slept())
}

func TestMockClockAdvanceDoesNotCountAsSleep(t *testing.T) {
	clk := NewMockClock(time.Time{})
	start := clk.Now()

	clk.Advance(time.Minute)
	assert.Equal(t, start.Add(time.Minute), clk.Now())
	assert.Zero(t, clk.Slept())
}

func TestMonotonicClockMovesForward(t *testing.T) {
	var clk MonotonicClock
	a := clk.Now()
	clk.Sleep(time.Millisecond)
	assert.True(t, clk.Now().After(a))
}
