package sysload

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadTracker(t *testing.T) {
	tr := &loadTracker{}
	_, _, ok := tr.summary()
	require.False(t, ok)

	load, ok := tr.add(0, 0, 75, 100)
	require.True(t, ok)
	require.InDelta(t, 25, load, 0.001)

	load, ok = tr.add(75, 100, 100, 200)
	require.True(t, ok)
	require.InDelta(t, 75, load, 0.001)

	// counters did not advance
	_, ok = tr.add(100, 200, 100, 200)
	require.False(t, ok)

	avg, peak, ok := tr.summary()
	require.True(t, ok)
	require.InDelta(t, 50, avg, 0.001)
	require.InDelta(t, 75, peak, 0.001)
}

func TestMonitorLoadStops(t *testing.T) {
	done := make(chan struct{})
	close(done)

	finished := make(chan struct{})
	go func() {
		MonitorLoad("CR_test", done, nil)
		close(finished)
	}()
	<-finished
}
