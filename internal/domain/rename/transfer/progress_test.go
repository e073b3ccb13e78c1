// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package transfer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/renamebot/internal/domain/rename/operation"
)

func TestTracker_ThrottlesSinceLastEmission(t *testing.T) {
	clock := newFakeClock()
	tr := newTracker(clock.Now, 2*time.Second, clock.Now())
	tr.mark()

	var emitted []time.Duration
	start := clock.Now()
	// Callbacks every 300ms for 10s.
	for i := 1; i <= 33; i++ {
		clock.Advance(300 * time.Millisecond)
		if _, _, ok := tr.observe(int64(i), 100); ok {
			emitted = append(emitted, clock.Now().Sub(start))
		}
	}

	require.NotEmpty(t, emitted)
	prev := time.Duration(0)
	for _, at := range emitted {
		assert.GreaterOrEqual(t, at-prev, 2*time.Second, "emissions at %v", emitted)
		prev = at
	}
	// 2.1s, 4.2s, 6.3s, 8.4s: the window restarts at each emission, not on a fixed grid.
	assert.Equal(t, []time.Duration{
		2100 * time.Millisecond,
		4200 * time.Millisecond,
		6300 * time.Millisecond,
		8400 * time.Millisecond,
	}, emitted)
}

func TestTracker_ExactInterval(t *testing.T) {
	clock := newFakeClock()
	tr := newTracker(clock.Now, 2*time.Second, clock.Now())
	tr.mark()

	clock.Advance(1999 * time.Millisecond)
	_, _, ok := tr.observe(1, 10)
	assert.False(t, ok)

	clock.Advance(time.Millisecond)
	_, _, ok = tr.observe(2, 10)
	assert.True(t, ok)
}

func TestTracker_PercentNeverDecreases(t *testing.T) {
	clock := newFakeClock()
	tr := newTracker(clock.Now, 0, clock.Now())

	var last float64
	for _, cur := range []int64{10, 50, 40, 60, 60, 200} {
		clock.Advance(time.Second)
		p, _, ok := tr.observe(cur, 100)
		require.True(t, ok)
		assert.GreaterOrEqual(t, p.Percent, last)
		assert.LessOrEqual(t, p.Percent, 100.0)
		last = p.Percent
	}
	assert.Equal(t, 100.0, last)

	tr.begin(operation.DirectionUpload)
	clock.Advance(time.Second)
	p, _, _ := tr.observe(10, 100)
	assert.Equal(t, 10.0, p.Percent, "a new phase restarts clamping")
	assert.Equal(t, operation.DirectionUpload, p.Direction)
}

func TestTracker_UploadWindowStartsAtPhase(t *testing.T) {
	clock := newFakeClock()
	tr := newTracker(clock.Now, 2*time.Second, clock.Now())
	tr.mark()

	// The download window has not elapsed: no phase status, window restarts here.
	clock.Advance(500 * time.Millisecond)
	phaseStart, ok := tr.begin(operation.DirectionUpload)
	assert.False(t, ok)

	clock.Advance(1900 * time.Millisecond)
	_, _, ok = tr.observe(1, 10)
	assert.False(t, ok, "2.4s after the last emission but only 1.9s into the upload")

	clock.Advance(100 * time.Millisecond)
	p, _, ok := tr.observe(2, 10)
	require.True(t, ok)
	assert.Equal(t, 2*time.Second, p.At.Sub(phaseStart))

	// An elapsed window lets the phase status through immediately.
	clock.Advance(3 * time.Second)
	_, ok = tr.begin(operation.DirectionDownload)
	assert.True(t, ok)
	_, _, ok = tr.observe(1, 10)
	assert.False(t, ok)
}

func TestTracker_ByteDeltas(t *testing.T) {
	clock := newFakeClock()
	tr := newTracker(clock.Now, time.Hour, clock.Now())
	tr.mark()

	var total int64
	for _, cur := range []int64{10, 25, 25, 20, 40} {
		_, delta, _ := tr.observe(cur, 40)
		total += delta
	}
	assert.Equal(t, int64(40), total)
}

func TestTracker_ZeroTotal(t *testing.T) {
	clock := newFakeClock()
	tr := newTracker(clock.Now, 0, clock.Now())

	p, _, ok := tr.observe(0, 0)
	require.True(t, ok)
	assert.Equal(t, 100.0, p.Percent)
	assert.Zero(t, p.Speed)
	assert.True(t, p.ETAKnown)
	assert.Zero(t, p.ETA)
	assert.Contains(t, renderProgress(p), "progress: 100.0%")
}

func TestTracker_SpeedAndETA(t *testing.T) {
	clock := newFakeClock()
	tr := newTracker(clock.Now, 0, clock.Now())

	clock.Advance(2 * time.Second)
	p, _, ok := tr.observe(50, 100)
	require.True(t, ok)
	assert.InDelta(t, 25.0, p.Speed, 0.001)
	assert.True(t, p.ETAKnown)
	assert.Equal(t, 2*time.Second, p.ETA)
}

func TestTracker_UnknownETAWithoutThroughput(t *testing.T) {
	clock := newFakeClock()
	tr := newTracker(clock.Now, 0, clock.Now())
	clock.Advance(time.Second)

	p, _, ok := tr.observe(0, 100)
	require.True(t, ok)
	assert.False(t, p.ETAKnown)
	assert.Contains(t, renderProgress(p), "ETA: unknown")
}

func TestRenderProgress(t *testing.T) {
	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	got := renderProgress(Progress{
		Direction: operation.DirectionDownload,
		Current:   5_000_000,
		Total:     10_000_000,
		Percent:   50,
		Speed:     1_000_000,
		ETA:       5 * time.Second,
		ETAKnown:  true,
		At:        at,
	})
	assert.Equal(t, "📥 downloading...\n\n"+
		"progress: 50.0%\n"+
		"downloaded: 5.0 MB / 10 MB\n"+
		"speed: 1.0 MB/s\n"+
		"ETA: 5 seconds from now", got)

	up := renderProgress(Progress{Direction: operation.DirectionUpload, ETAKnown: true, At: at})
	assert.Contains(t, up, "📤 uploading...")
	assert.Contains(t, up, "uploaded: 0 B / 0 B")
	assert.Contains(t, up, "ETA: now")
}
