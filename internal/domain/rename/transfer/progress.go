// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package transfer

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/time/rate"

	"github.com/ManuGH/renamebot/internal/domain/rename/operation"
)

// Progress is one computed status sample.
type Progress struct {
	Direction operation.Direction
	Current   int64
	Total     int64
	Percent   float64
	// Speed is the cumulative average in bytes per second since the operation started.
	Speed float64
	// ETA is the estimated remaining time; meaningless unless ETAKnown.
	ETA      time.Duration
	ETAKnown bool
	At       time.Time
}

// tracker turns raw primitive callbacks into throttled progress samples.
// A sample is produced only when the interval has elapsed since the last
// emitted status, not since the last callback.
type tracker struct {
	mu    sync.Mutex
	now   func() time.Time
	every rate.Limit
	lim   *rate.Limiter
	start time.Time

	dir     operation.Direction
	percent float64
	bytes   int64
}

func newTracker(now func() time.Time, interval time.Duration, start time.Time) *tracker {
	every := rate.Every(interval)
	return &tracker{
		now:   now,
		every: every,
		lim:   rate.NewLimiter(every, 1),
		start: start,
		dir:   operation.DirectionDownload,
	}
}

// mark records an unconditional emission and restarts the window.
func (t *tracker) mark() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	t.lim = rate.NewLimiter(t.every, 1)
	t.lim.AllowN(now, 1)
	return now
}

// begin starts a new phase. Percent clamping restarts from zero and the
// throttle window restarts at the phase start. ok reports whether the previous
// window had elapsed, so a phase status may be emitted at that instant.
func (t *tracker) begin(dir operation.Direction) (now time.Time, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dir = dir
	t.percent = 0
	t.bytes = 0

	now = t.now()
	ok = t.lim.AllowN(now, 1)
	if !ok {
		t.lim = rate.NewLimiter(t.every, 1)
		t.lim.AllowN(now, 1)
	}
	return now, ok
}

// observe records a callback. It always returns the byte delta since the
// previous callback and a sample only when the throttle window allows it.
func (t *tracker) observe(current, total int64) (Progress, int64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	pct := 100.0
	if total > 0 {
		pct = math.Min(float64(current)/float64(total)*100, 100)
	}
	if pct < t.percent {
		pct = t.percent
	}
	t.percent = pct

	delta := current - t.bytes
	if delta < 0 {
		delta = 0
	} else {
		t.bytes = current
	}

	now := t.now()
	if !t.lim.AllowN(now, 1) {
		return Progress{Direction: t.dir}, delta, false
	}

	p := Progress{
		Direction: t.dir,
		Current:   current,
		Total:     total,
		Percent:   pct,
		At:        now,
	}
	if elapsed := now.Sub(t.start).Seconds(); elapsed > 0 {
		p.Speed = float64(current) / elapsed
	}
	switch {
	case total <= 0 || current >= total:
		p.ETAKnown = true
	case p.Speed > 0:
		p.ETA = time.Duration(float64(total-current) / p.Speed * float64(time.Second))
		p.ETAKnown = true
	}
	return p, delta, true
}

// renderProgress formats a sample the way the status message shows it.
func renderProgress(p Progress) string {
	verb, done, icon := "downloading", "downloaded", "📥"
	if p.Direction == operation.DirectionUpload {
		verb, done, icon = "uploading", "uploaded", "📤"
	}

	eta := "unknown"
	if p.ETAKnown {
		eta = humanize.RelTime(p.At.Add(p.ETA), p.At, "ago", "from now")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s...\n\n", icon, verb)
	fmt.Fprintf(&b, "progress: %.1f%%\n", p.Percent)
	fmt.Fprintf(&b, "%s: %s / %s\n", done, humanize.Bytes(uint64(max(p.Current, 0))), humanize.Bytes(uint64(max(p.Total, 0))))
	fmt.Fprintf(&b, "speed: %s/s\n", humanize.Bytes(uint64(p.Speed)))
	fmt.Fprintf(&b, "ETA: %s", eta)
	return b.String()
}
