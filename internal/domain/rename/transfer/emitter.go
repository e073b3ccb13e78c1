// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package transfer

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/ManuGH/renamebot/internal/domain/rename/ports"
	"github.com/ManuGH/renamebot/internal/metrics"
)

type status struct {
	text    string
	buttons []ports.ButtonRow
}

// emitter delivers status updates for one operation off the transfer path.
// Only the latest pending update is kept. Delivery failures are logged and
// counted; they never reach the caller of post.
//
// Callers throttle at post time, but a delivery delayed by the shared
// semaphore can land right before the next one. spacing is therefore also
// enforced between deliveries: an update reaching the sink sooner than
// spacing after the previous one is dropped.
type emitter struct {
	sink    StatusSink
	sem     *semaphore.Weighted
	timeout time.Duration
	spacing time.Duration
	now     func() time.Time
	logger  zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	pending  *status
	sealed   bool
	lastSent time.Time

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

func newEmitter(sink StatusSink, sem *semaphore.Weighted, timeout, spacing time.Duration, now func() time.Time, logger zerolog.Logger) *emitter {
	ctx, cancel := context.WithCancel(context.Background())
	e := &emitter{
		sink:    sink,
		sem:     sem,
		timeout: timeout,
		spacing: spacing,
		now:     now,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		wake:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go e.loop()
	return e
}

// post replaces the pending update. It never blocks on delivery.
func (e *emitter) post(s status) {
	e.mu.Lock()
	if e.sealed {
		e.mu.Unlock()
		return
	}
	if e.pending != nil {
		metrics.IncStatusUpdate("dropped")
	}
	e.pending = &s
	e.mu.Unlock()

	select {
	case e.wake <- struct{}{}:
	default:
	}
}

// seal discards pending updates and waits up to wait for an in-flight
// delivery to finish. After seal returns no further update is delivered.
func (e *emitter) seal(wait time.Duration) {
	e.mu.Lock()
	if e.sealed {
		e.mu.Unlock()
		return
	}
	e.sealed = true
	if e.pending != nil {
		metrics.IncStatusUpdate("dropped")
		e.pending = nil
	}
	e.mu.Unlock()
	close(e.stop)

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-e.done:
	case <-timer.C:
		e.logger.Warn().Str("event", "status.seal_timeout").Dur("wait", wait).Msg("in-flight status update did not finish, aborting it")
		e.cancel()
		<-e.done
	}
	e.cancel()
}

func (e *emitter) loop() {
	defer close(e.done)
	for {
		select {
		case <-e.stop:
			return
		case <-e.wake:
		}

		e.mu.Lock()
		s := e.pending
		e.pending = nil
		e.mu.Unlock()
		if s == nil {
			continue
		}
		e.deliver(*s)
	}
}

func (e *emitter) deliver(s status) {
	ctx, cancel := context.WithTimeout(e.ctx, e.timeout)
	defer cancel()

	if err := e.sem.Acquire(ctx, 1); err != nil {
		metrics.IncStatusUpdate("dropped")
		e.logger.Debug().Err(err).Str("event", "status.dropped").Msg("status update slot unavailable")
		return
	}
	defer e.sem.Release(1)

	// A seal may have happened while waiting for a slot.
	e.mu.Lock()
	sealed := e.sealed
	last := e.lastSent
	e.mu.Unlock()
	if sealed {
		metrics.IncStatusUpdate("dropped")
		return
	}
	if e.spacing > 0 && !last.IsZero() && e.now().Sub(last) < e.spacing {
		metrics.IncStatusUpdate("dropped")
		e.logger.Debug().Str("event", "status.too_soon").Msg("status update dropped, previous one landed too recently")
		return
	}

	if err := e.sink.Update(ctx, s.text, s.buttons); err != nil {
		metrics.IncStatusUpdate("error")
		e.logger.Warn().Err(err).Str("event", "status.failed").Msg("status update failed")
		return
	}
	e.mu.Lock()
	e.lastSent = e.now()
	e.mu.Unlock()
	metrics.IncStatusUpdate("sent")
}
