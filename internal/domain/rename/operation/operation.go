// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package operation tracks in-flight transfer operations and their cancellation.
package operation

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Direction is the phase an operation is currently moving bytes in.
type Direction string

const (
	DirectionDownload Direction = "download"
	DirectionUpload   Direction = "upload"
)

// Operation is one in-flight download-then-upload transfer.
// The transfer controller owns it; the Store only keeps a lookup reference.
type Operation struct {
	id     string
	userID int64
	chatID int64

	// state moves once from stateRunning to stateCancelled or stateFinished.
	state atomic.Int32

	mu             sync.Mutex
	abort          context.CancelFunc
	direction      Direction
	totalBytes     int64
	startedAt      time.Time
	lastProgressAt time.Time
}

const (
	stateRunning int32 = iota
	stateCancelled
	stateFinished
)

// Info is a point-in-time copy of an operation's bookkeeping.
type Info struct {
	ID             string
	UserID         int64
	Direction      Direction
	TotalBytes     int64
	StartedAt      time.Time
	LastProgressAt time.Time
	Cancelled      bool
	Finished       bool
}

// NewID derives a unique operation ID from the user and a random component.
// The result stays below 64 bytes together with the cancel payload prefix.
func NewID(userID int64) string {
	return fmt.Sprintf("%d_%s", userID, uuid.NewString())
}

// New creates an operation for userID with a fresh ID.
func New(userID, chatID int64, now time.Time) *Operation {
	return &Operation{
		id:        NewID(userID),
		userID:    userID,
		chatID:    chatID,
		direction: DirectionDownload,
		startedAt: now,
	}
}

func (o *Operation) ID() string    { return o.id }
func (o *Operation) UserID() int64 { return o.userID }
func (o *Operation) ChatID() int64 { return o.chatID }

// Cancelled reports whether cancellation was requested.
func (o *Operation) Cancelled() bool { return o.state.Load() == stateCancelled }

// Finished reports whether the operation reached its end without being cancelled.
func (o *Operation) Finished() bool { return o.state.Load() == stateFinished }

// Cancel requests cancellation. It returns false if the operation already
// finished or was already cancelled. The bound abort func, if any, interrupts
// the in-flight primitive call.
func (o *Operation) Cancel() bool {
	if !o.state.CompareAndSwap(stateRunning, stateCancelled) {
		return false
	}
	o.Abort()
	return true
}

// BindAbort attaches the func that interrupts the running primitive.
// If cancellation already happened, abort is invoked immediately.
func (o *Operation) BindAbort(abort context.CancelFunc) {
	o.mu.Lock()
	o.abort = abort
	o.mu.Unlock()
	if o.Cancelled() {
		abort()
	}
}

// Abort invokes the bound abort func without touching the cancel flag.
func (o *Operation) Abort() {
	o.mu.Lock()
	abort := o.abort
	o.mu.Unlock()
	if abort != nil {
		abort()
	}
}

// Finish marks the operation complete so later Cancel calls return false.
// It reports false if a cancellation won the race.
func (o *Operation) Finish() bool {
	return o.state.CompareAndSwap(stateRunning, stateFinished) || o.Finished()
}

// BeginPhase switches direction and resets the per-phase byte total.
func (o *Operation) BeginPhase(dir Direction, total int64, now time.Time) {
	o.mu.Lock()
	o.direction = dir
	o.totalBytes = total
	o.lastProgressAt = now
	o.mu.Unlock()
}

// Touch records the time of the last emitted progress update.
func (o *Operation) Touch(now time.Time) {
	o.mu.Lock()
	o.lastProgressAt = now
	o.mu.Unlock()
}

// Info returns a snapshot of the operation.
func (o *Operation) Info() Info {
	o.mu.Lock()
	defer o.mu.Unlock()
	return Info{
		ID:             o.id,
		UserID:         o.userID,
		Direction:      o.direction,
		TotalBytes:     o.totalBytes,
		StartedAt:      o.startedAt,
		LastProgressAt: o.lastProgressAt,
		Cancelled:      o.Cancelled(),
		Finished:       o.Finished(),
	}
}
