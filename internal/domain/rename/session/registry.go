// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package session owns the per-user rename conversations.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ManuGH/renamebot/internal/domain/rename/model"
	"github.com/ManuGH/renamebot/internal/fsm"
	"github.com/ManuGH/renamebot/internal/log"
	"github.com/ManuGH/renamebot/internal/metrics"
)

type session struct {
	m    *machine
	snap model.SessionSnapshot
}

// Registry maps users to their single active session.
// All methods are safe for concurrent use.
type Registry struct {
	mu       sync.Mutex
	sessions map[int64]*session
	now      func() time.Time
}

// Option customizes a Registry.
type Option func(*Registry)

// WithClock replaces the clock used for session timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{sessions: make(map[int64]*session), now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Begin starts a session for a newly submitted file. A pending session of the
// same user is replaced and its prompt IDs are returned for retraction.
// A running transfer rejects the submission with ErrTransferInProgress.
func (r *Registry) Begin(ctx context.Context, userID, chatID int64, file model.FileRef, messageID int) (model.SessionSnapshot, []int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var replaced []int
	if old, ok := r.sessions[userID]; ok {
		if old.m.State() == model.StateTransferring {
			return old.snapshot(), nil, model.ErrTransferInProgress
		}
		replaced = old.snap.PromptIDs
		logger := log.WithComponentFromContext(ctx, "session")
		logger.Info().
			Str(log.FieldEvent, "session.replaced").
			Int64(log.FieldUserID, userID).
			Str(log.FieldOldState, string(old.m.State())).
			Msg("pending session replaced by new file")
	}

	now := r.now()
	s := &session{
		m: fsm.New(model.StateAwaitingName, table),
		snap: model.SessionSnapshot{
			UserID:          userID,
			ChatID:          chatID,
			Source:          file,
			SourceMessageID: messageID,
			State:           model.StateAwaitingName,
			CreatedAt:       now,
			UpdatedAt:       now,
		},
	}
	r.sessions[userID] = s
	metrics.SetActiveSessions(len(r.sessions))
	return s.snapshot(), replaced, nil
}

// AcceptName records the requested name and moves to AwaitingFormat.
// A name that is empty after trimming or sanitizing yields ErrUserInput and
// leaves the session unchanged.
func (r *Registry) AcceptName(ctx context.Context, userID int64, name string) (model.SessionSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[userID]
	if !ok {
		return model.SessionSnapshot{}, model.ErrNoSession
	}
	name = strings.TrimSpace(name)
	if err := r.fire(withInput(ctx, input{name: name}), s, model.EvNameAccepted); err != nil {
		return s.snapshot(), err
	}
	s.snap.NewName = name
	return s.snapshot(), nil
}

// ChooseFormat fixes the delivery format and moves to Transferring under operationID.
func (r *Registry) ChooseFormat(ctx context.Context, userID int64, format model.Format, operationID string) (model.SessionSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[userID]
	if !ok {
		return model.SessionSnapshot{}, model.ErrNoSession
	}
	if err := r.fire(withInput(ctx, input{format: format}), s, model.EvFormatChosen); err != nil {
		return s.snapshot(), err
	}
	s.snap.AsDocument = format.AsDocument()
	s.snap.OperationID = operationID
	return s.snapshot(), nil
}

// Complete applies the transfer result of operationID and ends the session.
// It returns false when the session is gone or belongs to another operation.
func (r *Registry) Complete(ctx context.Context, userID int64, operationID string, res model.Result) (model.SessionSnapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[userID]
	if !ok || s.snap.OperationID != operationID {
		return model.SessionSnapshot{}, false
	}
	if err := r.fire(ctx, s, res.Event()); err != nil {
		return s.snapshot(), false
	}
	return s.snapshot(), true
}

// Abort drops a session that has not started transferring yet.
func (r *Registry) Abort(ctx context.Context, userID int64) (model.SessionSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[userID]
	if !ok {
		return model.SessionSnapshot{}, model.ErrNoSession
	}
	if err := r.fire(ctx, s, model.EvAborted); err != nil {
		return s.snapshot(), err
	}
	return s.snapshot(), nil
}

// Lookup returns the user's current session.
func (r *Registry) Lookup(userID int64) (model.SessionSnapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[userID]
	if !ok {
		return model.SessionSnapshot{}, false
	}
	return s.snapshot(), true
}

// AddPrompts remembers bot messages to retract when the session advances.
func (r *Registry) AddPrompts(userID int64, messageIDs ...int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[userID]; ok {
		s.snap.PromptIDs = append(s.snap.PromptIDs, messageIDs...)
	}
}

// TakePrompts returns and forgets the remembered prompt IDs.
func (r *Registry) TakePrompts(userID int64) []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[userID]
	if !ok {
		return nil
	}
	ids := s.snap.PromptIDs
	s.snap.PromptIDs = nil
	return ids
}

// Len returns the number of active sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// fire applies event to s. Caller holds r.mu.
func (r *Registry) fire(ctx context.Context, s *session, event model.SessionEvent) error {
	from := s.m.State()
	to, err := s.m.Fire(ctx, event)
	metrics.IncSessionEvent(string(event), err == nil)
	if err != nil {
		if errors.Is(err, fsm.ErrInvalidTransition) {
			return fmt.Errorf("%w: %s in %s", model.ErrUnexpectedEvent, event, from)
		}
		return err
	}

	s.snap.State = to
	s.snap.UpdatedAt = r.now()
	logger := log.WithComponentFromContext(ctx, "session")
	logger.Debug().
		Str(log.FieldEvent, "session.transition").
		Int64(log.FieldUserID, s.snap.UserID).
		Str(log.FieldOldState, string(from)).
		Str(log.FieldNewState, string(to)).
		Str("trigger", string(event)).
		Msg("session transition")

	if to.IsTerminal() {
		delete(r.sessions, s.snap.UserID)
		metrics.SetActiveSessions(len(r.sessions))
	}
	return nil
}

func (s *session) snapshot() model.SessionSnapshot {
	snap := s.snap
	snap.PromptIDs = append([]int(nil), s.snap.PromptIDs...)
	return snap
}
