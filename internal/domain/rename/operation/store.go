// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package operation

import (
	"errors"
	"sync"

	"github.com/ManuGH/renamebot/internal/metrics"
)

var (
	ErrNilOperation = errors.New("nil operation")
	ErrDuplicateID  = errors.New("duplicate operation id")
)

// Store is the process-wide registry of active operations.
// It holds non-owning references used for cancellation lookup and cleanup.
type Store struct {
	mu  sync.Mutex
	ops map[string]*Operation
}

// NewStore creates an empty store. Construct one at process start.
func NewStore() *Store {
	return &Store{ops: make(map[string]*Operation)}
}

// Register adds op and returns its ID.
func (s *Store) Register(op *Operation) (string, error) {
	if op == nil {
		return "", ErrNilOperation
	}
	s.mu.Lock()
	if _, exists := s.ops[op.id]; exists {
		s.mu.Unlock()
		return "", ErrDuplicateID
	}
	s.ops[op.id] = op
	n := len(s.ops)
	s.mu.Unlock()

	metrics.SetActiveOperations(n)
	return op.id, nil
}

// Cancel flags the operation for cancellation.
// It returns true if the operation was found and had not finished yet.
func (s *Store) Cancel(id string) bool {
	s.mu.Lock()
	op, ok := s.ops[id]
	s.mu.Unlock()
	if !ok {
		return false
	}
	return op.Cancel()
}

// Unregister removes the operation. Unknown IDs are ignored.
func (s *Store) Unregister(id string) {
	s.mu.Lock()
	delete(s.ops, id)
	n := len(s.ops)
	s.mu.Unlock()

	metrics.SetActiveOperations(n)
}

// Get returns the operation registered under id.
func (s *Store) Get(id string) (*Operation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	op, ok := s.ops[id]
	return op, ok
}

// Len returns the number of registered operations.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ops)
}

// CancelAll requests cancellation of every registered operation and returns how
// many accepted it. Used on shutdown.
func (s *Store) CancelAll() int {
	s.mu.Lock()
	ops := make([]*Operation, 0, len(s.ops))
	for _, op := range s.ops {
		ops = append(ops, op)
	}
	s.mu.Unlock()

	n := 0
	for _, op := range ops {
		if op.Cancel() {
			n++
		}
	}
	return n
}
