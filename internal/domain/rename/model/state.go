// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package model holds the data types shared by the rename workflow.
package model

// SessionState is the position of a rename request in its lifecycle.
type SessionState string

const (
	StateAwaitingName   SessionState = "awaiting_name"
	StateAwaitingFormat SessionState = "awaiting_format"
	StateTransferring   SessionState = "transferring"
	StateDone           SessionState = "done"
	StateCancelled      SessionState = "cancelled"
	StateFailed         SessionState = "failed"
)

// IsTerminal reports whether the session is finished and must be destroyed.
func (s SessionState) IsTerminal() bool {
	switch s {
	case StateDone, StateCancelled, StateFailed:
		return true
	default:
		return false
	}
}

// SessionEvent is an input that may move a session between states.
type SessionEvent string

const (
	EvNameAccepted      SessionEvent = "name_accepted"
	EvFormatChosen      SessionEvent = "format_chosen"
	EvTransferSucceeded SessionEvent = "transfer_succeeded"
	EvTransferCancelled SessionEvent = "transfer_cancelled"
	EvTransferFailed    SessionEvent = "transfer_failed"
	EvAborted           SessionEvent = "aborted"
)

// Outcome is the terminal result class of a transfer.
type Outcome string

const (
	OutcomeSuccess   Outcome = "success"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeFailed    Outcome = "failed"
)

// Result is what a transfer run reports back to the session.
type Result struct {
	Outcome  Outcome
	Reason   error
	FileName string
}

// Event maps a transfer outcome onto the session event it triggers.
func (r Result) Event() SessionEvent {
	switch r.Outcome {
	case OutcomeSuccess:
		return EvTransferSucceeded
	case OutcomeCancelled:
		return EvTransferCancelled
	default:
		return EvTransferFailed
	}
}
