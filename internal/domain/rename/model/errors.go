// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package model

import "errors"

var (
	// ErrUserInput classifies recoverable input problems (empty name, unknown format).
	ErrUserInput = errors.New("invalid user input")
	// ErrNoSession is returned when a user has no active session.
	ErrNoSession = errors.New("no active session")
	// ErrTransferInProgress rejects a new submission while a transfer runs.
	ErrTransferInProgress = errors.New("transfer in progress")
	// ErrUnexpectedEvent is returned for events the current state does not accept.
	ErrUnexpectedEvent = errors.New("unexpected event for session state")
)
