// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package daemon

import "errors"

var (
	// ErrMissingLogger is returned when logger is not provided
	ErrMissingLogger = errors.New("logger is required")

	// ErrMissingManager is returned when a daemon app is created without a manager.
	ErrMissingManager = errors.New("manager is required")

	// ErrMissingSource is returned when a daemon app has no inbound event source.
	ErrMissingSource = errors.New("event source is required")

	// ErrMissingDispatcher is returned when a daemon app has nothing to dispatch events to.
	ErrMissingDispatcher = errors.New("dispatcher is required")

	// ErrManagerNotStarted is returned when trying to shutdown a manager that hasn't started
	ErrManagerNotStarted = errors.New("manager not started")
)
