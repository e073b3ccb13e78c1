// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package model

import "time"

// SessionSnapshot is an immutable copy of a session at one point in time.
type SessionSnapshot struct {
	UserID          int64
	ChatID          int64
	Source          FileRef
	SourceMessageID int
	State           SessionState
	NewName         string
	AsDocument      bool
	OperationID     string
	PromptIDs       []int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
