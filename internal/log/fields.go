// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldUserID      = "user_id"
	FieldChatID      = "chat_id"
	FieldMessageID   = "message_id"
	FieldOperationID = "operation_id"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"
	FieldOutcome  = "outcome"

	// Transfer fields
	FieldDirection = "direction"
	FieldFileName  = "file_name"
	FieldBytes     = "bytes"
	FieldPath      = "path"
)
