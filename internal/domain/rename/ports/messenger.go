// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package ports defines the collaborators the rename workflow consumes from the
// chat transport and the file-transfer client.
package ports

import (
	"context"

	"github.com/ManuGH/renamebot/internal/domain/rename/model"
)

// MessageRef addresses a message previously sent by the bot.
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// Button is an inline button with an opaque callback payload.
type Button struct {
	Text string
	Data string
}

// ButtonRow is one row of inline buttons.
type ButtonRow []Button

// OutboundMessage is a new text message.
type OutboundMessage struct {
	ChatID   int64
	Text     string
	Markdown bool
	Buttons  []ButtonRow
}

// OutgoingFile is a file delivered back to the user.
type OutgoingFile struct {
	ChatID        int64
	Upload        UploadHandle
	FileName      string // explicit filename attribute
	Caption       string
	Markdown      bool
	ForceDocument bool
	Kind          model.FileKind
	MimeType      string
}

// Messenger is the outbound half of the chat transport.
type Messenger interface {
	Send(ctx context.Context, msg OutboundMessage) (MessageRef, error)
	// Edit replaces text and buttons of a message. A nil buttons slice removes them.
	Edit(ctx context.Context, ref MessageRef, text string, buttons []ButtonRow) error
	Delete(ctx context.Context, chatID int64, messageIDs ...int) error
	SendFile(ctx context.Context, file OutgoingFile) error
	AnswerButton(ctx context.Context, callbackID, text string) error
}

// Source is the inbound half of the chat transport.
type Source interface {
	Updates(ctx context.Context) (<-chan model.Inbound, error)
}
