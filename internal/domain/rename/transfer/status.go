// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package transfer

import (
	"context"
	"fmt"
	"sync"

	"github.com/ManuGH/renamebot/internal/domain/rename/model"
	"github.com/ManuGH/renamebot/internal/domain/rename/ports"
)

// Status texts shown to the user.
const (
	TextPreparing      = "📥 starting download..."
	TextDone           = "done. :)"
	TextCancelled      = "❌ operation cancelled."
	TextDownloadFailed = "❌ download failed."
	TextUploadFailed   = "❌ upload failed."
	TextInternalFailed = "❌ something went wrong, please try again."
	CancelButtonText   = "❌ Cancel"
)

func textPreparingUpload(name string) string {
	return fmt.Sprintf("📤 preparing to upload %q...", name)
}

func cancelButtons(operationID string) []ports.ButtonRow {
	return []ports.ButtonRow{{{Text: CancelButtonText, Data: model.CancelPayload(operationID)}}}
}

// StatusSink receives the status line of one operation.
type StatusSink interface {
	Update(ctx context.Context, text string, buttons []ports.ButtonRow) error
}

// ChatSink shows status as one chat message: the first update sends it,
// later updates edit it in place.
type ChatSink struct {
	messenger ports.Messenger
	chatID    int64

	mu  sync.Mutex
	ref *ports.MessageRef
}

// NewChatSink creates a sink that posts a new status message on first use.
func NewChatSink(m ports.Messenger, chatID int64) *ChatSink {
	return &ChatSink{messenger: m, chatID: chatID}
}

// NewMessageSink creates a sink that edits an existing message.
func NewMessageSink(m ports.Messenger, ref ports.MessageRef) *ChatSink {
	return &ChatSink{messenger: m, chatID: ref.ChatID, ref: &ref}
}

func (s *ChatSink) Update(ctx context.Context, text string, buttons []ports.ButtonRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ref == nil {
		ref, err := s.messenger.Send(ctx, ports.OutboundMessage{ChatID: s.chatID, Text: text, Buttons: buttons})
		if err != nil {
			return err
		}
		s.ref = &ref
		return nil
	}
	return s.messenger.Edit(ctx, *s.ref, text, buttons)
}

// Ref returns the status message once it exists.
func (s *ChatSink) Ref() (ports.MessageRef, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ref == nil {
		return ports.MessageRef{}, false
	}
	return *s.ref, true
}

type discardSink struct{}

func (discardSink) Update(context.Context, string, []ports.ButtonRow) error { return nil }
