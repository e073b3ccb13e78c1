// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package model

import (
	"strings"
	"time"
)

// CommandPrefix marks text that is a command and never part of the rename flow.
const CommandPrefix = "/"

// Button payload prefixes.
const (
	PayloadFormatPrefix = "fmt:"
	PayloadCancelPrefix = "cancel:"
)

// Inbound is one event delivered by the chat transport.
type Inbound struct {
	UserID     int64
	ChatID     int64
	MessageID  int
	Text       string // message text or file caption
	File       *FileRef
	Button     *ButtonPress
	ReceivedAt time.Time
}

// ButtonPress is an inline button callback.
type ButtonPress struct {
	CallbackID string
	Data       string
	MessageID  int
}

// IsCommand reports whether the inbound text is a command invocation.
func (in Inbound) IsCommand() bool {
	return strings.HasPrefix(strings.TrimSpace(in.Text), CommandPrefix)
}

// Command returns the lower-cased command name without prefix or bot suffix.
func (in Inbound) Command() string {
	text := strings.TrimSpace(in.Text)
	if !strings.HasPrefix(text, CommandPrefix) {
		return ""
	}
	word := strings.Fields(strings.TrimPrefix(text, CommandPrefix))
	if len(word) == 0 {
		return ""
	}
	name, _, _ := strings.Cut(word[0], "@")
	return strings.ToLower(name)
}

// FormatPayload encodes a format choice as a button payload.
func FormatPayload(f Format) string {
	return PayloadFormatPrefix + string(f)
}

// ParseFormatPayload decodes a format button payload.
func ParseFormatPayload(data string) (Format, bool) {
	raw, ok := strings.CutPrefix(data, PayloadFormatPrefix)
	if !ok {
		return "", false
	}
	switch Format(raw) {
	case FormatDocument, FormatOriginal:
		return Format(raw), true
	default:
		return "", false
	}
}

// CancelPayload encodes a cancel request for an operation.
func CancelPayload(operationID string) string {
	return PayloadCancelPrefix + operationID
}

// ParseCancelPayload extracts the operation ID from a cancel payload.
func ParseCancelPayload(data string) (string, bool) {
	id, ok := strings.CutPrefix(data, PayloadCancelPrefix)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}
