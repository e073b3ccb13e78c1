// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInboundCommand(t *testing.T) {
	tests := []struct {
		text      string
		isCommand bool
		command   string
	}{
		{text: "/start", isCommand: true, command: "start"},
		{text: "  /HELP  ", isCommand: true, command: "help"},
		{text: "/cancel@renamebot now", isCommand: true, command: "cancel"},
		{text: "/", isCommand: true, command: ""},
		{text: "report", isCommand: false, command: ""},
		{text: "my/report", isCommand: false, command: ""},
		{text: "", isCommand: false, command: ""},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			in := Inbound{Text: tt.text}
			assert.Equal(t, tt.isCommand, in.IsCommand())
			assert.Equal(t, tt.command, in.Command())
		})
	}
}

func TestFormatPayloadRoundTrip(t *testing.T) {
	for _, f := range []Format{FormatDocument, FormatOriginal} {
		got, ok := ParseFormatPayload(FormatPayload(f))
		assert.True(t, ok)
		assert.Equal(t, f, got)
	}

	_, ok := ParseFormatPayload("fmt:zip")
	assert.False(t, ok)
	_, ok = ParseFormatPayload("doc")
	assert.False(t, ok)
}

func TestParseCancelPayload(t *testing.T) {
	id, ok := ParseCancelPayload(CancelPayload("42_abc"))
	assert.True(t, ok)
	assert.Equal(t, "42_abc", id)

	_, ok = ParseCancelPayload("cancel:")
	assert.False(t, ok)
	_, ok = ParseCancelPayload("fmt:doc")
	assert.False(t, ok)
}

func TestResultEvent(t *testing.T) {
	assert.Equal(t, EvTransferSucceeded, Result{Outcome: OutcomeSuccess}.Event())
	assert.Equal(t, EvTransferCancelled, Result{Outcome: OutcomeCancelled}.Event())
	assert.Equal(t, EvTransferFailed, Result{Outcome: OutcomeFailed}.Event())
	assert.True(t, StateDone.IsTerminal())
	assert.False(t, StateTransferring.IsTerminal())
}

func TestFileRefDisplay(t *testing.T) {
	f := FileRef{}
	assert.Equal(t, UnknownFileName, f.DisplayName())
	assert.Equal(t, "application/octet-stream", f.DisplayMimeType())
	assert.True(t, FormatDocument.AsDocument())
	assert.False(t, FormatOriginal.AsDocument())
}
