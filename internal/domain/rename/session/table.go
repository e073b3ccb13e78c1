// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package session

import (
	"context"
	"fmt"

	"github.com/ManuGH/renamebot/internal/domain/rename/model"
	"github.com/ManuGH/renamebot/internal/domain/rename/transfer"
	"github.com/ManuGH/renamebot/internal/fsm"
)

type (
	transition = fsm.Transition[model.SessionState, model.SessionEvent]
	machine    = fsm.Machine[model.SessionState, model.SessionEvent]
)

type inputKey struct{}

// input is the user-supplied value an event carries into its guard.
type input struct {
	name   string
	format model.Format
}

func withInput(ctx context.Context, in input) context.Context {
	return context.WithValue(ctx, inputKey{}, in)
}

func inputFrom(ctx context.Context) input {
	in, _ := ctx.Value(inputKey{}).(input)
	return in
}

// requireName rejects names that sanitize to nothing.
func requireName(ctx context.Context, _ model.SessionState, _ model.SessionEvent) error {
	if transfer.SanitizeName(inputFrom(ctx).name) == "" {
		return fmt.Errorf("%w: empty file name", model.ErrUserInput)
	}
	return nil
}

func requireFormat(ctx context.Context, _ model.SessionState, _ model.SessionEvent) error {
	switch f := inputFrom(ctx).format; f {
	case model.FormatDocument, model.FormatOriginal:
		return nil
	default:
		return fmt.Errorf("%w: unknown format %q", model.ErrUserInput, f)
	}
}

// table is the complete rename session lifecycle. A session is created in
// AwaitingName when a file arrives; terminal states end it.
var table = fsm.MustTable([]transition{
	{From: model.StateAwaitingName, Event: model.EvNameAccepted, To: model.StateAwaitingFormat, Guard: requireName},
	{From: model.StateAwaitingFormat, Event: model.EvFormatChosen, To: model.StateTransferring, Guard: requireFormat},

	{From: model.StateTransferring, Event: model.EvTransferSucceeded, To: model.StateDone},
	{From: model.StateTransferring, Event: model.EvTransferCancelled, To: model.StateCancelled},
	{From: model.StateTransferring, Event: model.EvTransferFailed, To: model.StateFailed},

	{From: model.StateAwaitingName, Event: model.EvAborted, To: model.StateCancelled},
	{From: model.StateAwaitingFormat, Event: model.EvAborted, To: model.StateCancelled},
})
