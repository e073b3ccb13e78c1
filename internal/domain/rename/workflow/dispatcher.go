// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package workflow routes inbound chat events into rename sessions and starts transfers.
package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/ManuGH/renamebot/internal/domain/rename/model"
	"github.com/ManuGH/renamebot/internal/domain/rename/operation"
	"github.com/ManuGH/renamebot/internal/domain/rename/ports"
	"github.com/ManuGH/renamebot/internal/domain/rename/session"
	"github.com/ManuGH/renamebot/internal/domain/rename/transfer"
	"github.com/ManuGH/renamebot/internal/log"
	"github.com/ManuGH/renamebot/internal/metrics"
)

// Runner executes one transfer to completion.
type Runner interface {
	Run(ctx context.Context, req transfer.Request) model.Result
}

// Config bounds the dispatcher.
type Config struct {
	// MaxConcurrentTransfers caps simultaneously running transfers. Zero means 4.
	MaxConcurrentTransfers int64
	// SideEffectTimeout bounds a single prompt send, edit or delete.
	SideEffectTimeout time.Duration
}

// Dispatcher is the single entry point for inbound events.
// Dispatch must be called sequentially per user; transfers run on their own goroutines.
type Dispatcher struct {
	cfg       Config
	sessions  *session.Registry
	store     *operation.Store
	runner    Runner
	messenger ports.Messenger
	slots     *semaphore.Weighted
	workers   workerGroup
	now       func() time.Time

	// workCtx outlives individual Dispatch calls; transfers run under it.
	workCtx    context.Context
	cancelWork context.CancelFunc
}

// Option customizes a Dispatcher.
type Option func(*Dispatcher)

// WithClock replaces the clock used for new operations.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// New wires a dispatcher.
func New(cfg Config, sessions *session.Registry, store *operation.Store, runner Runner, messenger ports.Messenger, opts ...Option) *Dispatcher {
	if cfg.MaxConcurrentTransfers <= 0 {
		cfg.MaxConcurrentTransfers = 4
	}
	if cfg.SideEffectTimeout <= 0 {
		cfg.SideEffectTimeout = 10 * time.Second
	}
	workCtx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		cfg:        cfg,
		sessions:   sessions,
		store:      store,
		runner:     runner,
		messenger:  messenger,
		slots:      semaphore.NewWeighted(cfg.MaxConcurrentTransfers),
		now:        time.Now,
		workCtx:    workCtx,
		cancelWork: cancel,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch classifies ev and applies it. Commands win over everything else,
// then button presses, files and plain text.
func (d *Dispatcher) Dispatch(ctx context.Context, ev model.Inbound) {
	ctx = log.ContextWithUserID(ctx, ev.UserID)
	logger := log.WithComponentFromContext(ctx, "workflow")

	switch {
	case ev.Button == nil && ev.IsCommand():
		metrics.IncInbound("command")
		d.handleCommand(ctx, ev, logger)
	case ev.Button != nil:
		metrics.IncInbound("button")
		d.handleButton(ctx, ev, logger)
	case ev.File != nil:
		metrics.IncInbound("file")
		d.handleFile(ctx, ev, logger)
	case ev.Text != "":
		metrics.IncInbound("text")
		d.handleText(ctx, ev, logger)
	default:
		metrics.IncInbound("ignored")
		logger.Debug().Str(log.FieldEvent, "workflow.ignored").Msg("inbound event without content")
	}
}

// Active returns the number of transfers started by this dispatcher that are still running.
func (d *Dispatcher) Active() int {
	return d.workers.Active()
}

// Shutdown cancels running transfers and waits for them until ctx ends.
// Dispatch must not be called afterwards.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	n := d.store.CancelAll()
	d.cancelWork()
	logger := log.WithComponentFromContext(ctx, "workflow")
	logger.Info().
		Str(log.FieldEvent, "workflow.shutdown").
		Int("cancelled", n).
		Msg("cancelling running transfers")
	return d.workers.CloseAndWait(ctx)
}

func (d *Dispatcher) handleCommand(ctx context.Context, ev model.Inbound, logger zerolog.Logger) {
	switch ev.Command() {
	case "start":
		d.reply(ctx, ev.ChatID, textWelcome, false, logger)
	case "help":
		d.reply(ctx, ev.ChatID, textHelp, true, logger)
	case "cancel":
		d.cancelCommand(ctx, ev, logger)
	default:
		d.reply(ctx, ev.ChatID, textUnknownCommand, false, logger)
	}
}

func (d *Dispatcher) cancelCommand(ctx context.Context, ev model.Inbound, logger zerolog.Logger) {
	snap, ok := d.sessions.Lookup(ev.UserID)
	if !ok {
		d.reply(ctx, ev.ChatID, textNothingToCancel, false, logger)
		return
	}
	if snap.State == model.StateTransferring {
		if d.cancelOperation(ctx, ev.UserID, snap.OperationID) {
			d.reply(ctx, ev.ChatID, textCancelling, false, logger)
			return
		}
		d.reply(ctx, ev.ChatID, textAlreadyFinished, false, logger)
		return
	}

	aborted, err := d.sessions.Abort(ctx, ev.UserID)
	if err != nil {
		logger.Debug().Err(err).Str(log.FieldEvent, "workflow.abort_rejected").Msg("abort rejected")
		d.reply(ctx, ev.ChatID, textNothingToCancel, false, logger)
		return
	}
	d.retract(ctx, ev.ChatID, aborted.PromptIDs, logger)
	d.reply(ctx, ev.ChatID, textAborted, false, logger)
}

func (d *Dispatcher) handleButton(ctx context.Context, ev model.Inbound, logger zerolog.Logger) {
	data := ev.Button.Data

	if opID, ok := model.ParseCancelPayload(data); ok {
		answer := textNothingToCancel
		if op, found := d.store.Get(opID); found && op.UserID() == ev.UserID {
			answer = textAlreadyFinished
			if d.cancelOperation(ctx, ev.UserID, opID) {
				answer = textCancelling
			}
		}
		d.answer(ctx, ev.Button.CallbackID, answer, logger)
		return
	}

	if format, ok := model.ParseFormatPayload(data); ok {
		d.chooseFormat(ctx, ev, format, logger)
		return
	}

	logger.Debug().Str(log.FieldEvent, "workflow.unknown_button").Msg("unknown button payload")
	d.answer(ctx, ev.Button.CallbackID, textUnknownAction, logger)
}

// cancelOperation flags the operation. The session ends when the run reports
// its result, which stays Success if the file was already delivered.
func (d *Dispatcher) cancelOperation(ctx context.Context, userID int64, opID string) bool {
	if !d.store.Cancel(opID) {
		return false
	}
	logger := log.WithComponentFromContext(ctx, "workflow")
	logger.Info().
		Str(log.FieldEvent, "transfer.cancel_requested").
		Str(log.FieldOperationID, opID).
		Msg("cancellation requested")
	return true
}

func (d *Dispatcher) chooseFormat(ctx context.Context, ev model.Inbound, format model.Format, logger zerolog.Logger) {
	snap, ok := d.sessions.Lookup(ev.UserID)
	if !ok || snap.State != model.StateAwaitingFormat {
		d.answer(ctx, ev.Button.CallbackID, textStaleChoice, logger)
		return
	}
	if !d.slots.TryAcquire(1) {
		d.answer(ctx, ev.Button.CallbackID, textTooManyRunning, logger)
		return
	}

	op := operation.New(ev.UserID, ev.ChatID, d.now())
	// Registered before the session reaches Transferring so a cancel always finds it.
	if _, err := d.store.Register(op); err != nil {
		d.slots.Release(1)
		logger.Error().Err(err).Str(log.FieldEvent, "workflow.register_failed").Msg("could not register operation")
		d.answer(ctx, ev.Button.CallbackID, textStaleChoice, logger)
		return
	}
	snap, err := d.sessions.ChooseFormat(ctx, ev.UserID, format, op.ID())
	if err != nil {
		d.store.Unregister(op.ID())
		d.slots.Release(1)
		logger.Debug().Err(err).Str(log.FieldEvent, "workflow.format_rejected").Msg("format choice rejected")
		d.answer(ctx, ev.Button.CallbackID, textStaleChoice, logger)
		return
	}
	d.answer(ctx, ev.Button.CallbackID, "", logger)
	d.retract(ctx, ev.ChatID, d.sessions.TakePrompts(ev.UserID), logger)

	req := transfer.Request{
		Op:         op,
		Source:     snap.Source,
		NewName:    snap.NewName,
		AsDocument: snap.AsDocument,
		ChatID:     snap.ChatID,
		Sink:       transfer.NewChatSink(d.messenger, snap.ChatID),
	}
	userID := ev.UserID
	started := d.workers.Go(func() {
		defer d.slots.Release(1)
		res := d.runner.Run(log.ContextWithUserID(d.workCtx, userID), req)
		d.sessions.Complete(d.workCtx, userID, op.ID(), res)
	})
	if !started {
		d.store.Unregister(op.ID())
		d.slots.Release(1)
		d.sessions.Complete(ctx, userID, op.ID(), model.Result{Outcome: model.OutcomeCancelled, Reason: transfer.ErrCancelled})
		logger.Warn().Str(log.FieldEvent, "workflow.rejected_on_shutdown").Msg("transfer not started, shutting down")
	}
}

func (d *Dispatcher) handleFile(ctx context.Context, ev model.Inbound, logger zerolog.Logger) {
	if ev.File.ID == "" {
		d.reply(ctx, ev.ChatID, textUnsupportedFile, false, logger)
		return
	}

	snap, replaced, err := d.sessions.Begin(ctx, ev.UserID, ev.ChatID, *ev.File, ev.MessageID)
	if errors.Is(err, model.ErrTransferInProgress) {
		d.reply(ctx, ev.ChatID, textWaitForTransfer, false, logger)
		return
	}
	if err != nil {
		logger.Error().Err(err).Str(log.FieldEvent, "workflow.begin_failed").Msg("could not start session")
		return
	}
	d.retract(ctx, ev.ChatID, replaced, logger)

	if id, ok := d.reply(ctx, ev.ChatID, fileInfoText(snap.Source), true, logger); ok {
		d.sessions.AddPrompts(ev.UserID, id)
	}
}

func (d *Dispatcher) handleText(ctx context.Context, ev model.Inbound, logger zerolog.Logger) {
	snap, ok := d.sessions.Lookup(ev.UserID)
	if !ok {
		d.reply(ctx, ev.ChatID, textSendFileFirst, false, logger)
		return
	}

	switch snap.State {
	case model.StateAwaitingName:
		snap, err := d.sessions.AcceptName(ctx, ev.UserID, ev.Text)
		if errors.Is(err, model.ErrUserInput) {
			if id, ok := d.reply(ctx, ev.ChatID, textEmptyName, false, logger); ok {
				d.sessions.AddPrompts(ev.UserID, id)
			}
			d.sessions.AddPrompts(ev.UserID, ev.MessageID)
			return
		}
		if err != nil {
			logger.Debug().Err(err).Str(log.FieldEvent, "workflow.name_rejected").Msg("name rejected")
			return
		}
		prompts := append(d.sessions.TakePrompts(ev.UserID), ev.MessageID)
		d.retract(ctx, ev.ChatID, prompts, logger)

		ref, err := d.send(ctx, ports.OutboundMessage{
			ChatID:   ev.ChatID,
			Text:     formatPromptText(snap.NewName),
			Markdown: true,
			Buttons:  formatButtons(),
		})
		if err != nil {
			logger.Warn().Err(err).Str(log.FieldEvent, "workflow.prompt_failed").Msg("format prompt failed")
			return
		}
		d.sessions.AddPrompts(ev.UserID, ref.MessageID)
	case model.StateAwaitingFormat:
		d.reply(ctx, ev.ChatID, textPickFormat, false, logger)
	default:
		d.reply(ctx, ev.ChatID, textBusy, false, logger)
	}
}

func (d *Dispatcher) send(ctx context.Context, msg ports.OutboundMessage) (ports.MessageRef, error) {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.SideEffectTimeout)
	defer cancel()
	return d.messenger.Send(ctx, msg)
}

func (d *Dispatcher) reply(ctx context.Context, chatID int64, text string, markdown bool, logger zerolog.Logger) (int, bool) {
	ref, err := d.send(ctx, ports.OutboundMessage{ChatID: chatID, Text: text, Markdown: markdown})
	if err != nil {
		logger.Warn().Err(err).Str(log.FieldEvent, "workflow.reply_failed").Msg("reply failed")
		return 0, false
	}
	return ref.MessageID, true
}

func (d *Dispatcher) answer(ctx context.Context, callbackID, text string, logger zerolog.Logger) {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.SideEffectTimeout)
	defer cancel()
	if err := d.messenger.AnswerButton(ctx, callbackID, text); err != nil {
		logger.Warn().Err(err).Str(log.FieldEvent, "workflow.answer_failed").Msg("button answer failed")
	}
}

// retract deletes ephemeral prompts. Failures are logged only.
func (d *Dispatcher) retract(ctx context.Context, chatID int64, ids []int, logger zerolog.Logger) {
	if len(ids) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, d.cfg.SideEffectTimeout)
	defer cancel()
	if err := d.messenger.Delete(ctx, chatID, ids...); err != nil {
		logger.Warn().Err(err).Str(log.FieldEvent, "workflow.retract_failed").Ints(log.FieldMessageID, ids).Msg("prompt retraction failed")
	}
}
