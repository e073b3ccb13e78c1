// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package transfer runs one download, rename and upload cycle with throttled
// progress reporting and cooperative cancellation.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/renameio/v2"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"github.com/ManuGH/renamebot/internal/domain/rename/model"
	"github.com/ManuGH/renamebot/internal/domain/rename/operation"
	"github.com/ManuGH/renamebot/internal/domain/rename/ports"
	"github.com/ManuGH/renamebot/internal/log"
	"github.com/ManuGH/renamebot/internal/metrics"
	"github.com/ManuGH/renamebot/internal/platform/fs"
	"github.com/ManuGH/renamebot/internal/telemetry"
)

const artifactName = "download.part"

// Config tunes the controller.
type Config struct {
	// ProgressInterval is the minimum spacing between progress updates.
	ProgressInterval time.Duration
	// StatusConcurrency bounds concurrent status edits across all operations.
	StatusConcurrency int64
	// StatusTimeout bounds a single status edit.
	StatusTimeout time.Duration
	// TerminalWait bounds how long the final status waits for an in-flight edit.
	TerminalWait time.Duration
}

func (c Config) withDefaults() Config {
	if c.ProgressInterval < 0 {
		c.ProgressInterval = 0
	}
	if c.StatusConcurrency <= 0 {
		c.StatusConcurrency = 8
	}
	if c.StatusTimeout <= 0 {
		c.StatusTimeout = 10 * time.Second
	}
	if c.TerminalWait <= 0 {
		c.TerminalWait = 5 * time.Second
	}
	return c
}

// Request describes one transfer.
type Request struct {
	Op         *operation.Operation
	Source     model.FileRef
	NewName    string
	AsDocument bool
	ChatID     int64
	Sink       StatusSink
}

// Controller executes transfers. It is safe for concurrent use; each Run is independent.
type Controller struct {
	cfg        Config
	store      *operation.Store
	transferer ports.Transferer
	messenger  ports.Messenger
	workspace  *fs.Workspace
	statusSem  *semaphore.Weighted
	tracer     trace.Tracer
	now        func() time.Time
}

// Option customizes a Controller.
type Option func(*Controller)

// WithClock replaces the wall clock used for throttling and throughput.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// NewController wires a controller.
func NewController(cfg Config, store *operation.Store, transferer ports.Transferer, messenger ports.Messenger, workspace *fs.Workspace, opts ...Option) *Controller {
	cfg = cfg.withDefaults()
	c := &Controller{
		cfg:        cfg,
		store:      store,
		transferer: transferer,
		messenger:  messenger,
		workspace:  workspace,
		statusSem:  semaphore.NewWeighted(cfg.StatusConcurrency),
		tracer:     telemetry.Tracer("renamebot/transfer"),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run executes req and returns its terminal result. All temporary files are
// removed and the operation is unregistered before Run returns.
func (c *Controller) Run(ctx context.Context, req Request) (res model.Result) {
	op := req.Op
	if op == nil {
		return model.Result{Outcome: model.OutcomeFailed, Reason: fmt.Errorf("%w: nil operation", ErrInternal)}
	}
	start := c.now()
	ctx = log.ContextWithOperationID(log.ContextWithUserID(ctx, op.UserID()), op.ID())
	logger := log.WithComponentFromContext(ctx, "transfer")

	ctx, span := c.tracer.Start(ctx, "transfer.run", trace.WithAttributes(
		telemetry.TransferAttributes(op.ID(), op.UserID(), string(req.Source.Kind), req.Source.Size, req.AsDocument)...,
	))
	runCtx, abort := context.WithCancel(ctx)
	defer abort()

	if err := c.register(op); err != nil {
		span.End()
		return model.Result{Outcome: model.OutcomeFailed, Reason: fmt.Errorf("%w: register: %v", ErrInternal, err)}
	}
	op.BindAbort(abort)

	if req.Sink == nil {
		req.Sink = discardSink{}
	}
	sink := req.Sink
	em := newEmitter(sink, c.statusSem, c.cfg.StatusTimeout, c.cfg.ProgressInterval, c.now, logger)

	defer func() {
		if r := recover(); r != nil {
			logger.Error().
				Str(log.FieldEvent, "transfer.panic").
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("transfer panicked")
			res = model.Result{Outcome: model.OutcomeFailed, Reason: fmt.Errorf("%w: panic: %v", ErrInternal, r)}
		}

		em.seal(c.cfg.TerminalWait)
		op.Finish()
		c.store.Unregister(op.ID())
		if err := c.workspace.Remove(op.ID()); err != nil {
			logger.Warn().Err(err).Str(log.FieldEvent, "transfer.cleanup_failed").Msg("failed to remove operation workspace")
		}
		c.terminal(ctx, sink, res, logger)

		elapsed := c.now().Sub(start)
		metrics.RecordTransfer(string(res.Outcome), elapsed)
		span.SetAttributes(telemetry.OutcomeAttributes(string(res.Outcome), res.FileName)...)
		if res.Outcome == model.OutcomeFailed {
			span.RecordError(res.Reason)
			span.SetStatus(codes.Error, "transfer failed")
		}
		span.End()

		ev := logger.Info()
		if res.Outcome == model.OutcomeFailed {
			ev = logger.Warn().Err(res.Reason)
		}
		ev.Str(log.FieldEvent, "transfer.finished").
			Str(log.FieldOutcome, string(res.Outcome)).
			Str(log.FieldFileName, res.FileName).
			Dur("elapsed", elapsed).
			Msg("transfer finished")
	}()

	logger.Info().
		Str(log.FieldEvent, "transfer.started").
		Int64(log.FieldBytes, req.Source.Size).
		Bool("as_document", req.AsDocument).
		Msg("transfer started")

	return c.run(runCtx, req, em, logger)
}

func (c *Controller) run(ctx context.Context, req Request, em *emitter, logger zerolog.Logger) model.Result {
	op := req.Op
	src := req.Source
	buttons := cancelButtons(op.ID())
	tr := newTracker(c.now, c.cfg.ProgressInterval, c.now())

	c.update(ctx, req.Sink, TextPreparing, buttons, logger)
	op.BeginPhase(operation.DirectionDownload, src.Size, tr.mark())
	if c.cancelled(ctx, op) {
		return cancelled()
	}

	dir, err := c.workspace.Dir(op.ID())
	if err != nil {
		return failed(fmt.Errorf("%w: %v", ErrInternal, err))
	}
	pending, err := renameio.NewPendingFile(filepath.Join(dir, artifactName),
		renameio.WithTempDir(dir),
		renameio.WithPermissions(0o600),
	)
	if err != nil {
		return failed(fmt.Errorf("%w: %v", ErrInternal, err))
	}
	defer func() { _ = pending.Cleanup() }()

	n, err := c.transferer.Download(ctx, src, pending, c.progress(op, tr, em, buttons))
	if c.cancelled(ctx, op) {
		return cancelled()
	}
	if err != nil {
		return failed(fmt.Errorf("%w: %w", ErrDownload, err))
	}
	if n == 0 && src.Size > 0 {
		return failed(fmt.Errorf("%w: no artifact", ErrDownload))
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return failed(fmt.Errorf("%w: commit artifact: %w", ErrDownload, err))
	}
	logger.Debug().Str(log.FieldEvent, "transfer.downloaded").Int64(log.FieldBytes, n).Msg("download complete")

	name := ResolveName(req.NewName, src.Name)
	if name == "" {
		name = ResolveName(src.DisplayName(), src.Name)
	}
	if name == "" {
		name = fallbackName
	}
	final, err := fs.ConfineRelPath(dir, name)
	if err != nil {
		return failed(fmt.Errorf("%w: %v", ErrInternal, err))
	}
	if err := os.Rename(filepath.Join(dir, artifactName), final); err != nil {
		return failed(fmt.Errorf("%w: rename artifact: %v", ErrInternal, err))
	}

	if c.cancelled(ctx, op) {
		return cancelled()
	}

	now, ok := tr.begin(operation.DirectionUpload)
	op.BeginPhase(operation.DirectionUpload, n, now)
	if ok {
		em.post(status{text: textPreparingUpload(name), buttons: buttons})
	}

	progress := c.progress(op, tr, em, buttons)
	handle, err := c.transferer.Upload(ctx, ports.UploadSource{Path: final, Name: name, Size: n}, progress)
	if c.cancelled(ctx, op) {
		if handle != nil {
			_ = handle.Close()
		}
		return cancelled()
	}
	if err != nil {
		return failed(fmt.Errorf("%w: %w", ErrUpload, err))
	}
	defer func() { _ = handle.Close() }()

	mime := src.MimeType
	if mime == "" {
		if m, err := mimetype.DetectFile(final); err == nil {
			mime = m.String()
		}
	}

	// A nil error means the file is in the chat; a cancel arriving after that
	// point cannot undo it.
	err = c.messenger.SendFile(ctx, ports.OutgoingFile{
		ChatID:        req.ChatID,
		Upload:        handle,
		FileName:      name,
		Caption:       "**" + name + "**",
		Markdown:      true,
		ForceDocument: req.AsDocument,
		Kind:          src.Kind,
		MimeType:      mime,
	})
	if err != nil {
		if c.cancelled(ctx, op) {
			return cancelled()
		}
		return failed(fmt.Errorf("%w: deliver: %w", ErrUpload, err))
	}
	op.Finish()

	return model.Result{Outcome: model.OutcomeSuccess, FileName: name}
}

// progress builds the callback handed to the transfer primitive.
func (c *Controller) progress(op *operation.Operation, tr *tracker, em *emitter, buttons []ports.ButtonRow) ports.ProgressFunc {
	return func(current, total int64) {
		if op.Cancelled() {
			op.Abort()
			return
		}
		p, delta, ok := tr.observe(current, total)
		metrics.AddTransferBytes(string(p.Direction), delta)
		if !ok {
			return
		}
		if op.Cancelled() {
			op.Abort()
			return
		}
		op.Touch(p.At)
		em.post(status{text: renderProgress(p), buttons: buttons})
	}
}

// register adds op to the store unless the caller already registered it, so
// a cancel can find the operation before Run starts.
func (c *Controller) register(op *operation.Operation) error {
	if got, ok := c.store.Get(op.ID()); ok {
		if got != op {
			return operation.ErrDuplicateID
		}
		return nil
	}
	_, err := c.store.Register(op)
	return err
}

func (c *Controller) cancelled(ctx context.Context, op *operation.Operation) bool {
	return op.Cancelled() || errors.Is(ctx.Err(), context.Canceled)
}

// update sends a status synchronously. Only used outside the transfer loop.
func (c *Controller) update(ctx context.Context, sink StatusSink, text string, buttons []ports.ButtonRow, logger zerolog.Logger) {
	if sink == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.StatusTimeout)
	defer cancel()
	if err := sink.Update(ctx, text, buttons); err != nil {
		metrics.IncStatusUpdate("error")
		logger.Warn().Err(err).Str(log.FieldEvent, "status.failed").Msg("status update failed")
		return
	}
	metrics.IncStatusUpdate("sent")
}

func (c *Controller) terminal(ctx context.Context, sink StatusSink, res model.Result, logger zerolog.Logger) {
	c.update(ctx, sink, TerminalText(res), nil, logger)
}

// TerminalText is the final status line for res.
func TerminalText(res model.Result) string {
	switch res.Outcome {
	case model.OutcomeSuccess:
		return TextDone
	case model.OutcomeCancelled:
		return TextCancelled
	}
	switch {
	case errors.Is(res.Reason, ErrDownload):
		return TextDownloadFailed
	case errors.Is(res.Reason, ErrUpload):
		return TextUploadFailed
	default:
		return TextInternalFailed
	}
}

func failed(err error) model.Result {
	return model.Result{Outcome: model.OutcomeFailed, Reason: err}
}

func cancelled() model.Result {
	return model.Result{Outcome: model.OutcomeCancelled, Reason: ErrCancelled}
}
