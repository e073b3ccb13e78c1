// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package daemon wires renamebot together and owns its runtime lifecycle.
package daemon

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/renamebot/internal/domain/rename/model"
	"github.com/ManuGH/renamebot/internal/domain/rename/ports"
	"github.com/ManuGH/renamebot/internal/log"
)

// Dispatcher consumes inbound events.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev model.Inbound)
}

// App owns the event loop and delegates listener and shutdown management to Manager.
type App struct {
	logger     zerolog.Logger
	manager    Manager
	source     ports.Source
	dispatcher Dispatcher
}

// NewApp creates a new App orchestrator.
func NewApp(logger zerolog.Logger, manager Manager, source ports.Source, dispatcher Dispatcher) *App {
	return &App{
		logger:     logger,
		manager:    manager,
		source:     source,
		dispatcher: dispatcher,
	}
}

// Run starts the event loop and the manager and blocks until ctx is cancelled
// or a fatal error occurs.
func (a *App) Run(ctx context.Context) error {
	switch {
	case a.manager == nil:
		return ErrMissingManager
	case a.source == nil:
		return ErrMissingSource
	case a.dispatcher == nil:
		return ErrMissingDispatcher
	}

	g, gctx := errgroup.WithContext(ctx)

	updates, err := a.source.Updates(gctx)
	if err != nil {
		return fmt.Errorf("subscribe to updates: %w", err)
	}

	g.Go(func() error {
		a.consume(gctx, updates)
		return nil
	})

	g.Go(func() error {
		return a.manager.Start(gctx)
	})

	return g.Wait()
}

// consume dispatches events one at a time until ctx ends or the source closes.
func (a *App) consume(ctx context.Context, updates <-chan model.Inbound) {
	a.logger.Info().Str(log.FieldEvent, "events.started").Msg("consuming updates")
	defer a.logger.Info().Str(log.FieldEvent, "events.stopped").Msg("update loop stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-updates:
			if !ok {
				return
			}
			a.dispatcher.Dispatch(ctx, ev)
		}
	}
}
