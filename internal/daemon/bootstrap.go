// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package daemon

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ManuGH/renamebot/internal/config"
	"github.com/ManuGH/renamebot/internal/domain/rename/operation"
	"github.com/ManuGH/renamebot/internal/domain/rename/session"
	"github.com/ManuGH/renamebot/internal/domain/rename/transfer"
	"github.com/ManuGH/renamebot/internal/domain/rename/workflow"
	"github.com/ManuGH/renamebot/internal/health"
	"github.com/ManuGH/renamebot/internal/infra/telegram"
	"github.com/ManuGH/renamebot/internal/log"
	"github.com/ManuGH/renamebot/internal/platform/fs"
	"github.com/ManuGH/renamebot/internal/telemetry"
)

// pollGrace is added to the long-poll timeout before the heartbeat counts as stale.
const pollGrace = 30 * time.Second

// Bootstrap builds the App from a validated configuration. It connects to the
// Bot API, so a bad token fails here.
func Bootstrap(ctx context.Context, cfg config.AppConfig) (*App, error) {
	logger := log.WithComponent("daemon")
	logger.Info().
		Str("version", cfg.Version).
		Str("config", cfg.String()).
		Msg("starting renamebot")

	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    cfg.LogService,
		ServiceVersion: cfg.Version,
		ExporterType:   cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("telemetry initialization failed, continuing without tracing")
		tp = nil
	}

	ws, err := fs.NewWorkspace(filepath.Join(cfg.WorkDir, "transfers"))
	if err != nil {
		return nil, fmt.Errorf("workspace: %w", err)
	}
	if n, err := ws.Sweep(); err != nil {
		logger.Warn().Err(err).Str(log.FieldEvent, "workspace.sweep_failed").Msg("could not clear stale transfers")
	} else if n > 0 {
		logger.Info().Str(log.FieldEvent, "workspace.swept").Int("removed", n).Msg("removed stale transfer directories")
	}

	client, err := telegram.New(telegram.Config{
		Token:        cfg.Telegram.Token,
		APIEndpoint:  cfg.Telegram.APIEndpoint,
		FileEndpoint: cfg.Telegram.FileEndpoint,
		PollTimeout:  cfg.Telegram.PollTimeout,
		ChunkSize:    cfg.Transfer.ChunkSize,
		Debug:        cfg.Telegram.Debug,
	})
	if err != nil {
		return nil, err
	}

	store := operation.NewStore()
	sessions := session.NewRegistry()
	controller := transfer.NewController(transfer.Config{
		ProgressInterval:  cfg.Transfer.ProgressInterval,
		StatusConcurrency: int64(cfg.Transfer.StatusConcurrency),
		StatusTimeout:     cfg.Transfer.StatusTimeout,
	}, store, client, client, ws)
	dispatcher := workflow.New(workflow.Config{
		MaxConcurrentTransfers: int64(cfg.Transfer.MaxConcurrent),
		SideEffectTimeout:      cfg.Transfer.StatusTimeout,
	}, sessions, store, controller, client)

	var handler http.Handler
	if cfg.Metrics.Enabled {
		handler = NewRouter(newHealth(cfg, ws, client, dispatcher), promhttp.Handler())
	}
	mgr, err := NewManager(ServerConfig{
		ListenAddr:      cfg.Metrics.Listen,
		ShutdownTimeout: cfg.Transfer.ShutdownTimeout,
	}, Deps{Logger: logger, Handler: handler})
	if err != nil {
		return nil, err
	}

	if tp != nil {
		mgr.RegisterShutdownHook("telemetry", tp.Shutdown)
	}
	mgr.RegisterShutdownHook("workspace", func(context.Context) error {
		_, err := ws.Sweep()
		return err
	})
	mgr.RegisterShutdownHook("transfers", dispatcher.Shutdown)

	return NewApp(logger, mgr, client, dispatcher), nil
}

func newHealth(cfg config.AppConfig, ws *fs.Workspace, client *telegram.Client, dispatcher *workflow.Dispatcher) *health.Manager {
	hm := health.NewManager(cfg.Version)
	hm.RegisterChecker(health.NewDirChecker("work_dir", ws.Root()))
	hm.RegisterChecker(health.NewHeartbeatChecker("telegram_poll", client.LastPoll, cfg.Telegram.PollTimeout+pollGrace))
	hm.RegisterChecker(health.NewCapacityChecker(dispatcher.Active, cfg.Transfer.MaxConcurrent))
	return hm
}
