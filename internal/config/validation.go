// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ManuGH/renamebot/internal/validate"
)

// Validate validates an AppConfig using the centralized validation package
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.NotEmpty("Telegram.Token", cfg.Telegram.Token)
	endpoint(v, "Telegram.APIEndpoint", cfg.Telegram.APIEndpoint)
	endpoint(v, "Telegram.FileEndpoint", cfg.Telegram.FileEndpoint)
	// The Bot API takes the long-poll timeout in whole seconds.
	v.DurationRange("Telegram.PollTimeout", cfg.Telegram.PollTimeout, time.Second, 2*time.Minute)

	v.WritableDirectory("WorkDir", cfg.WorkDir, false)
	v.OneOf("LogLevel", strings.ToLower(cfg.LogLevel), validate.LogLevels())

	v.DurationRange("Transfer.ProgressInterval", cfg.Transfer.ProgressInterval, 100*time.Millisecond, time.Minute)
	v.Range("Transfer.ChunkSize", cfg.Transfer.ChunkSize, 4<<10, 16<<20)
	v.Range("Transfer.MaxConcurrent", cfg.Transfer.MaxConcurrent, 1, 64)
	v.Range("Transfer.StatusConcurrency", cfg.Transfer.StatusConcurrency, 1, 256)
	v.DurationRange("Transfer.StatusTimeout", cfg.Transfer.StatusTimeout, time.Second, 2*time.Minute)
	v.DurationRange("Transfer.ShutdownTimeout", cfg.Transfer.ShutdownTimeout, time.Second, 10*time.Minute)

	if cfg.Metrics.Enabled {
		v.ListenAddr("Metrics.Listen", cfg.Metrics.Listen)
	}

	if cfg.Telemetry.Enabled {
		v.OneOf("Telemetry.Exporter", cfg.Telemetry.Exporter, validate.TraceExporters())
		v.NotEmpty("Telemetry.Endpoint", cfg.Telemetry.Endpoint)
		v.FloatRange("Telemetry.SamplingRate", cfg.Telemetry.SamplingRate, 0, 1)
	}

	return v.Err()
}

// endpoint validates a Bot API format string taking token and method.
func endpoint(v *validate.Validator, field, format string) {
	if n := strings.Count(format, "%s"); n != 2 {
		v.AddError(field, fmt.Sprintf("must contain exactly two %%s verbs, got %d", n), format)
		return
	}
	v.URL(field, fmt.Sprintf(format, "token", "method"), []string{"http", "https"})
}
