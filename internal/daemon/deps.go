// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package daemon

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// ServerConfig configures the operational HTTP listener.
type ServerConfig struct {
	// ListenAddr is the metrics and health listen address (e.g. ":9090")
	ListenAddr string

	ReadTimeout time.Duration

	// ShutdownTimeout bounds server shutdown and every shutdown hook together.
	ShutdownTimeout time.Duration
}

// Deps contains dependencies required by the daemon Manager.
type Deps struct {
	// Logger is the structured logger for the daemon
	Logger zerolog.Logger

	// Handler serves /metrics, /healthz and /readyz. Nil disables the listener.
	Handler http.Handler
}

// Validate checks if the dependencies are valid.
func (d *Deps) Validate() error {
	if d.Logger.GetLevel() == zerolog.Disabled {
		return ErrMissingLogger
	}
	return nil
}
