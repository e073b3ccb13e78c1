// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"fmt"
	"time"
)

// AppConfig is the resolved runtime configuration.
type AppConfig struct {
	Version    string
	WorkDir    string
	LogLevel   string
	LogService string

	Telegram  TelegramConfig
	Transfer  TransferConfig
	Metrics   MetricsConfig
	Telemetry TelemetryConfig
}

// TelegramConfig holds Bot API settings.
type TelegramConfig struct {
	Token        string
	APIEndpoint  string
	FileEndpoint string
	PollTimeout  time.Duration
	Debug        bool
}

// TransferConfig tunes the transfer controller and dispatcher.
type TransferConfig struct {
	ProgressInterval  time.Duration
	ChunkSize         int
	MaxConcurrent     int
	StatusConcurrency int
	StatusTimeout     time.Duration
	ShutdownTimeout   time.Duration
}

// MetricsConfig controls the metrics and health listener.
type MetricsConfig struct {
	Enabled bool
	Listen  string
}

// TelemetryConfig controls OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled      bool
	Exporter     string // "grpc" or "http"
	Endpoint     string
	SamplingRate float64
}

// String renders the config for logs with the token masked.
func (c AppConfig) String() string {
	return fmt.Sprintf("workDir=%s logLevel=%s telegram={api=%s token=%s poll=%s} transfer={interval=%s chunk=%d max=%d} metrics={enabled=%t listen=%s}",
		c.WorkDir, c.LogLevel, c.Telegram.APIEndpoint, maskSecret(c.Telegram.Token), c.Telegram.PollTimeout,
		c.Transfer.ProgressInterval, c.Transfer.ChunkSize, c.Transfer.MaxConcurrent,
		c.Metrics.Enabled, c.Metrics.Listen)
}

// FileConfig represents the YAML configuration structure.
// Durations are Go duration strings such as "2s".
type FileConfig struct {
	WorkDir    string `yaml:"workDir,omitempty"`
	LogLevel   string `yaml:"logLevel,omitempty"`
	LogService string `yaml:"logService,omitempty"`

	Telegram  TelegramFileConfig  `yaml:"telegram,omitempty"`
	Transfer  TransferFileConfig  `yaml:"transfer,omitempty"`
	Metrics   MetricsFileConfig   `yaml:"metrics,omitempty"`
	Telemetry TelemetryFileConfig `yaml:"telemetry,omitempty"`
}

// TelegramFileConfig is the telegram section of the YAML file.
type TelegramFileConfig struct {
	Token        string `yaml:"token,omitempty"`
	APIEndpoint  string `yaml:"apiEndpoint,omitempty"`
	FileEndpoint string `yaml:"fileEndpoint,omitempty"`
	PollTimeout  string `yaml:"pollTimeout,omitempty"`
	Debug        *bool  `yaml:"debug,omitempty"`
}

// TransferFileConfig is the transfer section of the YAML file.
type TransferFileConfig struct {
	ProgressInterval  string `yaml:"progressInterval,omitempty"`
	ChunkSize         int    `yaml:"chunkSize,omitempty"`
	MaxConcurrent     int    `yaml:"maxConcurrent,omitempty"`
	StatusConcurrency int    `yaml:"statusConcurrency,omitempty"`
	StatusTimeout     string `yaml:"statusTimeout,omitempty"`
	ShutdownTimeout   string `yaml:"shutdownTimeout,omitempty"`
}

// MetricsFileConfig is the metrics section of the YAML file.
type MetricsFileConfig struct {
	Enabled *bool  `yaml:"enabled,omitempty"`
	Listen  string `yaml:"listen,omitempty"`
}

// TelemetryFileConfig is the telemetry section of the YAML file.
type TelemetryFileConfig struct {
	Enabled      *bool    `yaml:"enabled,omitempty"`
	Exporter     string   `yaml:"exporter,omitempty"`
	Endpoint     string   `yaml:"endpoint,omitempty"`
	SamplingRate *float64 `yaml:"samplingRate,omitempty"`
}

func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	return "***"
}
