// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultAPIEndpoint  = "https://api.telegram.org/bot%s/%s"
	defaultFileEndpoint = "https://api.telegram.org/file/bot%s/%s"
)

// Env keys. BOT_TOKEN is accepted as an alias for RENAMEBOT_TOKEN.
const (
	EnvToken             = "RENAMEBOT_TOKEN"
	EnvTokenAlias        = "BOT_TOKEN"
	EnvAPIEndpoint       = "RENAMEBOT_API_ENDPOINT"
	EnvFileEndpoint      = "RENAMEBOT_FILE_ENDPOINT"
	EnvPollTimeout       = "RENAMEBOT_POLL_TIMEOUT"
	EnvDebug             = "RENAMEBOT_DEBUG"
	EnvWorkDir           = "RENAMEBOT_WORK_DIR"
	EnvLogLevel          = "RENAMEBOT_LOG_LEVEL"
	EnvLogService        = "RENAMEBOT_LOG_SERVICE"
	EnvProgressInterval  = "RENAMEBOT_PROGRESS_INTERVAL"
	EnvChunkSize         = "RENAMEBOT_CHUNK_SIZE"
	EnvMaxConcurrent     = "RENAMEBOT_MAX_CONCURRENT"
	EnvStatusConcurrency = "RENAMEBOT_STATUS_CONCURRENCY"
	EnvStatusTimeout     = "RENAMEBOT_STATUS_TIMEOUT"
	EnvShutdownTimeout   = "RENAMEBOT_SHUTDOWN_TIMEOUT"
	EnvMetricsEnabled    = "RENAMEBOT_METRICS_ENABLED"
	EnvMetricsListen     = "RENAMEBOT_METRICS_LISTEN"
	EnvTracingEnabled    = "RENAMEBOT_TRACING_ENABLED"
	EnvTracingExporter   = "RENAMEBOT_TRACING_EXPORTER"
	EnvTracingEndpoint   = "RENAMEBOT_TRACING_ENDPOINT"
	EnvTracingSampling   = "RENAMEBOT_TRACING_SAMPLING_RATE"
)

// Loader handles configuration loading with precedence
type Loader struct {
	configPath      string
	version         string
	ConsumedEnvKeys map[string]struct{}
}

// NewLoader creates a new configuration loader
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

func (l *Loader) envString(key, defaultVal string) string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseString(key, defaultVal)
}

func (l *Loader) envBool(key string, defaultVal bool) bool {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseBool(key, defaultVal)
}

func (l *Loader) envInt(key string, defaultVal int) int {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt(key, defaultVal)
}

func (l *Loader) envDuration(key string, defaultVal time.Duration) time.Duration {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseDuration(key, defaultVal)
}

func (l *Loader) envFloat(key string, defaultVal float64) float64 {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseFloat(key, defaultVal)
}

// Load loads configuration with precedence: ENV > File > Defaults,
// then validates the result.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		fileCfg, err := l.loadFile(l.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		if err := mergeFileConfig(&cfg, fileCfg); err != nil {
			return cfg, fmt.Errorf("merge file config: %w", err)
		}
	}

	if err := l.mergeEnvConfig(&cfg); err != nil {
		return cfg, err
	}

	if abs, err := filepath.Abs(cfg.WorkDir); err == nil {
		cfg.WorkDir = abs
	}
	cfg.Version = l.version

	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		return cfg, ErrMissingToken
	}
	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Defaults returns the built-in configuration.
func Defaults() AppConfig {
	return AppConfig{
		WorkDir:    "data",
		LogLevel:   "info",
		LogService: "renamebot",
		Telegram: TelegramConfig{
			APIEndpoint:  defaultAPIEndpoint,
			FileEndpoint: defaultFileEndpoint,
			PollTimeout:  50 * time.Second,
		},
		Transfer: TransferConfig{
			ProgressInterval:  2 * time.Second,
			ChunkSize:         512 << 10,
			MaxConcurrent:     4,
			StatusConcurrency: 8,
			StatusTimeout:     10 * time.Second,
			ShutdownTimeout:   30 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Listen:  ":9090",
		},
		Telemetry: TelemetryConfig{
			Exporter:     "grpc",
			Endpoint:     "localhost:4317",
			SamplingRate: 1.0,
		},
	}
}

// LoadFileConfig loads a YAML config file without applying defaults or env overrides.
func LoadFileConfig(path string) (*FileConfig, error) {
	return NewLoader(path, "").loadFile(path)
}

// loadFile loads configuration from a YAML file with STRICT parsing.
// Unknown fields will cause a fatal error to prevent misconfiguration.
func (l *Loader) loadFile(path string) (*FileConfig, error) {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var fileCfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&fileCfg); err != nil {
		if errors.Is(err, io.EOF) {
			return &FileConfig{}, nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return nil, fmt.Errorf("%w: %v", ErrUnknownConfigField, err)
		}
		return nil, fmt.Errorf("strict config parse error: %w", err)
	}

	// Strict: Ensure no multiple documents or trailing content
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config file contains multiple documents or trailing content")
	}
	return &fileCfg, nil
}

func mergeFileConfig(cfg *AppConfig, f *FileConfig) error {
	setString(&cfg.WorkDir, expandEnv(f.WorkDir))
	setString(&cfg.LogLevel, f.LogLevel)
	setString(&cfg.LogService, f.LogService)

	setString(&cfg.Telegram.Token, expandEnv(f.Telegram.Token))
	setString(&cfg.Telegram.APIEndpoint, f.Telegram.APIEndpoint)
	setString(&cfg.Telegram.FileEndpoint, f.Telegram.FileEndpoint)
	setBool(&cfg.Telegram.Debug, f.Telegram.Debug)

	setInt(&cfg.Transfer.ChunkSize, f.Transfer.ChunkSize)
	setInt(&cfg.Transfer.MaxConcurrent, f.Transfer.MaxConcurrent)
	setInt(&cfg.Transfer.StatusConcurrency, f.Transfer.StatusConcurrency)

	setBool(&cfg.Metrics.Enabled, f.Metrics.Enabled)
	setString(&cfg.Metrics.Listen, f.Metrics.Listen)

	setBool(&cfg.Telemetry.Enabled, f.Telemetry.Enabled)
	setString(&cfg.Telemetry.Exporter, f.Telemetry.Exporter)
	setString(&cfg.Telemetry.Endpoint, f.Telemetry.Endpoint)
	if f.Telemetry.SamplingRate != nil {
		cfg.Telemetry.SamplingRate = *f.Telemetry.SamplingRate
	}

	durations := []struct {
		field string
		raw   string
		dst   *time.Duration
	}{
		{"telegram.pollTimeout", f.Telegram.PollTimeout, &cfg.Telegram.PollTimeout},
		{"transfer.progressInterval", f.Transfer.ProgressInterval, &cfg.Transfer.ProgressInterval},
		{"transfer.statusTimeout", f.Transfer.StatusTimeout, &cfg.Transfer.StatusTimeout},
		{"transfer.shutdownTimeout", f.Transfer.ShutdownTimeout, &cfg.Transfer.ShutdownTimeout},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", d.field, d.raw, err)
		}
		*d.dst = v
	}
	return nil
}

// mergeEnvConfig merges environment variables into cfg.
// ENV variables have the highest precedence.
func (l *Loader) mergeEnvConfig(cfg *AppConfig) error {
	cfg.WorkDir = l.envString(EnvWorkDir, cfg.WorkDir)
	cfg.LogLevel = l.envString(EnvLogLevel, cfg.LogLevel)
	cfg.LogService = l.envString(EnvLogService, cfg.LogService)

	token, err := l.envToken(cfg.Telegram.Token)
	if err != nil {
		return err
	}
	cfg.Telegram.Token = token
	cfg.Telegram.APIEndpoint = l.envString(EnvAPIEndpoint, cfg.Telegram.APIEndpoint)
	cfg.Telegram.FileEndpoint = l.envString(EnvFileEndpoint, cfg.Telegram.FileEndpoint)
	cfg.Telegram.PollTimeout = l.envDuration(EnvPollTimeout, cfg.Telegram.PollTimeout)
	cfg.Telegram.Debug = l.envBool(EnvDebug, cfg.Telegram.Debug)

	cfg.Transfer.ProgressInterval = l.envDuration(EnvProgressInterval, cfg.Transfer.ProgressInterval)
	cfg.Transfer.ChunkSize = l.envInt(EnvChunkSize, cfg.Transfer.ChunkSize)
	cfg.Transfer.MaxConcurrent = l.envInt(EnvMaxConcurrent, cfg.Transfer.MaxConcurrent)
	cfg.Transfer.StatusConcurrency = l.envInt(EnvStatusConcurrency, cfg.Transfer.StatusConcurrency)
	cfg.Transfer.StatusTimeout = l.envDuration(EnvStatusTimeout, cfg.Transfer.StatusTimeout)
	cfg.Transfer.ShutdownTimeout = l.envDuration(EnvShutdownTimeout, cfg.Transfer.ShutdownTimeout)

	cfg.Metrics.Enabled = l.envBool(EnvMetricsEnabled, cfg.Metrics.Enabled)
	cfg.Metrics.Listen = l.envString(EnvMetricsListen, cfg.Metrics.Listen)

	cfg.Telemetry.Enabled = l.envBool(EnvTracingEnabled, cfg.Telemetry.Enabled)
	cfg.Telemetry.Exporter = l.envString(EnvTracingExporter, cfg.Telemetry.Exporter)
	cfg.Telemetry.Endpoint = l.envString(EnvTracingEndpoint, cfg.Telemetry.Endpoint)
	cfg.Telemetry.SamplingRate = l.envFloat(EnvTracingSampling, cfg.Telemetry.SamplingRate)
	return nil
}

// envToken resolves the canonical token key and its alias. Setting both to
// different values is a configuration error.
func (l *Loader) envToken(current string) (string, error) {
	canonical := l.envString(EnvToken, "")
	alias := l.envString(EnvTokenAlias, "")
	switch {
	case canonical != "" && alias != "" && canonical != alias:
		return "", fmt.Errorf("conflicting values for %s and %s", EnvToken, EnvTokenAlias)
	case canonical != "":
		return canonical, nil
	case alias != "":
		return alias, nil
	}
	return current, nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

// expandEnv expands environment variables in the format ${VAR} or $VAR
func expandEnv(s string) string {
	return os.ExpandEnv(s)
}
