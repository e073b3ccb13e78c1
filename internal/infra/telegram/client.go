// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package telegram adapts the Telegram Bot API to the rename workflow ports.
package telegram

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/ManuGH/renamebot/internal/domain/rename/ports"
	"github.com/ManuGH/renamebot/internal/log"
	"github.com/ManuGH/renamebot/internal/platform/httpx"
)

const (
	defaultChunkSize   = 512 << 10
	defaultPollTimeout = 50 * time.Second
)

// Config configures the Bot API client.
type Config struct {
	Token string
	// APIEndpoint is a format string taking token and method, e.g. tgbotapi.APIEndpoint.
	APIEndpoint string
	// FileEndpoint is a format string taking token and file path.
	FileEndpoint string
	PollTimeout  time.Duration
	ChunkSize    int
	Debug        bool

	// HTTPClient overrides the API client; FileClient overrides the transfer client.
	HTTPClient *http.Client
	FileClient *http.Client
}

// Client implements ports.Messenger, ports.Transferer and ports.Source.
type Client struct {
	bot          *tgbotapi.BotAPI
	files        *http.Client
	fileEndpoint string
	chunkSize    int
	pollTimeout  time.Duration
	logger       zerolog.Logger

	lastPoll atomic.Int64
}

var (
	_ ports.Messenger  = (*Client)(nil)
	_ ports.Transferer = (*Client)(nil)
	_ ports.Source     = (*Client)(nil)
)

// New connects to the Bot API and verifies the token with getMe.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram: token is required")
	}
	if cfg.APIEndpoint == "" {
		cfg.APIEndpoint = tgbotapi.APIEndpoint
	}
	if cfg.FileEndpoint == "" {
		cfg.FileEndpoint = tgbotapi.FileEndpoint
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = defaultPollTimeout
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = defaultChunkSize
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = httpx.NewClient(cfg.PollTimeout + 15*time.Second)
	}
	if cfg.FileClient == nil {
		cfg.FileClient = httpx.NewStreamingClient()
	}

	logger := log.WithComponent("telegram")
	if err := tgbotapi.SetLogger(botLogger{logger: logger}); err != nil {
		return nil, fmt.Errorf("telegram: set logger: %w", err)
	}

	bot, err := tgbotapi.NewBotAPIWithClient(cfg.Token, cfg.APIEndpoint, cfg.HTTPClient)
	if err != nil {
		return nil, fmt.Errorf("telegram: connect: %w", redact(err, cfg.Token))
	}
	bot.Debug = cfg.Debug

	logger.Info().
		Str(log.FieldEvent, "telegram.connected").
		Str("bot", bot.Self.UserName).
		Msg("connected to bot api")

	return &Client{
		bot:          bot,
		files:        cfg.FileClient,
		fileEndpoint: cfg.FileEndpoint,
		chunkSize:    cfg.ChunkSize,
		pollTimeout:  cfg.PollTimeout,
		logger:       logger,
	}, nil
}

// UserName returns the bot's username.
func (c *Client) UserName() string { return c.bot.Self.UserName }

// LastPoll returns the time of the last successful update poll.
func (c *Client) LastPoll() time.Time {
	ns := c.lastPoll.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// redact hides the bot token that the Bot API embeds in every URL.
func redact(err error, token string) error {
	if err == nil || token == "" {
		return err
	}
	msg := err.Error()
	if !strings.Contains(msg, token) {
		return err
	}
	return errors.New(strings.ReplaceAll(msg, token, "<redacted>"))
}

// transportErr classifies err as a transport failure with the token removed.
func (c *Client) transportErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ports.ErrTransport, op, redact(err, c.bot.Token))
}

// botLogger routes the library's debug output through zerolog.
type botLogger struct {
	logger zerolog.Logger
}

func (l botLogger) Println(v ...interface{}) {
	l.logger.Debug().Msg(strings.TrimSuffix(fmt.Sprintln(v...), "\n"))
}

func (l botLogger) Printf(format string, v ...interface{}) {
	l.logger.Debug().Msgf(format, v...)
}
