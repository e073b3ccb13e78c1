// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ManuGH/renamebot/internal/domain/rename/model"
	"github.com/ManuGH/renamebot/internal/domain/rename/ports"
)

// The Bot API client is not context aware; calls check ctx before they start.

func (c *Client) Send(ctx context.Context, msg ports.OutboundMessage) (ports.MessageRef, error) {
	if err := ctx.Err(); err != nil {
		return ports.MessageRef{}, err
	}
	cfg := tgbotapi.NewMessage(msg.ChatID, msg.Text)
	if msg.Markdown {
		cfg.ParseMode = tgbotapi.ModeMarkdown
	}
	if markup := keyboard(msg.Buttons); markup != nil {
		cfg.ReplyMarkup = *markup
	}
	sent, err := c.bot.Send(cfg)
	if err != nil {
		return ports.MessageRef{}, c.transportErr("send message", err)
	}
	return ports.MessageRef{ChatID: msg.ChatID, MessageID: sent.MessageID}, nil
}

func (c *Client) Edit(ctx context.Context, ref ports.MessageRef, text string, buttons []ports.ButtonRow) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cfg := tgbotapi.NewEditMessageText(ref.ChatID, ref.MessageID, text)
	cfg.ReplyMarkup = keyboard(buttons)
	if _, err := c.bot.Request(cfg); err != nil {
		if notModified(err) {
			return nil
		}
		return c.transportErr("edit message", err)
	}
	return nil
}

func (c *Client) Delete(ctx context.Context, chatID int64, messageIDs ...int) error {
	var errs []error
	for _, id := range messageIDs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := c.bot.Request(tgbotapi.NewDeleteMessage(chatID, id)); err != nil {
			errs = append(errs, fmt.Errorf("message %d: %w", id, c.transportErr("delete message", err)))
		}
	}
	return errors.Join(errs...)
}

func (c *Client) AnswerButton(ctx context.Context, callbackID, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := c.bot.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		return c.transportErr("answer callback", err)
	}
	return nil
}

// SendFile delivers an upload prepared by Upload. Bytes are streamed, and
// progress reported, while the request body is written.
func (c *Client) SendFile(ctx context.Context, file ports.OutgoingFile) error {
	h, ok := file.Upload.(*uploadHandle)
	if !ok {
		return fmt.Errorf("%w: upload handle %T not created by this client", ports.ErrTransport, file.Upload)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	data := tgbotapi.FileReader{Name: file.FileName, Reader: h.reader}
	if _, err := c.bot.Send(fileConfig(file, data)); err != nil {
		if ctxErr := h.reader.ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return c.transportErr("send file", err)
	}
	return nil
}

// fileConfig chooses the Bot API method. ForceDocument always sends a
// document; otherwise the original presentation is kept.
func fileConfig(file ports.OutgoingFile, data tgbotapi.RequestFileData) tgbotapi.Chattable {
	parseMode := ""
	if file.Markdown {
		parseMode = tgbotapi.ModeMarkdown
	}
	if file.ForceDocument {
		cfg := tgbotapi.NewDocument(file.ChatID, data)
		cfg.Caption, cfg.ParseMode = file.Caption, parseMode
		cfg.DisableContentTypeDetection = true
		return cfg
	}

	switch presentation(file.Kind, file.MimeType) {
	case model.KindVideo:
		cfg := tgbotapi.NewVideo(file.ChatID, data)
		cfg.Caption, cfg.ParseMode = file.Caption, parseMode
		cfg.SupportsStreaming = true
		return cfg
	case model.KindAudio:
		cfg := tgbotapi.NewAudio(file.ChatID, data)
		cfg.Caption, cfg.ParseMode = file.Caption, parseMode
		return cfg
	case model.KindPhoto:
		cfg := tgbotapi.NewPhoto(file.ChatID, data)
		cfg.Caption, cfg.ParseMode = file.Caption, parseMode
		return cfg
	case model.KindAnimation:
		cfg := tgbotapi.NewAnimation(file.ChatID, data)
		cfg.Caption, cfg.ParseMode = file.Caption, parseMode
		return cfg
	case model.KindVoice:
		cfg := tgbotapi.NewVoice(file.ChatID, data)
		cfg.Caption, cfg.ParseMode = file.Caption, parseMode
		return cfg
	default:
		cfg := tgbotapi.NewDocument(file.ChatID, data)
		cfg.Caption, cfg.ParseMode = file.Caption, parseMode
		return cfg
	}
}

// presentation derives how a generic document should be shown from its mime type.
func presentation(kind model.FileKind, mime string) model.FileKind {
	if kind != model.KindDocument && kind != "" {
		return kind
	}
	switch {
	case mime == "image/gif":
		return model.KindAnimation
	case strings.HasPrefix(mime, "video/"):
		return model.KindVideo
	case strings.HasPrefix(mime, "audio/"):
		return model.KindAudio
	case mime == "image/jpeg" || mime == "image/png" || mime == "image/webp":
		return model.KindPhoto
	default:
		return model.KindDocument
	}
}

func keyboard(rows []ports.ButtonRow) *tgbotapi.InlineKeyboardMarkup {
	if len(rows) == 0 {
		return nil
	}
	kb := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
		}
		kb = append(kb, tgbotapi.NewInlineKeyboardRow(buttons...))
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(kb...)
	return &markup
}

func notModified(err error) bool {
	var apiErr *tgbotapi.Error
	return errors.As(err, &apiErr) && strings.Contains(apiErr.Message, "message is not modified")
}
