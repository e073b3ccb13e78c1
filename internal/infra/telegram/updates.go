// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package telegram

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gabriel-vasile/mimetype"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ManuGH/renamebot/internal/domain/rename/model"
	"github.com/ManuGH/renamebot/internal/log"
)

// Updates long-polls the Bot API and converts updates into inbound events.
// The channel is closed once ctx is done and the in-flight poll has returned.
func (c *Client) Updates(ctx context.Context) (<-chan model.Inbound, error) {
	out := make(chan model.Inbound)
	go c.poll(ctx, out)
	return out, nil
}

func (c *Client) poll(ctx context.Context, out chan<- model.Inbound) {
	defer close(out)

	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = int(c.pollTimeout / time.Second)
	cfg.AllowedUpdates = []string{"message", "callback_query"}

	retry := backoff.NewExponentialBackOff()
	retry.InitialInterval = time.Second
	retry.MaxInterval = 30 * time.Second

	for ctx.Err() == nil {
		updates, err := c.bot.GetUpdates(cfg)
		if err != nil {
			wait := retry.NextBackOff()
			c.logger.Warn().
				Err(redact(err, c.bot.Token)).
				Str(log.FieldEvent, "telegram.poll_failed").
				Dur("retry_in", wait).
				Msg("update poll failed")
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}
			continue
		}
		retry.Reset()
		now := time.Now()
		c.lastPoll.Store(now.UnixNano())

		for _, up := range updates {
			if up.UpdateID >= cfg.Offset {
				cfg.Offset = up.UpdateID + 1
			}
			in, ok := toInbound(up, now)
			if !ok {
				continue
			}
			select {
			case out <- in:
			case <-ctx.Done():
				return
			}
		}
	}
}

// toInbound maps an update to an inbound event. Updates without a sender are dropped.
func toInbound(up tgbotapi.Update, now time.Time) (model.Inbound, bool) {
	if cq := up.CallbackQuery; cq != nil {
		if cq.From == nil {
			return model.Inbound{}, false
		}
		in := model.Inbound{
			UserID:     cq.From.ID,
			ChatID:     cq.From.ID,
			Button:     &model.ButtonPress{CallbackID: cq.ID, Data: cq.Data},
			ReceivedAt: now,
		}
		if cq.Message != nil {
			in.Button.MessageID = cq.Message.MessageID
			if cq.Message.Chat != nil {
				in.ChatID = cq.Message.Chat.ID
			}
		}
		return in, true
	}

	msg := up.Message
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return model.Inbound{}, false
	}
	in := model.Inbound{
		UserID:     msg.From.ID,
		ChatID:     msg.Chat.ID,
		MessageID:  msg.MessageID,
		Text:       msg.Text,
		File:       fileRef(msg),
		ReceivedAt: now,
	}
	if in.Text == "" {
		in.Text = msg.Caption
	}
	return in, true
}

func fileRef(msg *tgbotapi.Message) *model.FileRef {
	var ref model.FileRef
	switch {
	case msg.Document != nil:
		d := msg.Document
		ref = model.FileRef{ID: d.FileID, UniqueID: d.FileUniqueID, Name: d.FileName, Size: int64(d.FileSize), MimeType: d.MimeType, Kind: model.KindDocument}
	case msg.Video != nil:
		v := msg.Video
		ref = model.FileRef{ID: v.FileID, UniqueID: v.FileUniqueID, Name: v.FileName, Size: int64(v.FileSize), MimeType: v.MimeType, Kind: model.KindVideo}
	case msg.Audio != nil:
		a := msg.Audio
		ref = model.FileRef{ID: a.FileID, UniqueID: a.FileUniqueID, Name: a.FileName, Size: int64(a.FileSize), MimeType: a.MimeType, Kind: model.KindAudio}
	case msg.Animation != nil:
		a := msg.Animation
		ref = model.FileRef{ID: a.FileID, UniqueID: a.FileUniqueID, Name: a.FileName, Size: int64(a.FileSize), MimeType: a.MimeType, Kind: model.KindAnimation}
	case msg.Voice != nil:
		v := msg.Voice
		ref = model.FileRef{ID: v.FileID, UniqueID: v.FileUniqueID, Size: int64(v.FileSize), MimeType: v.MimeType, Kind: model.KindVoice}
	case len(msg.Photo) > 0:
		// Sizes are ordered ascending; the last one is the original.
		p := msg.Photo[len(msg.Photo)-1]
		ref = model.FileRef{ID: p.FileID, UniqueID: p.FileUniqueID, Size: int64(p.FileSize), MimeType: "image/jpeg", Kind: model.KindPhoto}
	default:
		return nil
	}
	if ref.Name == "" {
		ref.Name = syntheticName(ref)
	}
	return &ref
}

// syntheticName names media that Telegram delivers without a file name so the
// extension can be carried over on rename.
func syntheticName(ref model.FileRef) string {
	ext := ""
	if m := mimetype.Lookup(ref.MimeType); m != nil {
		ext = m.Extension()
	}
	if ext == "" {
		switch ref.Kind {
		case model.KindPhoto:
			ext = ".jpg"
		case model.KindVoice:
			ext = ".ogg"
		case model.KindVideo, model.KindAnimation:
			ext = ".mp4"
		}
	}
	if ref.Kind == model.KindDocument && ext == "" {
		return ""
	}
	return string(ref.Kind) + ext
}
