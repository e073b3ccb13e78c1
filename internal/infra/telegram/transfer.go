// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ManuGH/renamebot/internal/domain/rename/model"
	"github.com/ManuGH/renamebot/internal/domain/rename/ports"
	"github.com/ManuGH/renamebot/internal/log"
)

// Download resolves the file path with getFile and streams the content in
// ChunkSize pieces into dst.
func (c *Client) Download(ctx context.Context, file model.FileRef, dst io.Writer, progress ports.ProgressFunc) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	info, err := c.bot.GetFile(tgbotapi.FileConfig{FileID: file.ID})
	if err != nil {
		return 0, c.transportErr("get file", err)
	}
	// The URL embeds the token and must never be logged.
	url := fmt.Sprintf(c.fileEndpoint, c.bot.Token, info.FilePath)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, c.transportErr("build request", err)
	}
	resp, err := c.files.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		return 0, c.transportErr("fetch file", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: fetch file: unexpected status %d", ports.ErrTransport, resp.StatusCode)
	}

	total := file.Size
	if total <= 0 && resp.ContentLength > 0 {
		total = resp.ContentLength
	}
	w := &progressWriter{w: dst, total: total, progress: progress}
	progress(0, total)

	n, err := io.CopyBuffer(w, resp.Body, make([]byte, c.chunkSize))
	if err != nil {
		if ctx.Err() != nil {
			return n, ctx.Err()
		}
		return n, c.transportErr("read file", err)
	}

	c.logger.Debug().
		Str(log.FieldEvent, "telegram.downloaded").
		Int64(log.FieldBytes, n).
		Msg("file downloaded")
	return n, nil
}

// Upload opens the local file for delivery. The returned handle streams it
// through a progress reader when SendFile writes the request body.
func (c *Client) Upload(ctx context.Context, src ports.UploadSource, progress ports.ProgressFunc) (ports.UploadHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(src.Path)
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	size := src.Size
	if st, err := f.Stat(); err == nil {
		size = st.Size()
	}
	progress(0, size)
	return &uploadHandle{
		name: src.Name,
		size: size,
		file: f,
		reader: &progressReader{
			ctx:      ctx,
			r:        f,
			total:    size,
			progress: progress,
		},
	}, nil
}

type uploadHandle struct {
	name   string
	size   int64
	file   *os.File
	reader *progressReader
	once   sync.Once
}

func (h *uploadHandle) Name() string { return h.name }
func (h *uploadHandle) Size() int64  { return h.size }

func (h *uploadHandle) Close() error {
	var err error
	h.once.Do(func() { err = h.file.Close() })
	return err
}

// progressWriter reports cumulative bytes after every write.
type progressWriter struct {
	w        io.Writer
	n        int64
	total    int64
	progress ports.ProgressFunc
}

func (p *progressWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	p.n += int64(n)
	p.progress(p.n, p.total)
	return n, err
}

// progressReader reports cumulative bytes after every read and stops once ctx is done.
// It must not implement io.Closer; the file is owned by uploadHandle.
type progressReader struct {
	ctx      context.Context
	r        io.Reader
	n        int64
	total    int64
	progress ports.ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	if err := p.ctx.Err(); err != nil {
		return 0, err
	}
	n, err := p.r.Read(b)
	if n > 0 {
		p.n += int64(n)
		p.progress(p.n, p.total)
	}
	return n, err
}
