// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package ports

import (
	"context"
	"errors"
	"io"

	"github.com/ManuGH/renamebot/internal/domain/rename/model"
)

// ErrTransport classifies failures of non-critical chat side effects.
var ErrTransport = errors.New("transport error")

// ProgressFunc is called with the bytes moved so far and the expected total.
// It may be invoked at high frequency and from the primitive's goroutines.
type ProgressFunc func(current, total int64)

// UploadSource is a local file ready to be uploaded.
type UploadSource struct {
	Path string
	Name string
	Size int64
}

// UploadHandle is an uploaded (or upload-ready) file accepted by Messenger.SendFile.
type UploadHandle interface {
	Name() string
	Size() int64
	Close() error
}

// Transferer is the chunked file-transfer primitive.
type Transferer interface {
	// Download streams the file into dst and returns the number of bytes written.
	Download(ctx context.Context, file model.FileRef, dst io.Writer, progress ProgressFunc) (int64, error)
	// Upload prepares src for delivery and reports progress while bytes move.
	Upload(ctx context.Context, src UploadSource, progress ProgressFunc) (UploadHandle, error)
}
