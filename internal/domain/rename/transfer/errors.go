// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package transfer

import "errors"

var (
	// ErrDownload marks a failed or empty download.
	ErrDownload = errors.New("download failed")
	// ErrUpload marks a failed upload or delivery.
	ErrUpload = errors.New("upload failed")
	// ErrCancelled is the reason of a cancelled result.
	ErrCancelled = errors.New("operation cancelled")
	// ErrInternal marks workspace errors and recovered panics.
	ErrInternal = errors.New("internal transfer error")
)
