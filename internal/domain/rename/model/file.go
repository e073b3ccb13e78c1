// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package model

import "strings"

// FileKind is the presentation a file arrived with.
type FileKind string

const (
	KindDocument  FileKind = "document"
	KindVideo     FileKind = "video"
	KindAudio     FileKind = "audio"
	KindPhoto     FileKind = "photo"
	KindAnimation FileKind = "animation"
	KindVoice     FileKind = "voice"
)

// UnknownFileName is used when the transport carries no declared name.
const UnknownFileName = "Unknown"

// FileRef is an opaque handle to a file submitted by the user.
type FileRef struct {
	ID       string // transport file identifier used for downloads
	UniqueID string // stable identifier across bots, informational
	Name     string // declared (logical) file name
	Size     int64
	MimeType string
	Kind     FileKind
}

// DisplayName returns the declared name or UnknownFileName.
func (f FileRef) DisplayName() string {
	if strings.TrimSpace(f.Name) == "" {
		return UnknownFileName
	}
	return f.Name
}

// DisplayMimeType returns the media type hint or a generic fallback.
func (f FileRef) DisplayMimeType() string {
	if f.MimeType == "" {
		return "application/octet-stream"
	}
	return f.MimeType
}

// Format is the container the user wants the file back in.
type Format string

const (
	// FormatDocument forces the generic document container.
	FormatDocument Format = "doc"
	// FormatOriginal preserves the original presentation (video, audio, photo...).
	FormatOriginal Format = "orig"
)

// AsDocument reports whether the format forces the generic document container.
func (f Format) AsDocument() bool {
	return f == FormatDocument
}
