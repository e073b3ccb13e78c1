// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package transfer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveName(t *testing.T) {
	tests := []struct {
		name    string
		newName string
		source  string
		want    string
	}{
		{name: "appends source extension", newName: "report", source: "photo.jpg", want: "report.jpg"},
		{name: "explicit extension wins", newName: "report.pdf", source: "photo.jpg", want: "report.pdf"},
		{name: "same extension not duplicated", newName: "report.jpg", source: "photo.jpg", want: "report.jpg"},
		{name: "source without extension", newName: "report", source: "README", want: "report"},
		{name: "unknown source", newName: "clip", source: "", want: "clip"},
		{name: "last extension only", newName: "backup", source: "site.tar.gz", want: "backup.gz"},
		{name: "dotfile left alone", newName: ".env", source: "a.txt", want: ".env"},
		{name: "path in name", newName: "../../etc/passwd", source: "a.txt", want: "passwd.txt"},
		{name: "windows path", newName: `C:\tmp\clip`, source: "v.mp4", want: "clip.mp4"},
		{name: "path in source", newName: "x", source: "dir/v.mkv", want: "x.mkv"},
		{name: "empty", newName: "   ", source: "a.txt", want: ""},
		{name: "dot dot", newName: "..", source: "a.txt", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveName(tt.newName, tt.source))
		})
	}
}

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "report", SanitizeName(" re\x00port\n "))
	assert.Equal(t, "", SanitizeName("dir/"))
	// NFD input composes to NFC.
	assert.Equal(t, "caf\u00e9", SanitizeName("cafe\u0301"))

	long := strings.Repeat("ä", 200) + ".mp4"
	got := SanitizeName(long)
	assert.LessOrEqual(t, len(got), MaxNameBytes)
	assert.True(t, strings.HasSuffix(got, ".mp4"))
	assert.True(t, strings.HasPrefix(got, "ää"))
}
