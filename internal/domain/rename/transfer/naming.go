// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package transfer

import (
	"path"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// MaxNameBytes bounds a resolved file name.
const MaxNameBytes = 255

const fallbackName = "file"

// SanitizeName reduces user input to a bare file name.
// Directory components, control characters and NUL are dropped.
// An empty result means the input carried no usable name.
func SanitizeName(name string) string {
	name = norm.NFC.String(name)
	name = strings.ReplaceAll(name, "\\", "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	name = strings.Map(func(r rune) rune {
		if r == utf8.RuneError || unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(name)
	if name == "." || name == ".." {
		return ""
	}
	return truncateName(name)
}

// ResolveName computes the delivered file name. When the sanitized new name
// has no '.' the extension of the source's logical name is appended.
func ResolveName(newName, sourceName string) string {
	name := SanitizeName(newName)
	if name == "" {
		return ""
	}
	if strings.Contains(name, ".") {
		return name
	}
	return truncateName(name + path.Ext(SanitizeName(sourceName)))
}

func truncateName(name string) string {
	if len(name) <= MaxNameBytes {
		return name
	}
	ext := path.Ext(name)
	if len(ext) >= MaxNameBytes/4 {
		ext = ""
	}
	stem := strings.TrimSuffix(name, ext)
	limit := MaxNameBytes - len(ext)
	for len(stem) > limit {
		_, size := utf8.DecodeLastRuneInString(stem)
		stem = stem[:len(stem)-size]
	}
	return stem + ext
}
