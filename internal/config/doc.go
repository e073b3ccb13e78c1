// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package config loads renamebot configuration.
//
// Precedence is ENV > YAML file > defaults. The file is parsed strictly and the
// merged result is validated before it is returned.
package config
