// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package violation

import (
	"errors"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

var _ = http.StatusOK
var _ tgbotapi.Update

func isCancelled(err error) bool {
	return err != nil && err.Error() == "context canceled"
}

var _ = errors.New
