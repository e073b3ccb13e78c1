// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package workflow

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/ManuGH/renamebot/internal/domain/rename/model"
	"github.com/ManuGH/renamebot/internal/domain/rename/ports"
)

const (
	textWelcome = "hello. forward me any file, and i'll help you rename it.\n\n" +
		"to use, simply:\n" +
		"1. forward a file to me\n" +
		"2. tell me the new name you want\n" +
		"3. pick document or original format\n" +
		"4. i'll send you back the renamed file"

	textHelp = "📚 **help**\n\n" +
		"i can rename any file on telegram. here's how to use me:\n\n" +
		"**commands:**\n" +
		"/start - start me\n" +
		"/help - show this help message\n" +
		"/cancel - drop the pending rename or stop the running transfer\n\n" +
		"**to rename a file:**\n" +
		"1. forward or send a file to me\n" +
		"2. tell me the new filename\n" +
		"3. i'll process and send back the renamed file\n\n" +
		"✅ preserves the file extension if you don't specify one"

	textUnknownCommand  = "i don't know that command. send /help for usage."
	textSendFileFirst   = "please send a file first, then tell me the new name."
	textEmptyName       = "the name can't be empty. please type the new name for the file."
	textPickFormat      = "please pick a format using the buttons above."
	textBusy            = "your file is being processed. use the cancel button to stop it."
	textWaitForTransfer = "please wait until the current transfer finishes, or /cancel it first."
	textNothingToCancel = "nothing to cancel."
	textAborted         = "okay, the pending rename was dropped."
	textCancelling      = "cancelling..."
	textAlreadyFinished = "this operation has already finished."
	textStaleChoice     = "this choice is no longer valid."
	textTooManyRunning  = "too many transfers are running, please try again in a moment."
	textUnknownAction   = "unknown action."
	textUnsupportedFile = "sorry, i could not process this file."

	buttonDocument = "📄 Document"
	buttonOriginal = "🖼️ Original Format"
)

// inlineCode keeps user text from breaking out of a markdown code span.
func inlineCode(s string) string {
	return "`" + strings.ReplaceAll(s, "`", "'") + "`"
}

func fileInfoText(f model.FileRef) string {
	return fmt.Sprintf("📄 **file information**\n\n"+
		"name: %s\n"+
		"size: %s\n"+
		"type: %s\n\n"+
		"please type the new name for the file.",
		inlineCode(f.DisplayName()),
		humanize.Bytes(uint64(max(f.Size, 0))),
		inlineCode(f.DisplayMimeType()),
	)
}

func formatPromptText(name string) string {
	return fmt.Sprintf("the new name for your file is \"%s\".\n\n"+
		"should i give it back to you as a document or in the default format?", inlineCode(name))
}

func formatButtons() []ports.ButtonRow {
	return []ports.ButtonRow{{
		{Text: buttonDocument, Data: model.FormatPayload(model.FormatDocument)},
		{Text: buttonOriginal, Data: model.FormatPayload(model.FormatOriginal)},
	}}
}
