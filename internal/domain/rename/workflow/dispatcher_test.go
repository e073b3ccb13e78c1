// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package workflow

import (
	"bytes"
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/renamebot/internal/domain/rename/model"
	"github.com/ManuGH/renamebot/internal/domain/rename/operation"
	"github.com/ManuGH/renamebot/internal/domain/rename/session"
	"github.com/ManuGH/renamebot/internal/domain/rename/transfer"
	"github.com/ManuGH/renamebot/internal/platform/fs"
)

type env struct {
	t          *testing.T
	sessions   *session.Registry
	store      *operation.Store
	messenger  *fakeMessenger
	transferer *gatedTransferer
	d          *Dispatcher
	nextMsg    atomic.Int64
}

func newEnv(t *testing.T, cfg Config, tr *gatedTransferer) *env {
	t.Helper()
	ws, err := fs.NewWorkspace(t.TempDir())
	require.NoError(t, err)
	e := &env{
		t:          t,
		sessions:   session.NewRegistry(),
		store:      operation.NewStore(),
		messenger:  newFakeMessenger(),
		transferer: tr,
	}
	ctrl := transfer.NewController(transfer.Config{TerminalWait: time.Second}, e.store, tr, e.messenger, ws)
	e.d = New(cfg, e.sessions, e.store, ctrl, e.messenger)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		assert.NoError(t, e.d.Shutdown(ctx))
	})
	return e
}

func (e *env) msgID() int { return int(e.nextMsg.Add(1)) }

func (e *env) sendFile(user int64, f model.FileRef) {
	e.d.Dispatch(context.Background(), model.Inbound{UserID: user, ChatID: user, MessageID: e.msgID(), File: &f})
}

func (e *env) sendText(user int64, text string) int {
	id := e.msgID()
	e.d.Dispatch(context.Background(), model.Inbound{UserID: user, ChatID: user, MessageID: id, Text: text})
	return id
}

func (e *env) press(user int64, data string) {
	e.d.Dispatch(context.Background(), model.Inbound{
		UserID: user, ChatID: user,
		Button: &model.ButtonPress{CallbackID: "cb", Data: data},
	})
}

func (e *env) state(user int64) model.SessionState {
	snap, ok := e.sessions.Lookup(user)
	if !ok {
		return ""
	}
	return snap.State
}

func (e *env) waitIdle() {
	e.t.Helper()
	require.Eventually(e.t, func() bool { return e.d.Active() == 0 }, 5*time.Second, 5*time.Millisecond)
}

func video(size int) model.FileRef {
	return model.FileRef{ID: "vid", Name: "holiday.mp4", Size: int64(size), MimeType: "video/mp4", Kind: model.KindVideo}
}

func TestDispatch_FullRenameOriginalFormat(t *testing.T) {
	data := bytes.Repeat([]byte("v"), 10*1000*1000)
	e := newEnv(t, Config{}, &gatedTransferer{data: data})

	e.sendFile(1, video(len(data)))
	info := e.messenger.LastSent()
	assert.True(t, info.Msg.Markdown)
	assert.Contains(t, info.Msg.Text, "`holiday.mp4`")
	assert.Contains(t, info.Msg.Text, "10 MB")
	assert.Contains(t, info.Msg.Text, "`video/mp4`")
	assert.Equal(t, model.StateAwaitingName, e.state(1))

	nameMsg := e.sendText(1, "  trip  ")
	assert.Equal(t, model.StateAwaitingFormat, e.state(1))
	assert.ElementsMatch(t, []int{info.ID, nameMsg}, e.messenger.Deleted())

	prompt := e.messenger.LastSent()
	assert.Contains(t, prompt.Msg.Text, "`trip`")
	require.Len(t, prompt.Msg.Buttons, 1)
	require.Len(t, prompt.Msg.Buttons[0], 2)
	assert.Equal(t, "fmt:doc", prompt.Msg.Buttons[0][0].Data)
	assert.Equal(t, "fmt:orig", prompt.Msg.Buttons[0][1].Data)

	e.press(1, "fmt:orig")
	assert.Contains(t, e.messenger.Deleted(), prompt.ID)
	e.waitIdle()

	files := e.messenger.Files()
	require.Len(t, files, 1)
	assert.Equal(t, "trip.mp4", files[0].FileName)
	assert.Equal(t, "**trip.mp4**", files[0].Caption)
	assert.False(t, files[0].ForceDocument)
	assert.Equal(t, model.KindVideo, files[0].Kind)

	status := e.messenger.StatusTexts(transfer.TextPreparing, 1)
	require.NotEmpty(t, status)
	assert.Equal(t, transfer.TextDone, status[len(status)-1])
	assert.Equal(t, 0, e.sessions.Len())
	assert.Equal(t, 0, e.store.Len())
}

func TestDispatch_DocumentFormat(t *testing.T) {
	data := []byte("%PDF-1.4")
	e := newEnv(t, Config{}, &gatedTransferer{data: data})

	e.sendFile(1, model.FileRef{ID: "d", Name: "scan.pdf", Size: int64(len(data)), MimeType: "application/pdf", Kind: model.KindDocument})
	e.sendText(1, "invoice")
	e.press(1, "fmt:doc")
	e.waitIdle()

	files := e.messenger.Files()
	require.Len(t, files, 1)
	assert.Equal(t, "invoice.pdf", files[0].FileName)
	assert.True(t, files[0].ForceDocument)
}

func TestDispatch_CommandsTakePrecedence(t *testing.T) {
	e := newEnv(t, Config{}, &gatedTransferer{})
	e.sendFile(1, video(10))

	e.sendText(1, "/help")
	assert.Equal(t, textHelp, e.messenger.LastSent().Msg.Text)
	e.sendText(1, "/start")
	assert.Equal(t, textWelcome, e.messenger.LastSent().Msg.Text)
	e.sendText(1, "/nope")
	assert.Equal(t, textUnknownCommand, e.messenger.LastSent().Msg.Text)

	snap, ok := e.sessions.Lookup(1)
	require.True(t, ok)
	assert.Equal(t, model.StateAwaitingName, snap.State)
	assert.Empty(t, snap.NewName, "commands never become the new name")

	// A file whose caption is a command is a command.
	f := video(10)
	e.d.Dispatch(context.Background(), model.Inbound{UserID: 2, ChatID: 2, Text: "/start", File: &f})
	_, ok = e.sessions.Lookup(2)
	assert.False(t, ok)
}

func TestDispatch_EmptyNameReprompts(t *testing.T) {
	e := newEnv(t, Config{}, &gatedTransferer{})
	e.sendFile(1, video(10))

	e.sendText(1, "   ")
	assert.Equal(t, textEmptyName, e.messenger.LastSent().Msg.Text)
	assert.Equal(t, model.StateAwaitingName, e.state(1))

	e.sendText(1, "ok")
	assert.Equal(t, model.StateAwaitingFormat, e.state(1))
	// Info prompt, re-prompt, both user messages.
	assert.Len(t, e.messenger.Deleted(), 4)
}

func TestDispatch_UnexpectedEventsGetClarifyingReplies(t *testing.T) {
	e := newEnv(t, Config{}, &gatedTransferer{})

	e.sendText(1, "hello")
	assert.Equal(t, textSendFileFirst, e.messenger.LastSent().Msg.Text)

	e.press(1, "fmt:doc")
	assert.Equal(t, []string{textStaleChoice}, e.messenger.Answers())

	e.sendFile(1, video(10))
	e.sendText(1, "name")
	e.sendText(1, "another name")
	assert.Equal(t, textPickFormat, e.messenger.LastSent().Msg.Text)
	snap, _ := e.sessions.Lookup(1)
	assert.Equal(t, "name", snap.NewName)

	e.press(1, "bogus")
	assert.Equal(t, textUnknownAction, e.messenger.Answers()[1])
	assert.Equal(t, model.StateAwaitingFormat, e.state(1))

	e.d.Dispatch(context.Background(), model.Inbound{UserID: 1, ChatID: 1})
	assert.Equal(t, model.StateAwaitingFormat, e.state(1))
}

func TestDispatch_NewFileReplacesPendingSession(t *testing.T) {
	e := newEnv(t, Config{}, &gatedTransferer{})
	e.sendFile(1, video(10))
	first := e.messenger.LastSent()

	e.sendFile(1, model.FileRef{ID: "doc", Name: "notes.txt", Kind: model.KindDocument})
	assert.Contains(t, e.messenger.Deleted(), first.ID)
	snap, ok := e.sessions.Lookup(1)
	require.True(t, ok)
	assert.Equal(t, "notes.txt", snap.Source.Name)
}

func TestDispatch_CancelMidDownload(t *testing.T) {
	data := bytes.Repeat([]byte("c"), 1<<20)
	tr := &gatedTransferer{data: data, gate: make(chan struct{}), entered: make(chan string, 1)}
	e := newEnv(t, Config{}, tr)

	e.sendFile(1, video(len(data)))
	e.sendText(1, "x")
	e.press(1, "fmt:orig")
	<-tr.entered

	snap, ok := e.sessions.Lookup(1)
	require.True(t, ok)
	require.Equal(t, model.StateTransferring, snap.State)
	require.Eventually(t, func() bool { return e.store.Len() == 1 }, time.Second, time.Millisecond)

	// Another user cannot cancel it.
	e.press(2, model.CancelPayload(snap.OperationID))
	assert.Equal(t, textNothingToCancel, e.messenger.LastAnswer())

	e.press(1, model.CancelPayload(snap.OperationID))
	assert.Equal(t, textCancelling, e.messenger.LastAnswer())
	e.waitIdle()
	assert.Equal(t, 0, e.sessions.Len())

	assert.Empty(t, e.messenger.Files())
	status := e.messenger.StatusTexts(transfer.TextPreparing, 1)
	assert.Equal(t, transfer.TextCancelled, status[len(status)-1])
	assert.Equal(t, 0, e.store.Len())

	// Pressing cancel again after the fact is a no-op.
	e.press(1, model.CancelPayload(snap.OperationID))
	assert.Equal(t, textNothingToCancel, e.messenger.LastAnswer())
}

func TestDispatch_CancelCommand(t *testing.T) {
	tr := &gatedTransferer{data: []byte("abc"), gate: make(chan struct{}), entered: make(chan string, 1)}
	e := newEnv(t, Config{}, tr)

	e.sendText(1, "/cancel")
	assert.Equal(t, textNothingToCancel, e.messenger.LastSent().Msg.Text)

	e.sendFile(1, video(3))
	info := e.messenger.LastSent()
	e.sendText(1, "/cancel")
	assert.Equal(t, textAborted, e.messenger.LastSent().Msg.Text)
	assert.Contains(t, e.messenger.Deleted(), info.ID)
	assert.Equal(t, 0, e.sessions.Len())

	e.sendFile(1, video(3))
	e.sendText(1, "y")
	e.press(1, "fmt:doc")
	<-tr.entered
	require.Eventually(t, func() bool { return e.store.Len() == 1 }, time.Second, time.Millisecond)

	e.sendText(1, "/cancel")
	assert.Equal(t, textCancelling, e.messenger.LastSent().Msg.Text)
	e.waitIdle()
	assert.Empty(t, e.messenger.Files())
}

func TestDispatch_CancelRightAfterFormatChoice(t *testing.T) {
	tr := &gatedTransferer{data: []byte("abc"), gate: make(chan struct{}), entered: make(chan string, 1)}
	e := newEnv(t, Config{}, tr)

	e.sendFile(1, video(3))
	e.sendText(1, "y")
	e.press(1, "fmt:doc")

	// No wait for the worker: the operation is cancellable as soon as the
	// session is transferring.
	require.Equal(t, model.StateTransferring, e.state(1))
	require.Equal(t, 1, e.store.Len())
	e.sendText(1, "/cancel")
	// The worker may post its status message concurrently.
	assert.Contains(t, e.messenger.SentTexts(), textCancelling)
	assert.NotContains(t, e.messenger.SentTexts(), textAlreadyFinished)

	e.waitIdle()
	assert.Empty(t, e.messenger.Files())
	assert.Equal(t, 0, e.sessions.Len())
	assert.Equal(t, 0, e.store.Len())
	status := e.messenger.StatusTexts(transfer.TextPreparing, 1)
	require.NotEmpty(t, status)
	assert.Equal(t, transfer.TextCancelled, status[len(status)-1])
}

func TestDispatch_NewFileWhileTransferring(t *testing.T) {
	tr := &gatedTransferer{data: []byte("abc"), gate: make(chan struct{}), entered: make(chan string, 1)}
	e := newEnv(t, Config{}, tr)

	e.sendFile(1, video(3))
	e.sendText(1, "y")
	e.press(1, "fmt:orig")
	<-tr.entered

	e.sendFile(1, model.FileRef{ID: "other", Name: "b.txt"})
	assert.Equal(t, textWaitForTransfer, e.messenger.LastSent().Msg.Text)
	e.sendText(1, "more text")
	assert.Equal(t, textBusy, e.messenger.LastSent().Msg.Text)

	close(tr.gate)
	e.waitIdle()
	require.Len(t, e.messenger.Files(), 1)
	assert.Equal(t, "y.mp4", e.messenger.Files()[0].FileName)
}

func TestDispatch_ConcurrentUsers(t *testing.T) {
	tr := &gatedTransferer{data: []byte("abc"), gate: make(chan struct{}), entered: make(chan string, 2)}
	e := newEnv(t, Config{}, tr)

	for _, u := range []int64{1, 2} {
		e.sendFile(u, video(3))
		e.sendText(u, "user")
		e.press(u, "fmt:orig")
	}
	<-tr.entered
	<-tr.entered

	s1, _ := e.sessions.Lookup(1)
	s2, _ := e.sessions.Lookup(2)
	assert.NotEqual(t, s1.OperationID, s2.OperationID)
	assert.True(t, strings.HasPrefix(s1.OperationID, "1_"))
	assert.True(t, strings.HasPrefix(s2.OperationID, "2_"))
	assert.Equal(t, 2, e.d.Active())

	// The event path keeps serving while both transfers are blocked.
	e.sendText(3, "/start")
	assert.Equal(t, textWelcome, e.messenger.LastSent().Msg.Text)

	close(tr.gate)
	e.waitIdle()
	files := e.messenger.Files()
	require.Len(t, files, 2)
	assert.ElementsMatch(t, []int64{1, 2}, []int64{files[0].ChatID, files[1].ChatID})
}

func TestDispatch_ConcurrencyLimit(t *testing.T) {
	tr := &gatedTransferer{data: []byte("abc"), gate: make(chan struct{}), entered: make(chan string, 2)}
	e := newEnv(t, Config{MaxConcurrentTransfers: 1}, tr)

	e.sendFile(1, video(3))
	e.sendText(1, "a")
	e.press(1, "fmt:orig")
	<-tr.entered

	e.sendFile(2, video(3))
	e.sendText(2, "b")
	e.press(2, "fmt:orig")
	assert.Equal(t, textTooManyRunning, e.messenger.LastAnswer())
	assert.Equal(t, model.StateAwaitingFormat, e.state(2))

	close(tr.gate)
	e.waitIdle()

	e.press(2, "fmt:orig")
	e.waitIdle()
	assert.Len(t, e.messenger.Files(), 2)
}

func TestDispatch_ShutdownCancelsRunningTransfers(t *testing.T) {
	tr := &gatedTransferer{data: []byte("abc"), gate: make(chan struct{}), entered: make(chan string, 1)}
	e := newEnv(t, Config{}, tr)

	e.sendFile(1, video(3))
	e.sendText(1, "a")
	e.press(1, "fmt:orig")
	<-tr.entered

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, e.d.Shutdown(ctx))

	assert.Equal(t, 0, e.d.Active())
	assert.Empty(t, e.messenger.Files())
	assert.Equal(t, 0, e.sessions.Len())
}

func (m *fakeMessenger) LastAnswer() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.answers) == 0 {
		return ""
	}
	return m.answers[len(m.answers)-1]
}
