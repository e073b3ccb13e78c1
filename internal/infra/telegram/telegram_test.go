// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/renamebot/internal/domain/rename/model"
	"github.com/ManuGH/renamebot/internal/domain/rename/ports"
)

const testToken = "123:TESTTOKEN"

type apiCall struct {
	Method   string
	Form     map[string]string
	FileName string
	FileBody []byte
}

// fakeAPI emulates the subset of the Bot API the client uses.
type fakeAPI struct {
	t        *testing.T
	srv      *httptest.Server
	mu       sync.Mutex
	calls    []apiCall
	files    map[string][]byte
	failWith map[string]string
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	api := &fakeAPI{t: t, files: map[string][]byte{}, failWith: map[string]string{}}
	api.srv = httptest.NewServer(http.HandlerFunc(api.serve))
	t.Cleanup(api.srv.Close)
	return api
}

func (a *fakeAPI) serve(w http.ResponseWriter, r *http.Request) {
	if rest, ok := strings.CutPrefix(r.URL.Path, "/file/bot"+testToken+"/"); ok {
		a.mu.Lock()
		body, found := a.files[rest]
		a.mu.Unlock()
		if !found {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(body)
		return
	}

	method, ok := strings.CutPrefix(r.URL.Path, "/bot"+testToken+"/")
	if !ok {
		http.Error(w, "bad token", http.StatusUnauthorized)
		return
	}
	call := apiCall{Method: method, Form: map[string]string{}}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		require.NoError(a.t, r.ParseMultipartForm(32<<20))
		for k, v := range r.MultipartForm.Value {
			call.Form[k] = v[0]
		}
		for _, fhs := range r.MultipartForm.File {
			f, err := fhs[0].Open()
			require.NoError(a.t, err)
			call.FileName = fhs[0].Filename
			call.FileBody, _ = io.ReadAll(f)
			_ = f.Close()
		}
	} else {
		require.NoError(a.t, r.ParseForm())
		for k, v := range r.PostForm {
			call.Form[k] = v[0]
		}
	}
	a.mu.Lock()
	a.calls = append(a.calls, call)
	failure := a.failWith[method]
	a.mu.Unlock()

	if failure != "" {
		writeJSON(w, map[string]any{"ok": false, "error_code": 400, "description": failure})
		return
	}

	var result any
	switch method {
	case "getMe":
		result = map[string]any{"id": 1, "is_bot": true, "first_name": "Rename", "username": "renamebot"}
	case "getUpdates":
		result = []any{}
	case "getFile":
		result = map[string]any{"file_id": call.Form["file_id"], "file_unique_id": "u", "file_path": "documents/" + call.Form["file_id"]}
	case "sendMessage", "sendDocument", "sendVideo", "sendPhoto", "editMessageText":
		result = map[string]any{"message_id": 42, "date": 0, "chat": map[string]any{"id": 7, "type": "private"}}
	default:
		result = true
	}
	writeJSON(w, map[string]any{"ok": true, "result": result})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func (a *fakeAPI) lastCall(method string) (apiCall, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := len(a.calls) - 1; i >= 0; i-- {
		if a.calls[i].Method == method {
			return a.calls[i], true
		}
	}
	return apiCall{}, false
}

func newTestClient(t *testing.T, api *fakeAPI, chunk int) *Client {
	t.Helper()
	c, err := New(Config{
		Token:        testToken,
		APIEndpoint:  api.srv.URL + "/bot%s/%s",
		FileEndpoint: api.srv.URL + "/file/bot%s/%s",
		ChunkSize:    chunk,
		PollTimeout:  time.Second,
		HTTPClient:   api.srv.Client(),
		FileClient:   api.srv.Client(),
	})
	require.NoError(t, err)
	return c
}

func TestNew_RequiresToken(t *testing.T) {
	_, err := New(Config{Token: " "})
	assert.Error(t, err)
}

func TestNew_ConnectsWithGetMe(t *testing.T) {
	api := newFakeAPI(t)
	c := newTestClient(t, api, 0)
	assert.Equal(t, "renamebot", c.UserName())
	assert.True(t, c.LastPoll().IsZero())
}

func TestClient_SendAndEdit(t *testing.T) {
	api := newFakeAPI(t)
	c := newTestClient(t, api, 0)
	ctx := context.Background()

	ref, err := c.Send(ctx, ports.OutboundMessage{
		ChatID:   7,
		Text:     "pick",
		Markdown: true,
		Buttons:  []ports.ButtonRow{{{Text: "Doc", Data: "fmt:doc"}}},
	})
	require.NoError(t, err)
	assert.Equal(t, ports.MessageRef{ChatID: 7, MessageID: 42}, ref)

	call, ok := api.lastCall("sendMessage")
	require.True(t, ok)
	assert.Equal(t, "7", call.Form["chat_id"])
	assert.Equal(t, "pick", call.Form["text"])
	assert.Equal(t, tgbotapi.ModeMarkdown, call.Form["parse_mode"])
	assert.Contains(t, call.Form["reply_markup"], `"callback_data":"fmt:doc"`)

	require.NoError(t, c.Edit(ctx, ref, "done. :)", nil))
	call, ok = api.lastCall("editMessageText")
	require.True(t, ok)
	assert.Equal(t, "42", call.Form["message_id"])
	assert.Empty(t, call.Form["reply_markup"], "nil buttons remove the keyboard")

	api.failWith["editMessageText"] = "Bad Request: message is not modified"
	assert.NoError(t, c.Edit(ctx, ref, "done. :)", nil))

	api.failWith["editMessageText"] = "Bad Request: message to edit not found"
	assert.ErrorIs(t, c.Edit(ctx, ref, "x", nil), ports.ErrTransport)
}

func TestClient_DeleteAndAnswer(t *testing.T) {
	api := newFakeAPI(t)
	c := newTestClient(t, api, 0)
	ctx := context.Background()

	require.NoError(t, c.Delete(ctx, 7, 1, 2))
	call, _ := api.lastCall("deleteMessage")
	assert.Equal(t, "2", call.Form["message_id"])

	require.NoError(t, c.AnswerButton(ctx, "cb-1", "cancelling..."))
	call, _ = api.lastCall("answerCallbackQuery")
	assert.Equal(t, "cb-1", call.Form["callback_query_id"])

	api.failWith["deleteMessage"] = "Bad Request: message can't be deleted"
	assert.ErrorIs(t, c.Delete(ctx, 7, 3), ports.ErrTransport)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, c.AnswerButton(cancelled, "cb", ""), context.Canceled)
}

func TestClient_DownloadStreamsInChunks(t *testing.T) {
	api := newFakeAPI(t)
	body := bytes.Repeat([]byte("0123456789"), 150_000)
	api.files["documents/f1"] = body
	c := newTestClient(t, api, 64<<10)

	var (
		mu    sync.Mutex
		calls [][2]int64
	)
	var dst bytes.Buffer
	n, err := c.Download(context.Background(), model.FileRef{ID: "f1", Size: int64(len(body))}, &dst, func(cur, total int64) {
		mu.Lock()
		calls = append(calls, [2]int64{cur, total})
		mu.Unlock()
	})
	require.NoError(t, err)
	assert.Equal(t, int64(len(body)), n)
	assert.Equal(t, body, dst.Bytes())

	require.Greater(t, len(calls), 2)
	for i := 1; i < len(calls); i++ {
		assert.GreaterOrEqual(t, calls[i][0], calls[i-1][0])
		assert.LessOrEqual(t, calls[i][0]-calls[i-1][0], int64(64<<10))
	}
	assert.Equal(t, [2]int64{int64(len(body)), int64(len(body))}, calls[len(calls)-1])
}

func TestClient_DownloadMissingFile(t *testing.T) {
	api := newFakeAPI(t)
	c := newTestClient(t, api, 0)

	_, err := c.Download(context.Background(), model.FileRef{ID: "missing"}, io.Discard, func(int64, int64) {})
	require.ErrorIs(t, err, ports.ErrTransport)
	assert.NotContains(t, err.Error(), testToken)
}

func TestClient_DownloadCancelled(t *testing.T) {
	api := newFakeAPI(t)
	api.files["documents/f"] = []byte("data")
	c := newTestClient(t, api, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Download(ctx, model.FileRef{ID: "f"}, io.Discard, func(int64, int64) {})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClient_UploadAndSendDocument(t *testing.T) {
	api := newFakeAPI(t)
	c := newTestClient(t, api, 0)

	body := bytes.Repeat([]byte("u"), 200_000)
	path := filepath.Join(t.TempDir(), "report.jpg")
	require.NoError(t, os.WriteFile(path, body, 0o600))

	var last atomic.Int64
	h, err := c.Upload(context.Background(), ports.UploadSource{Path: path, Name: "report.jpg", Size: int64(len(body))}, func(cur, _ int64) {
		last.Store(cur)
	})
	require.NoError(t, err)
	defer func() { _ = h.Close() }()
	assert.Equal(t, int64(len(body)), h.Size())

	err = c.SendFile(context.Background(), ports.OutgoingFile{
		ChatID:        7,
		Upload:        h,
		FileName:      "report.jpg",
		Caption:       "**report.jpg**",
		Markdown:      true,
		ForceDocument: true,
		Kind:          model.KindPhoto,
		MimeType:      "image/jpeg",
	})
	require.NoError(t, err)

	call, ok := api.lastCall("sendDocument")
	require.True(t, ok)
	assert.Equal(t, "report.jpg", call.FileName)
	assert.Equal(t, body, call.FileBody)
	assert.Equal(t, "**report.jpg**", call.Form["caption"])
	assert.Equal(t, tgbotapi.ModeMarkdown, call.Form["parse_mode"])
	assert.Equal(t, int64(len(body)), last.Load())

	assert.NoError(t, h.Close())
	assert.NoError(t, h.Close())
}

func TestClient_SendFileOriginalVideo(t *testing.T) {
	api := newFakeAPI(t)
	c := newTestClient(t, api, 0)

	path := filepath.Join(t.TempDir(), "trip.mp4")
	require.NoError(t, os.WriteFile(path, []byte("mp4"), 0o600))
	h, err := c.Upload(context.Background(), ports.UploadSource{Path: path, Name: "trip.mp4", Size: 3}, func(int64, int64) {})
	require.NoError(t, err)
	defer func() { _ = h.Close() }()

	require.NoError(t, c.SendFile(context.Background(), ports.OutgoingFile{ChatID: 7, Upload: h, FileName: "trip.mp4", Kind: model.KindVideo}))
	call, ok := api.lastCall("sendVideo")
	require.True(t, ok)
	assert.Equal(t, "trip.mp4", call.FileName)
	assert.Equal(t, "true", call.Form["supports_streaming"])
}

func TestClient_SendFileRejectsForeignHandle(t *testing.T) {
	api := newFakeAPI(t)
	c := newTestClient(t, api, 0)
	err := c.SendFile(context.Background(), ports.OutgoingFile{Upload: foreignHandle{}})
	assert.ErrorIs(t, err, ports.ErrTransport)
}

type foreignHandle struct{}

func (foreignHandle) Name() string { return "" }
func (foreignHandle) Size() int64  { return 0 }
func (foreignHandle) Close() error { return nil }

func TestPresentation(t *testing.T) {
	tests := []struct {
		kind model.FileKind
		mime string
		want model.FileKind
	}{
		{kind: model.KindVideo, mime: "", want: model.KindVideo},
		{kind: model.KindDocument, mime: "video/mp4", want: model.KindVideo},
		{kind: model.KindDocument, mime: "audio/mpeg", want: model.KindAudio},
		{kind: model.KindDocument, mime: "image/gif", want: model.KindAnimation},
		{kind: model.KindDocument, mime: "image/png", want: model.KindPhoto},
		{kind: model.KindDocument, mime: "image/svg+xml", want: model.KindDocument},
		{kind: "", mime: "application/pdf", want: model.KindDocument},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, presentation(tt.kind, tt.mime), "%s %s", tt.kind, tt.mime)
	}
}

func TestRedact(t *testing.T) {
	err := redact(errors.New(`Post "https://api.telegram.org/bot`+testToken+`/getMe": EOF`), testToken)
	assert.NotContains(t, err.Error(), testToken)
	assert.Contains(t, err.Error(), "<redacted>")

	plain := errors.New("x")
	assert.Same(t, plain, redact(plain, testToken))
	assert.Nil(t, redact(nil, testToken))
}

func TestToInbound(t *testing.T) {
	now := time.Unix(1700000000, 0)
	user := &tgbotapi.User{ID: 5}
	chat := &tgbotapi.Chat{ID: 500}

	t.Run("callback", func(t *testing.T) {
		in, ok := toInbound(tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
			ID: "cb", From: user, Data: "fmt:doc",
			Message: &tgbotapi.Message{MessageID: 9, Chat: chat},
		}}, now)
		require.True(t, ok)
		assert.Equal(t, int64(5), in.UserID)
		assert.Equal(t, int64(500), in.ChatID)
		require.NotNil(t, in.Button)
		assert.Equal(t, model.ButtonPress{CallbackID: "cb", Data: "fmt:doc", MessageID: 9}, *in.Button)
	})

	t.Run("document with caption", func(t *testing.T) {
		in, ok := toInbound(tgbotapi.Update{Message: &tgbotapi.Message{
			MessageID: 3, From: user, Chat: chat, Caption: "cap",
			Document: &tgbotapi.Document{FileID: "d", FileUniqueID: "du", FileName: "a.pdf", MimeType: "application/pdf", FileSize: 10},
		}}, now)
		require.True(t, ok)
		require.NotNil(t, in.File)
		assert.Equal(t, model.FileRef{ID: "d", UniqueID: "du", Name: "a.pdf", Size: 10, MimeType: "application/pdf", Kind: model.KindDocument}, *in.File)
		assert.Equal(t, "cap", in.Text)
		assert.Equal(t, now, in.ReceivedAt)
	})

	t.Run("photo picks largest size", func(t *testing.T) {
		in, ok := toInbound(tgbotapi.Update{Message: &tgbotapi.Message{
			From: user, Chat: chat,
			Photo: []tgbotapi.PhotoSize{{FileID: "small", FileSize: 1}, {FileID: "large", FileSize: 100}},
		}}, now)
		require.True(t, ok)
		assert.Equal(t, "large", in.File.ID)
		assert.Equal(t, "photo.jpg", in.File.Name)
		assert.Equal(t, model.KindPhoto, in.File.Kind)
	})

	t.Run("voice gets synthetic name", func(t *testing.T) {
		in, _ := toInbound(tgbotapi.Update{Message: &tgbotapi.Message{
			From: user, Chat: chat,
			Voice: &tgbotapi.Voice{FileID: "v"},
		}}, now)
		assert.Equal(t, "voice.ogg", in.File.Name)
	})

	t.Run("text", func(t *testing.T) {
		in, ok := toInbound(tgbotapi.Update{Message: &tgbotapi.Message{From: user, Chat: chat, Text: "report"}}, now)
		require.True(t, ok)
		assert.Nil(t, in.File)
		assert.Equal(t, "report", in.Text)
	})

	t.Run("no sender", func(t *testing.T) {
		_, ok := toInbound(tgbotapi.Update{Message: &tgbotapi.Message{Chat: chat, Text: "x"}}, now)
		assert.False(t, ok)
		_, ok = toInbound(tgbotapi.Update{}, now)
		assert.False(t, ok)
	})
}

func TestClient_UpdatesPollsAndStops(t *testing.T) {
	api := newFakeAPI(t)
	c := newTestClient(t, api, 0)

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := c.Updates(ctx)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return !c.LastPoll().IsZero() }, 5*time.Second, 10*time.Millisecond)
	cancel()
	for range ch {
	}
}
