package telegram

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/qbridge/qbot/internal/testutil"
)

// fakeBotAPI is an in-process Bot API server.
type fakeBotAPI struct {
	t      *testing.T
	server *httptest.Server

	mu             sync.Mutex
	pending        []map[string]any // updates served by the next getUpdates
	sent           []sentRequest
	deleted        []string
	nextID         int
	rejectMarkdown bool
	conflict       bool
}

type sentRequest struct {
	chatID    string
	text      string
	parseMode string
}

func newFakeBotAPI(t *testing.T) *fakeBotAPI {
	t.Helper()
	f := &fakeBotAPI{t: t, nextID: 100}
	f.server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeBotAPI) endpoint() string {
	return f.server.URL + "/bot%s/%s"
}

func (f *fakeBotAPI) newClient() *Client {
	f.t.Helper()
	client, err := NewClientWithEndpoint(testutil.FakeTelegramBotToken, f.endpoint())
	require.NoError(f.t, err)
	f.t.Cleanup(client.Close)
	return client
}

func (f *fakeBotAPI) queueText(updateID int, userID, chatID int64, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = append(f.pending, map[string]any{
		"update_id": updateID,
		"message": map[string]any{
			"message_id": updateID * 10,
			"date":       0,
			"text":       text,
			"from":       map[string]any{"id": userID, "is_bot": false, "first_name": "Ada", "username": "ada"},
			"chat":       map[string]any{"id": chatID, "type": "private"},
		},
	})
}

func (f *fakeBotAPI) setRejectMarkdown(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rejectMarkdown = v
}

func (f *fakeBotAPI) setConflict(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.conflict = v
}

func (f *fakeBotAPI) sentMessages() []sentRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentRequest(nil), f.sent...)
}

func (f *fakeBotAPI) deletedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

func (f *fakeBotAPI) serve(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]

	switch method {
	case "getMe":
		writeOK(w, map[string]any{"id": 1, "is_bot": true, "first_name": "qbot", "username": "qbot"})

	case "getUpdates":
		f.mu.Lock()
		if f.conflict {
			f.mu.Unlock()
			writeError(w, http.StatusConflict, "Conflict: terminated by other getUpdates request")
			return
		}
		updates := f.pending
		f.pending = nil
		f.mu.Unlock()

		if len(updates) == 0 {
			select {
			case <-r.Context().Done():
				return
			case <-time.After(50 * time.Millisecond):
			}
		}
		if updates == nil {
			updates = []map[string]any{}
		}
		writeOK(w, updates)

	case "sendMessage":
		f.mu.Lock()
		req := sentRequest{
			chatID:    r.PostForm.Get("chat_id"),
			text:      r.PostForm.Get("text"),
			parseMode: r.PostForm.Get("parse_mode"),
		}
		if f.rejectMarkdown && req.parseMode != "" {
			f.mu.Unlock()
			writeError(w, http.StatusBadRequest, "Bad Request: can't parse entities")
			return
		}
		f.nextID++
		id := f.nextID
		f.sent = append(f.sent, req)
		f.mu.Unlock()

		chatID, _ := strconv.ParseInt(req.chatID, 10, 64)
		writeOK(w, map[string]any{
			"message_id": id,
			"date":       0,
			"text":       req.text,
			"chat":       map[string]any{"id": chatID, "type": "private"},
		})

	case "deleteMessage":
		f.mu.Lock()
		f.deleted = append(f.deleted, r.PostForm.Get("message_id"))
		f.mu.Unlock()
		writeOK(w, true)

	default:
		writeError(w, http.StatusNotFound, fmt.Sprintf("Not Found: method %s", method))
	}
}

func writeOK(w http.ResponseWriter, result any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": result})
}

func writeError(w http.ResponseWriter, code int, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error_code": code, "description": description})
}
