package telegram

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("encode response: %v", err)
	}
}

// fakeBotAPI records sendMessage and sendChatAction calls and answers
// getUpdates from a queue of batches.
type fakeBotAPI struct {
	t   *testing.T
	srv *httptest.Server

	mu      sync.Mutex
	batches [][]Update
	sent    []SendMessageRequest
	actions []sendChatActionRequest
	offsets []int

	// sendError, if set, answers sendMessage with an API error.
	sendError func(req SendMessageRequest) *APIResponse[Message]
}

func newFakeBotAPI(t *testing.T, batches ...[]Update) *fakeBotAPI {
	t.Helper()
	f := &fakeBotAPI{t: t, batches: batches}
	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeBotAPI) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]

	switch method {
	case "getMe":
		writeJSON(f.t, w, APIResponse[User]{OK: true, Result: User{ID: 111, IsBot: true, FirstName: "Bot", Username: "chatmem_bot"}})
	case "deleteWebhook":
		writeJSON(f.t, w, APIResponse[bool]{OK: true, Result: true})
	case "getUpdates":
		var req GetUpdatesRequest
		_ = json.Unmarshal(body, &req)
		f.mu.Lock()
		f.offsets = append(f.offsets, req.Offset)
		var batch []Update
		if len(f.batches) > 0 {
			batch, f.batches = f.batches[0], f.batches[1:]
		}
		f.mu.Unlock()
		if batch == nil {
			// Emulate a long poll that ends when the client goes away.
			select {
			case <-r.Context().Done():
				return
			case <-f.t.Context().Done():
				return
			}
		}
		writeJSON(f.t, w, APIResponse[[]Update]{OK: true, Result: batch})
	case "sendMessage":
		var req SendMessageRequest
		_ = json.Unmarshal(body, &req)
		f.mu.Lock()
		f.sent = append(f.sent, req)
		sendError := f.sendError
		f.mu.Unlock()
		if sendError != nil {
			if resp := sendError(req); resp != nil {
				w.WriteHeader(resp.ErrorCode)
				writeJSON(f.t, w, resp)
				return
			}
		}
		writeJSON(f.t, w, APIResponse[Message]{OK: true, Result: Message{MessageID: 200, Chat: Chat{ID: req.ChatID}, Text: req.Text}})
	case "sendChatAction":
		var req sendChatActionRequest
		_ = json.Unmarshal(body, &req)
		f.mu.Lock()
		f.actions = append(f.actions, req)
		f.mu.Unlock()
		writeJSON(f.t, w, APIResponse[bool]{OK: true, Result: true})
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

func (f *fakeBotAPI) Sent() []SendMessageRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]SendMessageRequest(nil), f.sent...)
}

func (f *fakeBotAPI) Actions() []sendChatActionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sendChatActionRequest(nil), f.actions...)
}

func textUpdate(updateID int, chatID, userID int64, text string) Update {
	return Update{
		UpdateID: updateID,
		Message: &Message{
			MessageID: int64(updateID) * 10,
			From:      &User{ID: userID, FirstName: "Alice", Username: "alice"},
			Chat:      Chat{ID: chatID, Type: "private"},
			Date:      1700000000,
			Text:      text,
		},
	}
}
