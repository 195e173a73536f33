package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func TestGetMe(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/botTEST_TOKEN/getMe" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		writeJSON(t, w, APIResponse[User]{
			OK:     true,
			Result: User{ID: 123, IsBot: true, FirstName: "TestBot", Username: "test_bot"},
		})
	}))
	defer srv.Close()

	user, err := NewClient("TEST_TOKEN", srv.URL+"/").GetMe(context.Background())
	if err != nil {
		t.Fatalf("GetMe() error: %v", err)
	}
	if user.ID != 123 || !user.IsBot || user.Username != "test_bot" {
		t.Errorf("GetMe() = %+v", user)
	}
}

func TestSendMessage(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/botTOKEN/sendMessage" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		body, _ := io.ReadAll(r.Body)
		var req SendMessageRequest
		if err := json.Unmarshal(body, &req); err != nil {
			t.Errorf("unmarshal request: %v", err)
		}
		if req.ChatID != 42 || req.Text != "hello" || req.MessageThreadID != 5 {
			t.Errorf("request = %+v", req)
		}
		if req.ReplyParameters == nil || req.ReplyParameters.MessageID != 7 {
			t.Errorf("ReplyParameters = %+v, want message 7", req.ReplyParameters)
		}
		writeJSON(t, w, APIResponse[Message]{
			OK:     true,
			Result: Message{MessageID: 99, Chat: Chat{ID: 42, Type: "private"}, Text: "hello"},
		})
	}))
	defer srv.Close()

	msg, err := NewClient("TOKEN", srv.URL).SendMessage(context.Background(), SendMessageRequest{
		ChatID:          42,
		Text:            "hello",
		MessageThreadID: 5,
		ReplyParameters: &ReplyParameters{MessageID: 7},
	})
	if err != nil {
		t.Fatalf("SendMessage() error: %v", err)
	}
	if msg.MessageID != 99 {
		t.Errorf("MessageID = %d, want 99", msg.MessageID)
	}
}

func TestGetUpdates(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req GetUpdatesRequest
		_ = json.Unmarshal(body, &req)
		if req.Offset != 5 || req.Timeout != 30 {
			t.Errorf("request = %+v, want offset 5 timeout 30", req)
		}
		writeJSON(t, w, APIResponse[[]Update]{
			OK:     true,
			Result: []Update{textUpdate(5, 1, 1, "hi"), textUpdate(6, 1, 1, "there")},
		})
	}))
	defer srv.Close()

	updates, err := NewClient("TOKEN", srv.URL).GetUpdates(context.Background(), GetUpdatesRequest{Offset: 5, Timeout: 30})
	if err != nil {
		t.Fatalf("GetUpdates() error: %v", err)
	}
	if len(updates) != 2 || updates[1].Message.Text != "there" {
		t.Errorf("updates = %+v", updates)
	}
}

func TestAPIError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		writeJSON(t, w, APIResponse[json.RawMessage]{
			OK:          false,
			ErrorCode:   400,
			Description: "Bad Request: can't parse entities: unclosed tag",
		})
	}))
	defer srv.Close()

	_, err := NewClient("TOKEN", srv.URL).SendMessage(context.Background(), SendMessageRequest{ChatID: 1, Text: "*x"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.Code != 400 || !apiErr.IsParseError() {
		t.Errorf("APIError = %+v, want parse error", apiErr)
	}
}

func TestRateLimitRetry(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			writeJSON(t, w, APIResponse[json.RawMessage]{
				OK:          false,
				ErrorCode:   429,
				Description: "Too Many Requests: retry after 1",
				Parameters:  &ResponseParameters{RetryAfter: 1},
			})
			return
		}
		writeJSON(t, w, APIResponse[bool]{OK: true, Result: true})
	}))
	defer srv.Close()

	if err := NewClient("TOKEN", srv.URL).SendChatAction(context.Background(), 1, 0, "typing"); err != nil {
		t.Fatalf("SendChatAction() error: %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("calls = %d, want 2", got)
	}
}

func TestRateLimitRetryHonoursContext(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		writeJSON(t, w, APIResponse[json.RawMessage]{
			ErrorCode:  429,
			Parameters: &ResponseParameters{RetryAfter: 30},
		})
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go cancel()

	err := NewClient("TOKEN", srv.URL).SendChatAction(ctx, 1, 0, "typing")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestRateLimitGivesUpAfterLastAttempt(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
		// retry_after 0 falls back to the doubling delay: 1s then 2s.
		writeJSON(t, w, APIResponse[json.RawMessage]{ErrorCode: 429, Description: "Too Many Requests"})
	}))
	defer srv.Close()

	if testing.Short() {
		t.Skip("waits for the retry delays")
	}
	err := NewClient("TOKEN", srv.URL).SendChatAction(context.Background(), 1, 0, "typing")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code != 429 {
		t.Fatalf("error = %v, want 429 APIError", err)
	}
	if got := calls.Load(); got != attempts {
		t.Errorf("calls = %d, want %d", got, attempts)
	}
}

func TestTransportErrorHidesToken(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewClient("123456:SECRET", url).GetMe(context.Background())
	if err == nil {
		t.Fatal("GetMe() against closed server should fail")
	}
	if strings.Contains(err.Error(), "SECRET") {
		t.Errorf("error leaks token: %v", err)
	}
}
