package anthropic

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sdkanthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"

	"github.com/flemzord/chatmem/internal/core"
	"github.com/flemzord/chatmem/internal/provider"
)

func hello() provider.CompletionRequest {
	return provider.CompletionRequest{
		Messages: []provider.LLMMessage{
			{Role: provider.MessageRoleSystem, Content: "You are a friendly bot."},
			{Role: provider.MessageRoleUser, Content: "Hello"},
		},
	}
}

func errorServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestComplete_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		if got := gjson.GetBytes(raw, "system.0.text").String(); got != "You are a friendly bot." {
			t.Errorf("system = %q, want the system prompt", got)
		}
		if got := gjson.GetBytes(raw, "messages.#").Int(); got != 1 {
			t.Errorf("messages = %d, want 1", got)
		}
		if got := gjson.GetBytes(raw, "temperature").Float(); got != 0.7 {
			t.Errorf("temperature = %v, want 0.7", got)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_123",
			"type": "message",
			"role": "assistant",
			"content": [{"type": "text", "text": "Hello!"}],
			"model": "claude-3-5-haiku-20241022",
			"stop_reason": "end_turn",
			"stop_sequence": null,
			"usage": {"input_tokens": 10, "output_tokens": 5}
		}`))
	}))
	defer srv.Close()

	a := newTestProvider(srv.URL)

	resp, err := a.Complete(context.Background(), hello())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "Hello!" {
		t.Errorf("expected content 'Hello!', got %q", resp.Content)
	}
	if resp.FinishReason != provider.FinishReasonStop {
		t.Errorf("expected finish reason 'stop', got %q", resp.FinishReason)
	}
	if resp.Usage.TotalTokens != 15 {
		t.Errorf("expected total tokens 15, got %d", resp.Usage.TotalTokens)
	}
}

func TestComplete_RateLimit(t *testing.T) {
	srv := errorServer(t, http.StatusTooManyRequests,
		`{"type":"error","error":{"type":"rate_limit_error","message":"rate limited"}}`)

	_, err := newTestProvider(srv.URL).Complete(context.Background(), hello())
	if !errors.Is(err, provider.ErrRateLimit) {
		t.Errorf("expected ErrRateLimit, got %v", err)
	}
}

func TestComplete_ProviderDown(t *testing.T) {
	for _, status := range []int{http.StatusServiceUnavailable, statusOverloaded} {
		srv := errorServer(t, status,
			`{"type":"error","error":{"type":"overloaded_error","message":"overloaded"}}`)

		_, err := newTestProvider(srv.URL).Complete(context.Background(), hello())
		if !errors.Is(err, provider.ErrProviderDown) {
			t.Errorf("HTTP %d: expected ErrProviderDown, got %v", status, err)
		}
	}
}

func TestComplete_ContextLength(t *testing.T) {
	srv := errorServer(t, http.StatusBadRequest,
		`{"type":"error","error":{"type":"invalid_request_error","message":"prompt is too long: 210000 tokens > 200000 maximum"}}`)

	_, err := newTestProvider(srv.URL).Complete(context.Background(), hello())
	if !errors.Is(err, provider.ErrContextLength) {
		t.Errorf("expected ErrContextLength, got %v", err)
	}
}

func TestComplete_BadRequest(t *testing.T) {
	srv := errorServer(t, http.StatusBadRequest,
		`{"type":"error","error":{"type":"invalid_request_error","message":"model: field required"}}`)

	_, err := newTestProvider(srv.URL).Complete(context.Background(), hello())
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if errors.Is(err, provider.ErrContextLength) || provider.IsRetryable(err) {
		t.Errorf("expected a plain bad request, got %v", err)
	}
}

func TestComplete_Authentication(t *testing.T) {
	srv := errorServer(t, http.StatusUnauthorized,
		`{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`)

	_, err := newTestProvider(srv.URL).Complete(context.Background(), hello())
	if !errors.Is(err, provider.ErrAuthentication) {
		t.Errorf("expected ErrAuthentication, got %v", err)
	}
}

func TestComplete_ContextDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := newTestProvider(srv.URL).Complete(ctx, hello())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context.DeadlineExceeded, got %v", err)
	}
}

func TestIsContextLengthError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want bool
	}{
		{"context length", `{"error":{"type":"invalid_request_error","message":"input exceeds context length"}}`, true},
		{"wrong type", `{"error":{"type":"api_error","message":"context length"}}`, false},
		{"unrelated", `{"error":{"type":"invalid_request_error","message":"bad model"}}`, false},
		{"not json", `too many tokens`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := isContextLengthError(tt.raw); got != tt.want {
				t.Errorf("isContextLengthError(%s) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestConfigure_Defaults(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-env")

	var node yaml.Node
	if err := yaml.Unmarshal([]byte(`{}`), &node); err != nil {
		t.Fatal(err)
	}
	a := &Anthropic{}
	if err := a.Configure(node.Content[0]); err != nil {
		t.Fatalf("Configure: %v", err)
	}

	if a.config.Model != defaultModel {
		t.Errorf("Model = %q, want %q", a.config.Model, defaultModel)
	}
	if a.config.APIKey != "sk-ant-env" {
		t.Errorf("APIKey = %q, want key from ANTHROPIC_API_KEY", a.config.APIKey)
	}
	if a.config.MaxTokens != defaultMaxTokens {
		t.Errorf("MaxTokens = %d, want %d", a.config.MaxTokens, defaultMaxTokens)
	}
	if *a.config.Temperature != defaultTemperature {
		t.Errorf("Temperature = %v, want %v", *a.config.Temperature, defaultTemperature)
	}
}

func TestProvisionAndValidate(t *testing.T) {
	var secrets []string
	app := core.NewAppContext(slog.New(slog.NewTextHandler(io.Discard, nil))).
		WithSecretSink(func(s string) { secrets = append(secrets, s) })

	a := &Anthropic{config: Config{APIKey: "sk-ant-1"}}
	a.config.defaults()
	if err := a.Validate(); err == nil || !strings.Contains(err.Error(), "Provision") {
		t.Errorf("Validate before Provision = %v, want client error", err)
	}
	if err := a.Provision(app); err != nil {
		t.Fatalf("Provision: %v", err)
	}
	if err := a.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
	if len(secrets) != 1 || secrets[0] != "sk-ant-1" {
		t.Errorf("secrets = %v, want [sk-ant-1]", secrets)
	}
}

func TestValidate_MissingKey(t *testing.T) {
	a := &Anthropic{config: Config{APIKeyEnv: "ANTHROPIC_API_KEY"}}
	a.config.defaults()
	err := a.config.validate()
	if err == nil || !strings.Contains(err.Error(), "ANTHROPIC_API_KEY") {
		t.Errorf("validate = %v, want missing key error", err)
	}
}

// newTestProvider creates an Anthropic provider pointed at the given httptest server URL.
func newTestProvider(baseURL string) *Anthropic {
	temp := 0.7
	client := sdkanthropic.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey("test-key"),
		option.WithMaxRetries(0),
	)
	return &Anthropic{
		config: Config{
			Model:       "claude-3-5-haiku-20241022",
			MaxTokens:   1024,
			Temperature: &temp,
		},
		client: &client,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}
