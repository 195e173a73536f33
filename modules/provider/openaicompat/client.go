package openaicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/flemzord/chatmem/internal/provider"
)

// Request side of the chat completions API. Responses are read with gjson.

type oaiRequest struct {
	Model       string       `json:"model"`
	Messages    []oaiMessage `json:"messages"`
	MaxTokens   int          `json:"max_tokens,omitempty"`
	Temperature *float64     `json:"temperature,omitempty"`
}

type oaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// parseCompletion reads the first choice and the usage block of a chat
// completions body. Missing total_tokens is summed from its parts.
func parseCompletion(raw []byte) (provider.CompletionResponse, error) {
	if !gjson.ValidBytes(raw) {
		return provider.CompletionResponse{}, fmt.Errorf("%w: response is not JSON", provider.ErrProviderDown)
	}
	body := gjson.ParseBytes(raw)

	usage := body.Get("usage")
	cr := provider.CompletionResponse{
		Usage: provider.TokenUsage{
			PromptTokens:     int(usage.Get("prompt_tokens").Int()),
			CompletionTokens: int(usage.Get("completion_tokens").Int()),
			TotalTokens:      int(usage.Get("total_tokens").Int()),
		},
	}
	if cr.Usage.TotalTokens == 0 {
		cr.Usage.TotalTokens = cr.Usage.PromptTokens + cr.Usage.CompletionTokens
	}

	if choice := body.Get("choices.0"); choice.Exists() {
		cr.Content = choice.Get("message.content").String()
		cr.FinishReason = mapFinishReason(choice.Get("finish_reason").String())
	}
	return cr, nil
}

// mapFinishReason converts an OpenAI finish_reason string to a provider.FinishReason.
func mapFinishReason(reason string) provider.FinishReason {
	switch reason {
	case "stop":
		return provider.FinishReasonStop
	case "length":
		return provider.FinishReasonLength
	case "content_filter":
		return provider.FinishReasonFiltering
	default:
		return provider.FinishReason(reason)
	}
}

// doRequest executes an HTTP POST to the chat completions endpoint.
func (p *Provider) doRequest(ctx context.Context, body oaiRequest) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := p.config.BaseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.config.APIKey)
	for k, v := range p.config.Headers {
		req.Header.Set(k, v)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		// Caller cancellation and timeouts are not provider failures.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %w", provider.ErrProviderDown, err)
	}
	return resp, nil
}

// Read limits for response bodies.
const (
	maxErrorBodySize = 4096
	maxBodySize      = 8 << 20
)

// handleErrorResponse maps HTTP error status codes to sentinel errors.
func handleErrorResponse(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	detail := errorDetail(body)

	sentinel := provider.ClassifyStatus(resp.StatusCode, isContextLengthError(body))
	switch {
	case sentinel != nil:
		return fmt.Errorf("%w: HTTP %d: %s", sentinel, resp.StatusCode, detail)
	case resp.StatusCode == http.StatusBadRequest:
		return fmt.Errorf("bad request: %s", detail)
	default:
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, detail)
	}
}

// errorDetail extracts error.message from an OpenAI-style error body,
// falling back to the raw body.
func errorDetail(body []byte) string {
	if msg := gjson.GetBytes(body, "error.message"); msg.Exists() && msg.String() != "" {
		return msg.String()
	}
	return strings.TrimSpace(string(body))
}

// isContextLengthError checks if an error body indicates a context length exceeded error.
func isContextLengthError(body []byte) bool {
	if gjson.GetBytes(body, "error.code").String() == "context_length_exceeded" {
		return true
	}
	lower := strings.ToLower(gjson.GetBytes(body, "error.message").String())
	if lower == "" {
		lower = strings.ToLower(string(body))
	}
	return strings.Contains(lower, "context length") ||
		strings.Contains(lower, "context_length_exceeded") ||
		strings.Contains(lower, "maximum context") ||
		strings.Contains(lower, "token limit")
}
