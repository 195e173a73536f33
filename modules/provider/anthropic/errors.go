package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	sdkanthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/tidwall/gjson"

	"github.com/flemzord/chatmem/internal/provider"
)

// statusOverloaded is Anthropic's non-standard "overloaded" status.
const statusOverloaded = 529

// mapError converts an Anthropic SDK error into the appropriate provider
// sentinel error. Non-API errors are reported as provider down.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var apiErr *sdkanthropic.Error
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("%w: %w", provider.ErrProviderDown, err)
	}

	if sentinel := provider.ClassifyStatus(apiErr.StatusCode, isContextLengthError(apiErr.RawJSON())); sentinel != nil {
		return fmt.Errorf("%w: HTTP %d: %w", sentinel, apiErr.StatusCode, err)
	}
	if apiErr.StatusCode == http.StatusBadRequest {
		return fmt.Errorf("anthropic bad request: %w", err)
	}
	return fmt.Errorf("anthropic error (HTTP %d): %w", apiErr.StatusCode, err)
}

// isContextLengthError checks whether a 400 error body is about exceeding
// the model's context window. Only invalid_request_error bodies qualify.
func isContextLengthError(raw string) bool {
	if !gjson.Valid(raw) {
		return containsContextHint(raw)
	}
	body := gjson.Parse(raw)
	if body.Get("error.type").String() != "invalid_request_error" {
		return false
	}
	return containsContextHint(body.Get("error.message").String())
}

func containsContextHint(s string) bool {
	s = strings.ToLower(s)
	return strings.Contains(s, "context length") ||
		strings.Contains(s, "prompt is too long") ||
		strings.Contains(s, "too many tokens") ||
		strings.Contains(s, "token limit")
}
