package provider

import (
	"errors"
	"net/http"
)

// Failures a backend reports, independent of its wire format. The router
// turns each into a fixed apology for the user and logs the detail.
var (
	ErrRateLimit      = errors.New("provider rate limited")
	ErrContextLength  = errors.New("context length exceeded")
	ErrProviderDown   = errors.New("provider unavailable")
	ErrAuthentication = errors.New("provider authentication failed")

	// ErrEmptyResponse is returned when a completion carries no text.
	ErrEmptyResponse = errors.New("provider returned an empty response")
)

// ClassifyStatus maps an upstream HTTP status to its sentinel, or nil when
// the status has none. tooLong reports whether the body of a 400 or 413
// complains about the context window.
func ClassifyStatus(status int, tooLong bool) error {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrRateLimit
	case status >= 500:
		// Includes Anthropic's 529 "overloaded".
		return ErrProviderDown
	case status == http.StatusBadRequest || status == http.StatusRequestEntityTooLarge:
		if tooLong {
			return ErrContextLength
		}
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrAuthentication
	}
	return nil
}

// IsRetryable reports whether err is transient. Nothing in chatmem
// retries automatically; the flag is logged with the failure.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRateLimit) || errors.Is(err, ErrProviderDown)
}
