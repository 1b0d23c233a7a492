package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ProviderError is the single failure shape every adapter returns.
// HTTPStatus is zero when the call failed before an HTTP status was seen
// (network error, timeout, cancelled context).
type ProviderError struct {
	Provider   string
	HTTPStatus int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Provider, e.Message)
	if e.HTTPStatus != 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.HTTPStatus)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ProviderError) Unwrap() error { return e.Err }

// RateLimited reports whether the upstream rejected the call with 429.
func (e *ProviderError) RateLimited() bool {
	return e.HTTPStatus == http.StatusTooManyRequests
}

// ConfigMissingError reports a provider slot with no API key. It also
// matches *ProviderError through errors.As so callers that only care about
// provider failures need no special case.
type ConfigMissingError struct {
	Provider string
	EnvVar   string
}

func (e *ConfigMissingError) Error() string {
	return fmt.Sprintf("%s is not configured: %s is not set", e.Provider, e.EnvVar)
}

func (e *ConfigMissingError) Unwrap() error {
	return &ProviderError{Provider: e.Provider, Message: "API key not configured"}
}

// IsConfigMissing reports whether err is, or wraps, a ConfigMissingError.
func IsConfigMissing(err error) bool {
	var cm *ConfigMissingError
	return errors.As(err, &cm)
}

// newProviderError builds the error for a failed upstream call. status is
// zero when no HTTP response was received.
func newProviderError(provider string, status int, err error) *ProviderError {
	pe := &ProviderError{Provider: provider, HTTPStatus: status, Err: err}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		pe.Message = "request timed out"
	case errors.Is(err, context.Canceled):
		pe.Message = "request cancelled"
	case status == http.StatusTooManyRequests:
		pe.Message = "rate limited"
	case status >= 500:
		pe.Message = "provider unavailable"
	case status >= 400:
		pe.Message = "request rejected"
	default:
		pe.Message = "request failed"
	}
	return pe
}
