package translation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

var (
	ErrInvalidRequest     = errors.New("invalid translation request")
	ErrRateLimitExceeded  = errors.New("rate limit exceeded")
	ErrUnknownProvider    = errors.New("unknown translation provider")
	ErrProviderNotReady   = errors.New("translation provider is not configured")
	ErrProviderFailed     = errors.New("translation provider failed")
	ErrNotFound           = errors.New("translation not found in dictionary")
	ErrAllProvidersFailed = errors.New("all translation providers failed")
	ErrStorage            = errors.New("translation storage error")
	ErrQuotaExceeded      = errors.New("daily free translation limit reached")
)

// RateLimitError names the provider and the window ("minute" or "day") that is exhausted.
type RateLimitError struct {
	Provider string
	Window   string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s (per %s)", e.Provider, e.Window)
}

func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimitExceeded
}

// ProviderError is a transport or remote API failure of one provider.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
	cause      error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: status %d: %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *ProviderError) Is(target error) bool {
	return target == ErrProviderFailed
}

func (e *ProviderError) Unwrap() error {
	return e.cause
}

// Attempt records one failed step of the fallback chain.
type Attempt struct {
	Provider string        `json:"provider"`
	Error    string        `json:"error"`
	Duration time.Duration `json:"duration_ns"`
	Err      error         `json:"-"`
}

type AllProvidersFailedError struct {
	Attempts []Attempt
}

func (e *AllProvidersFailedError) Error() string {
	if len(e.Attempts) == 0 {
		return ErrAllProvidersFailed.Error()
	}
	parts := make([]string, 0, len(e.Attempts))
	for _, attempt := range e.Attempts {
		parts = append(parts, attempt.Provider+": "+attempt.Error)
	}
	return fmt.Sprintf("%s (%s)", ErrAllProvidersFailed, strings.Join(parts, "; "))
}

func (e *AllProvidersFailedError) Is(target error) bool {
	return target == ErrAllProvidersFailed
}

func invalidRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

func newProviderError(provider string, statusCode int, format string, args ...any) *ProviderError {
	return &ProviderError{
		Provider:   provider,
		StatusCode: statusCode,
		Message:    fmt.Sprintf(format, args...),
	}
}

// asProviderError normalizes an adapter failure so every error leaving a network
// call is a *ProviderError.
func asProviderError(provider string, err error) error {
	if err == nil {
		return nil
	}
	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr
	}
	var wrapped *ProviderError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		wrapped = newProviderError(provider, http.StatusGatewayTimeout, "request timed out")
	case errors.Is(err, context.Canceled):
		wrapped = newProviderError(provider, 0, "request canceled")
	default:
		wrapped = newProviderError(provider, 0, "%s", err.Error())
	}
	wrapped.cause = err
	return wrapped
}
