package adapt

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"unicode/utf8"
)

// ErrEmptyAdaptation means the provider answered 2xx without usable text.
var ErrEmptyAdaptation = errors.New("empty adaptation")

// Request is one chat completion call.
type Request struct {
	System      string // Optional system message
	Prompt      string // Sole user message
	Temperature float64
	MaxTokens   int // 0 leaves the provider default
}

// Provider sends a prompt to a text generation service.
type Provider interface {
	Complete(ctx context.Context, req Request) (string, error)
	Model() string
}

// StatusError is a non-2xx provider response.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("provider status %d", e.StatusCode)
	}
	return fmt.Sprintf("provider status %d: %s", e.StatusCode, truncate(e.Message, 200))
}

// Retryable reports whether the failure is transient (429 or 5xx).
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// IsRetryable reports whether err carries a transient provider failure.
func IsRetryable(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Retryable()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
