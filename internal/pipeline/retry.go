package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/dgallion1/docadapt/internal/adapt"
)

// Retrier re-runs a unit's provider call on transient failures. One
// attempt means no retry.
type Retrier struct {
	attempts uint
	delay    time.Duration
	log      *slog.Logger
}

func NewRetrier(attempts int, delay time.Duration, log *slog.Logger) *Retrier {
	if attempts < 1 {
		attempts = 1
	}
	if delay <= 0 {
		delay = time.Second
	}
	return &Retrier{attempts: uint(attempts), delay: delay, log: log}
}

// Do calls fn until it succeeds, fails permanently, or attempts run out.
// ctx only bounds the waits between attempts.
func (r *Retrier) Do(ctx context.Context, fn func() (string, error)) (string, error) {
	if r.attempts == 1 {
		return fn()
	}
	return retry.DoWithData(fn,
		retry.Context(ctx),
		retry.Attempts(r.attempts),
		retry.Delay(r.delay),
		retry.DelayType(retry.BackOffDelay),
		retry.MaxDelay(30*time.Second),
		retry.RetryIf(adapt.IsRetryable),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			r.log.Warn("retryable provider error", "attempt", n+1, "error", err)
		}),
	)
}
