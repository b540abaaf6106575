package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/dgallion1/docadapt/internal/doctree"
	"github.com/dgallion1/docadapt/internal/selection"
)

// Failure reasons recorded without a provider error.
const (
	ReasonNoContent = "content not available"
	ReasonCancelled = "cancelled"
)

// UnitState is the per-unit state machine position.
type UnitState string

const (
	UnitPending    UnitState = "pending"
	UnitInProgress UnitState = "in_progress"
	UnitAdapted    UnitState = "adapted"
	UnitFailed     UnitState = "failed"
)

// AdaptFunc rewrites one unit.
type AdaptFunc func(ctx context.Context, title, body string) (string, error)

// BodyLoader resolves the body of a unit selected without one.
type BodyLoader interface {
	LoadBody(ctx context.Context, unit doctree.Unit) (string, error)
}

// Progress reports one unit state change. Index is 1-based.
type Progress struct {
	Index   int
	Total   int
	Path    string
	State   UnitState
	Outcome doctree.Outcome
}

// BatchConfig controls pacing and retry.
type BatchConfig struct {
	PacingInterval time.Duration // Minimum gap between provider calls
	MaxAttempts    int
	RetryDelay     time.Duration
}

// Batch runs a selection through the adapter one unit at a time.
type Batch struct {
	adapt      AdaptFunc
	loader     BodyLoader
	limiter    *rate.Limiter
	retrier    *Retrier
	log        *slog.Logger
	onProgress func(Progress)
}

// BatchOption customizes a Batch.
type BatchOption func(*Batch)

// WithBodyLoader sets the loader for lazily selected units.
func WithBodyLoader(l BodyLoader) BatchOption {
	return func(b *Batch) { b.loader = l }
}

// WithProgress registers a callback for unit state changes.
func WithProgress(fn func(Progress)) BatchOption {
	return func(b *Batch) { b.onProgress = fn }
}

// WithLimiter shares a pacing gate across batches.
func WithLimiter(l *rate.Limiter) BatchOption {
	return func(b *Batch) { b.limiter = l }
}

// NewPacer builds the minimum-interval gate. A non-positive interval
// disables pacing.
func NewPacer(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

func NewBatch(fn AdaptFunc, cfg BatchConfig, log *slog.Logger, opts ...BatchOption) *Batch {
	b := &Batch{
		adapt:   fn,
		limiter: NewPacer(cfg.PacingInterval),
		retrier: NewRetrier(cfg.MaxAttempts, cfg.RetryDelay, log),
		log:     log,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run processes every unit in selection order and returns one outcome per
// unit. Unit failures never stop the batch. Once ctx is cancelled the
// unit in flight still completes and the remaining units are recorded as
// cancelled.
func (b *Batch) Run(ctx context.Context, set selection.Set) *doctree.Result {
	result := doctree.NewResult()
	total := len(set)
	start := time.Now()

	for i, unit := range set {
		index := i + 1

		if b.pace(ctx) != nil {
			b.finish(result, index, total, unit, doctree.Failure(ReasonCancelled))
			continue
		}

		b.notify(Progress{Index: index, Total: total, Path: unit.Path, State: UnitInProgress})
		b.log.Info("unit started", "index", index, "total", total, "path", unit.Path)

		o := b.process(ctx, unit)
		b.finish(result, index, total, unit, o)
	}

	sum := result.Summarize()
	b.log.Info("batch complete",
		"succeeded", sum.Succeeded,
		"total", sum.Total,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result
}

// process runs one unit to a terminal outcome. The provider call is not
// cancelled mid-flight; transport timeouts bound it.
func (b *Batch) process(ctx context.Context, unit doctree.Unit) doctree.Outcome {
	callCtx := context.WithoutCancel(ctx)
	unitStart := time.Now()

	body := unit.Body
	if strings.TrimSpace(body) == "" && unit.Ref != "" && b.loader != nil {
		loaded, err := b.loader.LoadBody(callCtx, unit)
		if err != nil {
			return doctree.Failure(err.Error())
		}
		body = loaded
	}
	if strings.TrimSpace(body) == "" {
		return doctree.Failure(ReasonNoContent)
	}

	text, err := b.retrier.Do(ctx, func() (string, error) {
		return b.adapt(callCtx, unit.Title, body)
	})
	if err != nil {
		// Transport timeouts also match DeadlineExceeded; only the batch
		// context decides cancellation.
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			return doctree.Failure(ReasonCancelled)
		}
		return doctree.Failure(err.Error())
	}

	b.log.Info("unit adapted", "path", unit.Path, "duration_ms", time.Since(unitStart).Milliseconds())
	return doctree.Adapted(text)
}

// pace blocks until the gate admits the next unit. It fails only once ctx
// is done, not when a deadline merely falls before the next slot.
func (b *Batch) pace(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r := b.limiter.Reserve()
	delay := r.Delay()
	if delay == 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		r.Cancel()
		return ctx.Err()
	}
}

func (b *Batch) finish(result *doctree.Result, index, total int, unit doctree.Unit, o doctree.Outcome) {
	result.Record(unit.Path, unit.Title, o)

	state := UnitAdapted
	if o.Failed {
		state = UnitFailed
		b.log.Warn("unit failed", "index", index, "total", total, "path", unit.Path, "reason", o.Reason)
	}
	b.notify(Progress{Index: index, Total: total, Path: unit.Path, State: state, Outcome: o})
}

func (b *Batch) notify(p Progress) {
	if b.onProgress != nil {
		b.onProgress(p)
	}
}
