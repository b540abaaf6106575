package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/dgallion1/docadapt/internal/doctree"
)

// ErrQueueFull means the run queue has no free slot.
var ErrQueueFull = errors.New("run queue is full")

// OrchestratorConfig sizes the run queue.
type OrchestratorConfig struct {
	Batch        BatchConfig
	MaxQueueSize int
	RunTTL       time.Duration
}

// Orchestrator processes submitted runs one at a time on a single worker,
// so units of all runs share one pacing gate.
type Orchestrator struct {
	runs    *RunStore
	queue   chan *Run
	adapt   AdaptFunc
	limiter *rate.Limiter
	cfg     OrchestratorConfig
	log     *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewOrchestrator(cfg OrchestratorConfig, fn AdaptFunc, log *slog.Logger) *Orchestrator {
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.RunTTL <= 0 {
		cfg.RunTTL = time.Hour
	}
	return &Orchestrator{
		runs:    NewRunStore(cfg.RunTTL),
		queue:   make(chan *Run, cfg.MaxQueueSize),
		adapt:   fn,
		limiter: NewPacer(cfg.Batch.PacingInterval),
		cfg:     cfg,
		log:     log,
	}
}

// Start launches the worker and the run store cleanup loop.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		for {
			select {
			case <-workerCtx.Done():
				o.drain()
				return
			case run, ok := <-o.queue:
				if !ok {
					return
				}
				o.process(workerCtx, run)
			}
		}
	}()

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.runs.Cleanup()
			}
		}
	}()
}

// Stop cancels pending work and waits for the in-flight unit to finish.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	o.wg.Wait()
}

// Submit queues a run for processing.
func (o *Orchestrator) Submit(run *Run) error {
	o.runs.Put(run)
	select {
	case o.queue <- run:
		return nil
	default:
		run.Fail("queue full")
		return fmt.Errorf("%w (%d)", ErrQueueFull, o.cfg.MaxQueueSize)
	}
}

// GetRun returns a run by ID.
func (o *Orchestrator) GetRun(id string) *Run {
	return o.runs.Get(id)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}

func (o *Orchestrator) process(ctx context.Context, run *Run) {
	log := o.log.With("run_id", run.ID, "source", run.Source)
	run.SetStatus(StatusRunning)

	opts := []BatchOption{WithLimiter(o.limiter), WithProgress(run.Observe)}
	if l := run.Loader(); l != nil {
		opts = append(opts, WithBodyLoader(l))
	}
	result := NewBatch(o.adapt, o.cfg.Batch, log, opts...).Run(ctx, run.Selection())

	status := StatusCompleted
	if ctx.Err() != nil {
		status = StatusCancelled
	}
	run.Finish(result, status)
}

// drain records every unit of runs still queued at shutdown as cancelled,
// so their documents keep one block per unit.
func (o *Orchestrator) drain() {
	for {
		select {
		case run := <-o.queue:
			result := doctree.NewResult()
			for _, u := range run.Selection() {
				result.Record(u.Path, u.Title, doctree.Failure(ReasonCancelled))
			}
			run.Finish(result, StatusCancelled)
		default:
			return
		}
	}
}
