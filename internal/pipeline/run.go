package pipeline

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/docadapt/internal/doctree"
	"github.com/dgallion1/docadapt/internal/selection"
)

// RunStatus represents the state of an adaptation run.
type RunStatus string

const (
	StatusQueued    RunStatus = "queued"
	StatusRunning   RunStatus = "running"
	StatusCompleted RunStatus = "completed"
	StatusCancelled RunStatus = "cancelled"
	StatusFailed    RunStatus = "failed"
)

// Run tracks one batch submitted for asynchronous processing.
type Run struct {
	mu sync.Mutex

	ID     string    `json:"run_id"`
	Title  string    `json:"title"`
	Source string    `json:"source"`
	Status RunStatus `json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Internal: not serialized.
	set    selection.Set
	loader BodyLoader
	units  []UnitStatus
	done   int
	result *doctree.Result
	err    string
}

// UnitStatus is the visible state of one unit in a run.
type UnitStatus struct {
	Path   string    `json:"path"`
	State  UnitState `json:"state"`
	Reason string    `json:"reason,omitempty"`
}

// RunProgress counts units that reached a terminal state.
type RunProgress struct {
	Done  int `json:"done"`
	Total int `json:"total"`
}

// NewRun creates a queued run over set. loader may be nil.
func NewRun(title, source string, set selection.Set, loader BodyLoader) *Run {
	now := time.Now()
	units := make([]UnitStatus, len(set))
	for i, u := range set {
		units[i] = UnitStatus{Path: u.Path, State: UnitPending}
	}
	return &Run{
		ID:        uuid.NewString(),
		Title:     title,
		Source:    source,
		Status:    StatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
		set:       set,
		loader:    loader,
		units:     units,
	}
}

// SetStatus updates run status atomically.
func (r *Run) SetStatus(status RunStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Status = status
	r.UpdatedAt = time.Now()
}

// Fail marks the run failed before any unit was processed.
func (r *Run) Fail(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Status = StatusFailed
	r.err = msg
	r.UpdatedAt = time.Now()
}

// Observe applies a batch progress event.
func (r *Run) Observe(p Progress) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := p.Index - 1
	if i < 0 || i >= len(r.units) {
		return
	}
	r.units[i].State = p.State
	if p.State == UnitAdapted || p.State == UnitFailed {
		r.units[i].Reason = p.Outcome.Reason
		r.done++
	}
	r.UpdatedAt = time.Now()
}

// Finish stores the result and the terminal status. Unit states are
// reconciled with the recorded outcomes.
func (r *Run) Finish(result *doctree.Result, status RunStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.result = result
	r.done = 0
	for i := range r.units {
		o, ok := result.Get(r.units[i].Path)
		if !ok {
			continue
		}
		r.units[i].State, r.units[i].Reason = UnitAdapted, ""
		if o.Failed {
			r.units[i].State, r.units[i].Reason = UnitFailed, o.Reason
		}
		r.done++
	}
	r.Status = status
	r.UpdatedAt = time.Now()
}

// Result returns the outcomes once the run is done, else nil.
func (r *Run) Result() *doctree.Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.result
}

// Selection returns the units to process.
func (r *Run) Selection() selection.Set {
	return r.set
}

// Loader returns the body loader, if any.
func (r *Run) Loader() BodyLoader {
	return r.loader
}

// RunSnapshot is a read-only, JSON-safe copy of run state.
type RunSnapshot struct {
	ID        string           `json:"run_id"`
	Title     string           `json:"title"`
	Source    string           `json:"source"`
	Status    RunStatus        `json:"status"`
	Progress  RunProgress      `json:"progress"`
	Units     []UnitStatus     `json:"units"`
	Summary   *doctree.Summary `json:"summary,omitempty"`
	Error     string           `json:"error,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the run state.
func (r *Run) Snapshot() RunSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	units := make([]UnitStatus, len(r.units))
	copy(units, r.units)
	snap := RunSnapshot{
		ID:        r.ID,
		Title:     r.Title,
		Source:    r.Source,
		Status:    r.Status,
		Progress:  RunProgress{Done: r.done, Total: len(r.units)},
		Units:     units,
		Error:     r.err,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.result != nil {
		sum := r.result.Summarize()
		snap.Summary = &sum
	}
	return snap
}

// RunStore is a thread-safe in-memory run registry with TTL eviction.
type RunStore struct {
	mu   sync.Mutex
	runs map[string]*Run
	ttl  time.Duration
}

func NewRunStore(ttl time.Duration) *RunStore {
	return &RunStore{
		runs: make(map[string]*Run),
		ttl:  ttl,
	}
}

func (s *RunStore) Put(run *Run) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = run
}

func (s *RunStore) Get(id string) *Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs[id]
}

// Len returns the number of stored runs.
func (s *RunStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.runs)
}

// Cleanup removes finished runs idle for longer than the TTL.
func (s *RunStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, run := range s.runs {
		run.mu.Lock()
		expired := now.Sub(run.UpdatedAt) > s.ttl && run.Status != StatusQueued && run.Status != StatusRunning
		run.mu.Unlock()
		if expired {
			delete(s.runs, id)
		}
	}
}
