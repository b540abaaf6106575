package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dgallion1/docadapt/internal/adapt"
	"github.com/dgallion1/docadapt/internal/doctree"
	"github.com/dgallion1/docadapt/internal/selection"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func unitsN(n int) selection.Set {
	set := make(selection.Set, n)
	for i := range set {
		title := fmt.Sprintf("Chapter %d", i+1)
		set[i] = doctree.Unit{Path: title, Title: title, Body: "body of " + title}
	}
	return set
}

func TestBatch_PartialFailuresKeepSelectionOrder(t *testing.T) {
	const n = 10
	failing := map[string]bool{"Chapter 2": true, "Chapter 5": true, "Chapter 9": true}

	fn := func(_ context.Context, title, body string) (string, error) {
		if failing[title] {
			return "", errors.New("provider status 500")
		}
		return strings.ToUpper(body), nil
	}

	result := NewBatch(fn, BatchConfig{}, testLogger()).Run(context.Background(), unitsN(n))

	entries := result.Entries()
	if len(entries) != n {
		t.Fatalf("expected %d entries, got %d", n, len(entries))
	}
	failed := 0
	for i, e := range entries {
		want := fmt.Sprintf("Chapter %d", i+1)
		if e.Path != want {
			t.Errorf("entry %d: expected path %q, got %q", i, want, e.Path)
		}
		if e.Outcome.Failed {
			failed++
			if !failing[e.Path] {
				t.Errorf("entry %d unexpectedly failed: %s", i, e.Outcome.Reason)
			}
			if e.Outcome.Reason != "provider status 500" {
				t.Errorf("entry %d: unexpected reason %q", i, e.Outcome.Reason)
			}
			continue
		}
		if e.Outcome.Text != strings.ToUpper("body of "+want) {
			t.Errorf("entry %d: unexpected text %q", i, e.Outcome.Text)
		}
	}
	if failed != len(failing) {
		t.Errorf("expected %d failures, got %d", len(failing), failed)
	}

	sum := result.Summarize()
	if sum.Succeeded != n-len(failing) || sum.Total != n || len(sum.Failures) != len(failing) {
		t.Errorf("unexpected summary: %+v", sum)
	}
}

func TestBatch_EmptyBodySkipsProvider(t *testing.T) {
	calls := 0
	fn := func(_ context.Context, title, body string) (string, error) {
		calls++
		return "ok", nil
	}
	set := selection.Set{
		{Path: "A", Title: "A", Body: "text"},
		{Path: "B", Title: "B", Body: "   \n"},
	}

	result := NewBatch(fn, BatchConfig{}, testLogger()).Run(context.Background(), set)

	if calls != 1 {
		t.Errorf("expected provider called once, got %d", calls)
	}
	o, ok := result.Get("B")
	if !ok || !o.Failed || o.Reason != ReasonNoContent {
		t.Errorf("expected %q failure, got %+v", ReasonNoContent, o)
	}
}

type mapLoader map[string]string

func (m mapLoader) LoadBody(_ context.Context, u doctree.Unit) (string, error) {
	body, ok := m[u.Ref]
	if !ok {
		return "", errors.New("letter not found")
	}
	return body, nil
}

func TestBatch_LazyBodies(t *testing.T) {
	var got []string
	fn := func(_ context.Context, title, body string) (string, error) {
		got = append(got, body)
		return "adapted " + title, nil
	}
	set, err := selection.Letters([]int{1, 2})
	if err != nil {
		t.Fatal(err)
	}

	result := NewBatch(fn, BatchConfig{}, testLogger(), WithBodyLoader(mapLoader{"1": "first letter"})).
		Run(context.Background(), set)

	if len(got) != 1 || got[0] != "first letter" {
		t.Errorf("expected loaded body passed to adapter, got %v", got)
	}
	o, _ := result.Get("Letter 2")
	if !o.Failed || o.Reason != "letter not found" {
		t.Errorf("expected loader failure recorded, got %+v", o)
	}
}

func TestBatch_CancellationFinishesInFlightUnit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fn := func(callCtx context.Context, title, body string) (string, error) {
		if title == "Chapter 2" {
			cancel()
			if callCtx.Err() != nil {
				return "", callCtx.Err()
			}
		}
		return "done " + title, nil
	}

	result := NewBatch(fn, BatchConfig{}, testLogger()).Run(ctx, unitsN(4))

	entries := result.Entries()
	if len(entries) != 4 {
		t.Fatalf("expected one entry per unit, got %d", len(entries))
	}
	if entries[1].Outcome.Failed || entries[1].Outcome.Text != "done Chapter 2" {
		t.Errorf("expected in-flight unit to complete, got %+v", entries[1].Outcome)
	}
	for _, e := range entries[2:] {
		if !e.Outcome.Failed || e.Outcome.Reason != ReasonCancelled {
			t.Errorf("%s: expected cancelled, got %+v", e.Path, e.Outcome)
		}
	}
}

func TestBatch_RetriesTransientErrors(t *testing.T) {
	attempts := map[string]int{}
	fn := func(_ context.Context, title, body string) (string, error) {
		attempts[title]++
		switch title {
		case "Chapter 1":
			if attempts[title] < 3 {
				return "", &adapt.StatusError{StatusCode: 503}
			}
			return "recovered", nil
		default:
			return "", &adapt.StatusError{StatusCode: 400, Message: "bad request"}
		}
	}

	cfg := BatchConfig{MaxAttempts: 3, RetryDelay: time.Millisecond}
	result := NewBatch(fn, cfg, testLogger()).Run(context.Background(), unitsN(2))

	if o, _ := result.Get("Chapter 1"); o.Failed || o.Text != "recovered" {
		t.Errorf("expected retry to recover, got %+v", o)
	}
	if attempts["Chapter 1"] != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts["Chapter 1"])
	}
	if attempts["Chapter 2"] != 1 {
		t.Errorf("expected permanent error not retried, got %d attempts", attempts["Chapter 2"])
	}
	if o, _ := result.Get("Chapter 2"); !o.Failed || !strings.Contains(o.Reason, "400") {
		t.Errorf("expected status in reason, got %+v", o)
	}
}

func TestBatch_SingleAttemptByDefault(t *testing.T) {
	calls := 0
	fn := func(_ context.Context, title, body string) (string, error) {
		calls++
		return "", &adapt.StatusError{StatusCode: 500}
	}
	NewBatch(fn, BatchConfig{}, testLogger()).Run(context.Background(), unitsN(1))
	if calls != 1 {
		t.Errorf("expected no retry by default, got %d calls", calls)
	}
}

func TestBatch_ProgressEvents(t *testing.T) {
	var mu sync.Mutex
	var events []Progress
	fn := func(_ context.Context, title, body string) (string, error) { return "x", nil }

	NewBatch(fn, BatchConfig{}, testLogger(), WithProgress(func(p Progress) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, p)
	})).Run(context.Background(), unitsN(3))

	if len(events) != 6 {
		t.Fatalf("expected 2 events per unit, got %d", len(events))
	}
	for i, e := range events {
		wantIndex := i/2 + 1
		wantState := UnitInProgress
		if i%2 == 1 {
			wantState = UnitAdapted
		}
		if e.Index != wantIndex || e.Total != 3 || e.State != wantState {
			t.Errorf("event %d: got %+v", i, e)
		}
	}
}

func TestBatch_Pacing(t *testing.T) {
	fn := func(_ context.Context, title, body string) (string, error) { return "x", nil }
	start := time.Now()
	NewBatch(fn, BatchConfig{PacingInterval: 30 * time.Millisecond}, testLogger()).
		Run(context.Background(), unitsN(3))
	if elapsed := time.Since(start); elapsed < 55*time.Millisecond {
		t.Errorf("expected paced calls to take at least 60ms, took %s", elapsed)
	}
}

func TestBatch_TransportTimeoutIsNotCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(300 * time.Millisecond):
		case <-r.Context().Done():
		}
	}))
	defer server.Close()

	provider := adapt.NewHTTPProvider(adapt.HTTPConfig{URL: server.URL, Model: "m", Timeout: 50 * time.Millisecond})
	fn := func(ctx context.Context, title, body string) (string, error) {
		return provider.Complete(ctx, adapt.Request{Prompt: body})
	}

	result := NewBatch(fn, BatchConfig{}, testLogger()).Run(context.Background(), unitsN(2))

	for _, e := range result.Entries() {
		if !e.Outcome.Failed {
			t.Fatalf("%s: expected failure, got %+v", e.Path, e.Outcome)
		}
		if e.Outcome.Reason == ReasonCancelled {
			t.Errorf("%s: transport timeout recorded as cancelled", e.Path)
		}
		if !strings.Contains(e.Outcome.Reason, "provider request") {
			t.Errorf("%s: expected transport error description, got %q", e.Path, e.Outcome.Reason)
		}
	}
}

func TestBatch_PacingCancelsOnlyWhenContextEnds(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()

	var ctxErrAtCancel error
	progress := func(p Progress) {
		if p.State == UnitFailed && p.Outcome.Reason == ReasonCancelled {
			ctxErrAtCancel = ctx.Err()
		}
	}
	fn := func(_ context.Context, title, body string) (string, error) {
		return "ok", nil
	}

	result := NewBatch(fn, BatchConfig{PacingInterval: 200 * time.Millisecond}, testLogger(),
		WithProgress(progress),
	).Run(ctx, unitsN(2))

	entries := result.Entries()
	if entries[0].Outcome.Failed {
		t.Fatalf("expected first unit adapted, got %+v", entries[0].Outcome)
	}
	if entries[1].Outcome.Reason != ReasonCancelled {
		t.Fatalf("expected second unit cancelled, got %+v", entries[1].Outcome)
	}
	if ctxErrAtCancel == nil {
		t.Error("unit recorded as cancelled while the context was still live")
	}
}
