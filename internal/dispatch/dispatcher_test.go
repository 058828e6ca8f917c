package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rewind-gg/rewind/internal/metrics"
)

// fakeRunner records invocations and fails stages a scripted number of
// times.
type fakeRunner struct {
	mu       sync.Mutex
	calls    []Invocation
	ctxErrs  []error
	failures map[Stage]int
	failWith error
}

func (f *fakeRunner) Run(ctx context.Context, inv Invocation) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, inv)
	f.ctxErrs = append(f.ctxErrs, ctx.Err())

	if f.failures[inv.Stage] > 0 {
		f.failures[inv.Stage]--

		if f.failWith != nil {
			return f.failWith
		}

		return &StageError{Stage: inv.Stage, ExitStatus: 1, Diagnostic: "scripted failure"}
	}

	return nil
}

func (f *fakeRunner) invocations() []Invocation {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]Invocation(nil), f.calls...)
}

func testConfig() *Config {
	return &Config{
		IngestBin:        "rewind-ingest",
		AggregateBin:     "rewind-aggregate",
		IngestTimeout:    time.Minute,
		AggregateTimeout: time.Minute,
	}
}

func newTestDispatcher(t *testing.T, cfg *Config, runner Runner) *Dispatcher {
	t.Helper()

	d, err := NewDispatcher(cfg, runner, metrics.NewManager())
	if err != nil {
		t.Fatalf("NewDispatcher: %v", err)
	}

	return d
}

func equalArgs(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}

	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}

	return true
}

func TestEnsureComputedRunsStagesInOrder(t *testing.T) {
	runner := &fakeRunner{}
	d := newTestDispatcher(t, testConfig(), runner)

	err := d.EnsureComputed(context.Background(), "P-123", "2024", Hints{Handle: "riq#8008", Region: "na"})
	if err != nil {
		t.Fatalf("EnsureComputed: %v", err)
	}

	calls := runner.invocations()
	if len(calls) != 2 {
		t.Fatalf("got %d invocations, want 2", len(calls))
	}

	if calls[0].Stage != StageIngest || calls[1].Stage != StageAggregate {
		t.Errorf("stage order = %s, %s", calls[0].Stage, calls[1].Stage)
	}

	if !equalArgs(calls[0].Args, []string{"riq#8008", "na", "2024"}) {
		t.Errorf("ingest args = %v", calls[0].Args)
	}

	if !equalArgs(calls[1].Args, []string{"P-123", "2024"}) {
		t.Errorf("aggregate args = %v", calls[1].Args)
	}

	if calls[0].Path != "rewind-ingest" || calls[1].Path != "rewind-aggregate" {
		t.Errorf("paths = %q, %q", calls[0].Path, calls[1].Path)
	}

	if calls[0].ID == "" || calls[0].ID == calls[1].ID {
		t.Errorf("invocation ids not distinct: %q, %q", calls[0].ID, calls[1].ID)
	}
}

func TestEnsureComputedPassesLimit(t *testing.T) {
	runner := &fakeRunner{}
	d := newTestDispatcher(t, testConfig(), runner)

	err := d.EnsureComputed(context.Background(), "P-123", "2024", Hints{Handle: "riq#8008", Region: "na", Limit: 25})
	if err != nil {
		t.Fatalf("EnsureComputed: %v", err)
	}

	calls := runner.invocations()

	if !equalArgs(calls[0].Args, []string{"riq#8008", "na", "2024", "25"}) {
		t.Errorf("ingest args = %v", calls[0].Args)
	}

	if !equalArgs(calls[1].Args, []string{"P-123", "2024", "25"}) {
		t.Errorf("aggregate args = %v", calls[1].Args)
	}
}

func TestEnsureComputedStopsAfterIngestFailure(t *testing.T) {
	runner := &fakeRunner{failures: map[Stage]int{StageIngest: 1}}
	d := newTestDispatcher(t, testConfig(), runner)

	err := d.EnsureComputed(context.Background(), "P-123", "2024", Hints{Handle: "riq#8008", Region: "na"})

	var stageErr *StageError
	if !errors.As(err, &stageErr) || stageErr.Stage != StageIngest {
		t.Fatalf("EnsureComputed = %v, want ingest StageError", err)
	}

	if calls := runner.invocations(); len(calls) != 1 {
		t.Errorf("got %d invocations, want 1: aggregation must not run after failed ingestion", len(calls))
	}
}

func TestEnsureComputedSurfacesAggregateFailure(t *testing.T) {
	runner := &fakeRunner{failures: map[Stage]int{StageAggregate: 1}}
	d := newTestDispatcher(t, testConfig(), runner)

	err := d.EnsureComputed(context.Background(), "P-123", "2024", Hints{Handle: "riq#8008", Region: "na"})

	var stageErr *StageError
	if !errors.As(err, &stageErr) || stageErr.Stage != StageAggregate {
		t.Fatalf("EnsureComputed = %v, want aggregate StageError", err)
	}

	if calls := runner.invocations(); len(calls) != 2 {
		t.Errorf("got %d invocations, want 2", len(calls))
	}
}

func TestEnsureComputedRetriesStages(t *testing.T) {
	cfg := testConfig()
	cfg.Retries = 2

	runner := &fakeRunner{failures: map[Stage]int{StageIngest: 2}}
	d := newTestDispatcher(t, cfg, runner)

	err := d.EnsureComputed(context.Background(), "P-123", "2024", Hints{Handle: "riq#8008", Region: "na"})
	if err != nil {
		t.Fatalf("EnsureComputed = %v, want success after retries", err)
	}

	calls := runner.invocations()
	if len(calls) != 4 {
		t.Fatalf("got %d invocations, want 3 ingest attempts + 1 aggregate", len(calls))
	}

	// Retries reuse the invocation ID so log lines group.
	if calls[0].ID != calls[1].ID || calls[1].ID != calls[2].ID {
		t.Errorf("retry ids differ: %q, %q, %q", calls[0].ID, calls[1].ID, calls[2].ID)
	}
}

func TestEnsureComputedExhaustsRetries(t *testing.T) {
	cfg := testConfig()
	cfg.Retries = 1

	runner := &fakeRunner{failures: map[Stage]int{StageIngest: 5}}
	d := newTestDispatcher(t, cfg, runner)

	err := d.EnsureComputed(context.Background(), "P-123", "2024", Hints{Handle: "riq#8008", Region: "na"})
	if err == nil {
		t.Fatal("EnsureComputed = nil, want error after exhausted retries")
	}

	if calls := runner.invocations(); len(calls) != 2 {
		t.Errorf("got %d invocations, want 2 ingest attempts and nothing else", len(calls))
	}
}

// TestEnsureComputedDetachesFromCaller verifies that an abandoned request
// does not kill a running stage: the stage context must stay live even when
// the caller's context is already canceled.
func TestEnsureComputedDetachesFromCaller(t *testing.T) {
	runner := &fakeRunner{}
	d := newTestDispatcher(t, testConfig(), runner)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := d.EnsureComputed(ctx, "P-123", "2024", Hints{Handle: "riq#8008", Region: "na"}); err != nil {
		t.Fatalf("EnsureComputed: %v", err)
	}

	runner.mu.Lock()
	defer runner.mu.Unlock()

	for i, ctxErr := range runner.ctxErrs {
		if ctxErr != nil {
			t.Errorf("invocation %d saw a dead context: %v", i, ctxErr)
		}
	}
}

func TestNewDispatcherValidatesConfig(t *testing.T) {
	cfg := testConfig()
	cfg.IngestBin = ""

	if _, err := NewDispatcher(cfg, &fakeRunner{}, metrics.NewManager()); !errors.Is(err, ErrStageBinaryEmpty) {
		t.Errorf("NewDispatcher = %v, want ErrStageBinaryEmpty", err)
	}
}
