package kb

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/raphaelgruber/markerdocs/internal/llm"
	"github.com/raphaelgruber/markerdocs/internal/models"
)

// trackingGenerator counts in-flight streams and fails for markers
// whose English name appears in failFor.
type trackingGenerator struct {
	calls       atomic.Int32
	inflight    atomic.Int32
	maxInflight atomic.Int32
	failFor     string // substring of the user prompt that triggers failure
	failErr     error
	delay       time.Duration
}

func (g *trackingGenerator) GenerateStream(ctx context.Context, systemPrompt, userPrompt string, onToken func(string) error) error {
	g.calls.Add(1)
	cur := g.inflight.Add(1)
	defer g.inflight.Add(-1)

	// Track the high-water mark of concurrent streams.
	for {
		max := g.maxInflight.Load()
		if cur <= max || g.maxInflight.CompareAndSwap(max, cur) {
			break
		}
	}

	if g.delay > 0 {
		time.Sleep(g.delay)
	}

	if g.failFor != "" && strings.Contains(userPrompt, g.failFor) {
		return g.failErr
	}
	return onToken("doc body")
}

func testMarkers(n int) []models.Marker {
	markers := make([]models.Marker, 0, n)
	for i := 1; i <= n; i++ {
		markers = append(markers, models.Marker{
			Index:    i,
			NameEN:   fmt.Sprintf("Marker-%d", i),
			NameCN:   fmt.Sprintf("指标%d", i),
			Category: "Test",
		})
	}
	return markers
}

func TestRunBoundsConcurrency(t *testing.T) {
	gen := &trackingGenerator{delay: 10 * time.Millisecond}
	f := NewFetcher(gen, t.TempDir(), nil, nil)

	results := Run(context.Background(), f, testMarkers(10), RunOptions{Concurrency: 4})

	if len(results) != 10 {
		t.Fatalf("got %d results, want 10", len(results))
	}
	if max := gen.maxInflight.Load(); max > 4 {
		t.Errorf("observed %d concurrent fetches, want at most 4", max)
	}
}

func TestRunIsolatesFailures(t *testing.T) {
	gen := &trackingGenerator{
		failFor: "Marker-3",
		failErr: fmt.Errorf("connection reset"),
	}
	f := NewFetcher(gen, t.TempDir(), nil, nil)

	results := Run(context.Background(), f, testMarkers(10), RunOptions{Concurrency: 4})

	if len(results) != 10 {
		t.Fatalf("got %d results, want 10 (a failure must not cancel siblings)", len(results))
	}

	summary := Summarize(results)
	if summary.Failed != 1 || summary.Succeeded != 9 {
		t.Errorf("summary = %+v, want 9 succeeded / 1 failed", summary)
	}
	if summary.Fatal {
		t.Error("non-fatal failure must not flag the run as fatal")
	}
}

func TestRunReportsCompletionOrder(t *testing.T) {
	gen := &trackingGenerator{}
	f := NewFetcher(gen, t.TempDir(), nil, nil)

	var mu sync.Mutex
	var dones []int
	opts := RunOptions{
		Concurrency: 3,
		OnResult: func(res models.FetchResult, done, total int) {
			mu.Lock()
			defer mu.Unlock()
			if total != 10 {
				t.Errorf("total = %d, want 10", total)
			}
			dones = append(dones, done)
		},
	}

	Run(context.Background(), f, testMarkers(10), opts)

	if len(dones) != 10 {
		t.Fatalf("OnResult called %d times, want 10", len(dones))
	}
	// done counts are strictly increasing because OnResult runs under
	// the result mutex.
	for i, d := range dones {
		if d != i+1 {
			t.Fatalf("done sequence %v not strictly increasing", dones)
		}
	}
}

func TestRunContinuesThroughRateLimit(t *testing.T) {
	// Throttling is transient and must stay isolated to the marker
	// that hit it; every sibling still gets dispatched and completes.
	gen := &trackingGenerator{
		failFor: "Marker-1'",
		failErr: fmt.Errorf("generate: %w", fmt.Errorf("API returned 429: rate limit reached, retry after 1s")),
	}
	f := NewFetcher(gen, t.TempDir(), nil, nil)

	results := Run(context.Background(), f, testMarkers(10), RunOptions{Concurrency: 1})

	if len(results) != 10 {
		t.Fatalf("got %d results, want 10 (rate limit must not halt dispatch)", len(results))
	}
	if calls := gen.calls.Load(); calls != 10 {
		t.Errorf("generator saw %d calls, want 10", calls)
	}
	summary := Summarize(results)
	if summary.Failed != 1 || summary.Succeeded != 9 {
		t.Errorf("summary = %+v, want 9 succeeded / 1 failed", summary)
	}
	if summary.Fatal {
		t.Error("rate limiting must not flag the run as fatal")
	}
}

func TestRunStopsDispatchAfterFatalResult(t *testing.T) {
	gen := &trackingGenerator{
		failFor: "Marker-1'", // matches only marker 1 (prompt quotes the name)
		failErr: fmt.Errorf("%w: quota exceeded", llm.ErrFatalAPI),
	}
	f := NewFetcher(gen, t.TempDir(), nil, nil)

	// Single worker makes dispatch order deterministic.
	results := Run(context.Background(), f, testMarkers(10), RunOptions{Concurrency: 1})

	if len(results) != 1 {
		t.Fatalf("got %d results, want 1 (fatal result must halt dispatch)", len(results))
	}
	summary := Summarize(results)
	if !summary.Fatal {
		t.Error("summary must flag the fatal stop")
	}
}

func TestRerunPerformsNoNewCalls(t *testing.T) {
	root := t.TempDir()
	gen := &trackingGenerator{}
	f := NewFetcher(gen, root, nil, nil)
	markers := testMarkers(6)

	pending, _ := Partition(markers, root)
	Run(context.Background(), f, pending, RunOptions{Concurrency: 3})
	first := gen.calls.Load()
	if first != 6 {
		t.Fatalf("first run made %d calls, want 6", first)
	}

	// With every output in place, the second run must not touch the API.
	pending, skipped := Partition(markers, root)
	if len(pending) != 0 || len(skipped) != 6 {
		t.Fatalf("second partition = %d pending / %d skipped, want 0/6", len(pending), len(skipped))
	}
	Run(context.Background(), f, pending, RunOptions{Concurrency: 3})
	if gen.calls.Load() != first {
		t.Errorf("second run made %d extra calls", gen.calls.Load()-first)
	}
}

func TestRunEmptyInput(t *testing.T) {
	f := NewFetcher(&trackingGenerator{}, t.TempDir(), nil, nil)
	if results := Run(context.Background(), f, nil, RunOptions{Concurrency: 4}); len(results) != 0 {
		t.Errorf("expected no results for empty input, got %d", len(results))
	}
}
