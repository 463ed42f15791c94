package kb

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/raphaelgruber/markerdocs/internal/models"
)

// RunOptions configures a batch run.
type RunOptions struct {
	// Concurrency is the fixed worker count (default 4).
	Concurrency int

	// OnResult, when set, is called once per completed fetch with the
	// running completion count. Calls are serialized under the result
	// mutex, so reported lines never interleave.
	OnResult func(res models.FetchResult, done, total int)
}

// Run fans Fetch out over markers with a fixed-size worker pool and
// returns all results in completion order.
//
// Invocations are independent: one marker's failure never cancels or
// blocks another's. There is no per-fetch timeout and no retry; a
// marker that failed stays absent-or-partial on disk and is picked up
// again by the next run's Partition. The one exception to isolation is
// a Fatal result (permanent credential or billing failure), after
// which workers stop picking up new markers; undispatched markers
// produce no result and remain pending.
//
// Run returns only after every dispatched fetch has finished.
func Run(ctx context.Context, fetcher *Fetcher, markers []models.Marker, opts RunOptions) []models.FetchResult {
	if len(markers) == 0 {
		return nil
	}

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	var (
		stopped atomic.Bool

		mu      sync.Mutex
		results []models.FetchResult
	)

	workChan := make(chan models.Marker, len(markers))
	var wg sync.WaitGroup

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for m := range workChan {
				if stopped.Load() || ctx.Err() != nil {
					continue
				}

				res := fetcher.Fetch(ctx, m)
				if res.Fatal {
					stopped.Store(true)
				}

				// Appending and reporting share one critical section so
				// the completion count seen by OnResult is monotonic.
				mu.Lock()
				results = append(results, res)
				if opts.OnResult != nil {
					opts.OnResult(res, len(results), len(markers))
				}
				mu.Unlock()
			}
		}()
	}

	for _, m := range markers {
		workChan <- m
	}
	close(workChan)

	wg.Wait()

	return results
}

// Summary aggregates a result set for reporting.
type Summary struct {
	Succeeded int
	Failed    int
	Fatal     bool
}

// Summarize counts successes and failures in results.
func Summarize(results []models.FetchResult) Summary {
	var s Summary
	for _, r := range results {
		if r.Success {
			s.Succeeded++
		} else {
			s.Failed++
		}
		if r.Fatal {
			s.Fatal = true
		}
	}
	return s
}
