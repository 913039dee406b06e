package testutil

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"consents/internal/sentinel"
)

// ConcurrentResult buckets the outcomes of a RunConcurrent call.
type ConcurrentResult struct {
	Successes  int32
	Errors     int32
	Rejections int32
	NotFounds  int32
}

func (r *ConcurrentResult) Total() int32 {
	return r.Successes + r.Errors + r.Rejections + r.NotFounds
}

// fanOut starts n goroutines that block on a shared gate, releases them
// together and waits for all of them. Releasing at once keeps the calls
// overlapping on a single key, which is what the atomicity tests need.
func fanOut(n int, fn func(idx int) error, record func(err error)) {
	gate := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(n)
	for i := range n {
		go func() {
			defer wg.Done()
			<-gate
			record(fn(i))
		}()
	}
	close(gate)
	wg.Wait()
}

// RunConcurrent runs fn on n goroutines. Errors matching
// sentinel.ErrRateLimited count as rejections and sentinel.ErrNotFound as
// not-founds; anything else is an error.
func RunConcurrent(n int, fn func(idx int) error) *ConcurrentResult {
	var ok, failed, rejected, missing atomic.Int32
	fanOut(n, fn, func(err error) {
		switch {
		case err == nil:
			ok.Add(1)
		case errors.Is(err, sentinel.ErrRateLimited):
			rejected.Add(1)
		case errors.Is(err, sentinel.ErrNotFound):
			missing.Add(1)
		default:
			failed.Add(1)
		}
	})
	return &ConcurrentResult{
		Successes:  ok.Load(),
		Errors:     failed.Load(),
		Rejections: rejected.Load(),
		NotFounds:  missing.Load(),
	}
}

func RunConcurrentCtx(ctx context.Context, n int, fn func(ctx context.Context, idx int) error) *ConcurrentResult {
	return RunConcurrent(n, func(idx int) error { return fn(ctx, idx) })
}

// RunConcurrentCollect runs fn on n goroutines and returns every error for
// callers that need more than the RunConcurrent buckets.
func RunConcurrentCollect(n int, fn func(idx int) error) (int32, []error) {
	var (
		ok   atomic.Int32
		mu   sync.Mutex
		errs []error
	)
	fanOut(n, fn, func(err error) {
		if err == nil {
			ok.Add(1)
			return
		}
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	})
	return ok.Load(), errs
}
