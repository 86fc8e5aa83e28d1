// Package report collects work item results and presents them.
package report

import (
	"context"
	"errors"
	"sync"

	"github.com/sawolford/onsub/internal/core/domain"
)

// Aggregator drains phase futures into an ordered result list.
// It implements scheduler.Sink.
type Aggregator struct {
	// Invert swaps success and failure.
	Invert bool
	// Discard forces every exit code to zero after inversion.
	Discard bool

	mu      sync.Mutex
	results []domain.Result
}

// NewAggregator creates an Aggregator.
func NewAggregator(invert, discard bool) *Aggregator {
	return &Aggregator{Invert: invert, Discard: discard}
}

type outcome struct {
	result domain.Result
	err    error
}

// Drain waits for every future and appends the results in completion order.
// Cancelled work items are dropped. Drain returns only after every future has
// resolved, even when ctx is cancelled, so that no work is left behind.
func (a *Aggregator) Drain(_ context.Context, _ domain.Phase, futures []domain.Future) error {
	done := make(chan outcome, len(futures))
	for _, f := range futures {
		go func() {
			<-f.Done()
			r, err := f.Result()
			done <- outcome{result: r, err: err}
		}()
	}

	var errs []error
	for range futures {
		o := <-done
		if errors.Is(o.err, domain.ErrCancelled) || o.result.Cancelled {
			continue
		}
		if o.err != nil {
			errs = append(errs, o.err)
			continue
		}
		a.add(o.result)
	}
	return errors.Join(errs...)
}

func (a *Aggregator) add(r domain.Result) {
	if a.Invert {
		if r.ExitCode == 0 {
			r.ExitCode = 1
		} else {
			r.ExitCode = 0
		}
	}
	if a.Discard {
		r.ExitCode = 0
	}

	a.mu.Lock()
	a.results = append(a.results, r)
	a.mu.Unlock()
}

// Results returns the collected results.
func (a *Aggregator) Results() []domain.Result {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]domain.Result(nil), a.results...)
}

// Failures returns the number of failed results.
func (a *Aggregator) Failures() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, r := range a.results {
		if r.Failed() {
			n++
		}
	}
	return n
}
