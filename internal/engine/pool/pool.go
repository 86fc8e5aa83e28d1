// Package pool runs work items on a fixed number of workers fed by an unbounded queue.
package pool

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/sawolford/onsub/internal/core/domain"
	"golang.org/x/sync/errgroup"
)

// Work is a unit of execution producing exactly one result.
type Work func(ctx context.Context) domain.Result

const (
	stateQueued int32 = iota
	stateRunning
	stateCancelled
)

type future struct {
	work   Work
	state  atomic.Int32
	once   sync.Once
	done   chan struct{}
	result domain.Result
	err    error
}

func newFuture(work Work) *future {
	return &future{work: work, done: make(chan struct{})}
}

func (f *future) resolve(r domain.Result, err error) {
	f.once.Do(func() {
		f.result = r
		f.err = err
		close(f.done)
	})
}

func (f *future) Done() <-chan struct{} {
	return f.done
}

func (f *future) Cancel() bool {
	if f.state.CompareAndSwap(stateQueued, stateCancelled) {
		f.resolve(domain.Result{Cancelled: true}, domain.ErrCancelled)
		return true
	}
	return false
}

func (f *future) Result() (domain.Result, error) {
	<-f.done
	return f.result, f.err
}

// Pool executes submitted work on a fixed set of goroutines.
// Cancelling the context passed to New drops every queued item;
// items already running finish normally.
type Pool struct {
	ctx     context.Context
	workers int

	mu      sync.Mutex
	queue   []*future
	closed  bool
	wake    chan struct{}
	closing chan struct{}

	g *errgroup.Group
}

// New starts a pool with the given number of workers. A non-positive
// count uses the number of CPUs.
func New(ctx context.Context, workers int) *Pool {
	if workers < 1 {
		workers = runtime.NumCPU()
	}

	p := &Pool{
		ctx:     ctx,
		workers: workers,
		wake:    make(chan struct{}, 1),
		closing: make(chan struct{}),
		g:       &errgroup.Group{},
	}

	for range workers {
		p.g.Go(p.worker)
	}

	go func() {
		select {
		case <-ctx.Done():
			p.cancelQueued()
		case <-p.closing:
		}
	}()

	return p
}

// Workers returns the number of worker goroutines.
func (p *Pool) Workers() int {
	return p.workers
}

// Submit queues work and returns its future. Submit never blocks.
// Work submitted after cancellation resolves as cancelled; work submitted
// after Close resolves with domain.ErrPoolClosed and never runs.
func (p *Pool) Submit(work Work) domain.Future {
	f := newFuture(work)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		f.state.Store(stateCancelled)
		f.resolve(domain.Result{Cancelled: true}, domain.ErrPoolClosed)
		return f
	}
	if p.ctx.Err() != nil {
		p.mu.Unlock()
		f.Cancel()
		return f
	}
	p.queue = append(p.queue, f)
	p.mu.Unlock()

	p.signal()
	return f
}

// Pending returns the number of queued items not yet picked up by a worker.
func (p *Pool) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// Close stops accepting work and waits until the queue is drained
// and every running item has finished.
func (p *Pool) Close() error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.closing)
	}
	p.mu.Unlock()

	return p.g.Wait()
}

func (p *Pool) signal() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *Pool) cancelQueued() {
	p.mu.Lock()
	queued := p.queue
	p.queue = nil
	p.mu.Unlock()

	for _, f := range queued {
		f.Cancel()
	}
}

func (p *Pool) next() (*future, bool) {
	for {
		if p.ctx.Err() != nil {
			p.cancelQueued()
			return nil, false
		}

		p.mu.Lock()
		if len(p.queue) > 0 {
			f := p.queue[0]
			p.queue[0] = nil
			p.queue = p.queue[1:]
			more := len(p.queue) > 0
			p.mu.Unlock()

			if more {
				p.signal()
			}
			return f, true
		}
		closed := p.closed
		p.mu.Unlock()

		if closed {
			return nil, false
		}

		select {
		case <-p.wake:
		case <-p.closing:
		case <-p.ctx.Done():
		}
	}
}

func (p *Pool) worker() error {
	for {
		f, ok := p.next()
		if !ok {
			return nil
		}
		if !f.state.CompareAndSwap(stateQueued, stateRunning) {
			continue
		}
		f.resolve(p.execute(f.work), nil)
	}
}

// execute runs work detached from cancellation so a started item always completes.
func (p *Pool) execute(work Work) (res domain.Result) {
	defer func() {
		if r := recover(); r != nil {
			res = domain.Result{ExitCode: 1, Output: fmt.Sprintf("panic: %v", r)}
		}
	}()
	return work(context.WithoutCancel(p.ctx))
}
