package domain

// Future is the uniform handle for a submitted work item, whether it runs
// on the worker pool or was resolved synchronously at submission.
type Future interface {
	// Done is closed once the result is available.
	Done() <-chan struct{}
	// Cancel drops the work item if it has not started yet and reports whether it did.
	Cancel() bool
	// Result blocks until the work item resolves.
	// A dropped work item returns ErrCancelled.
	Result() (Result, error)
}

type resolvedFuture struct {
	result Result
	done   chan struct{}
}

// Resolved wraps an already computed result in a Future.
func Resolved(r Result) Future {
	done := make(chan struct{})
	close(done)
	return &resolvedFuture{result: r, done: done}
}

func (f *resolvedFuture) Done() <-chan struct{} { return f.done }

func (f *resolvedFuture) Cancel() bool { return false }

func (f *resolvedFuture) Result() (Result, error) { return f.result, nil }
