package async

import "context"

// ExecFuture is a Future for functions that only return an error.
type ExecFuture struct {
	f *Future[struct{}]
}

// Exec runs fn(ctx, param) asynchronously.
func Exec[P any](ctx context.Context, param P, fn func(context.Context, P) error) *ExecFuture {
	return &ExecFuture{f: Async(ctx, param, func(ctx context.Context, p P) (struct{}, error) {
		return struct{}{}, fn(ctx, p)
	})}
}

// Await waits for completion and returns the function's error.
func (e *ExecFuture) Await() error {
	_, err := e.f.Await()
	return err
}

// AwaitContext waits for completion or ctx expiry.
func (e *ExecFuture) AwaitContext(ctx context.Context) error {
	_, err := e.f.AwaitContext(ctx)
	return err
}

// IsComplete reports whether the function has returned.
func (e *ExecFuture) IsComplete() bool {
	return e.f.IsComplete()
}

// ExecAll waits for all futures and returns the first error in order.
func ExecAll(futures ...*ExecFuture) error {
	var firstErr error
	for _, f := range futures {
		if err := f.Await(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// ExecAny returns the index and error of the first future to complete.
func ExecAny(futures ...*ExecFuture) (int, error) {
	inner := make([]*Future[struct{}], len(futures))
	for i, f := range futures {
		inner[i] = f.f
	}
	idx, _, err := WaitAny(inner...)
	return idx, err
}
