package async

import (
	"context"
	"fmt"
	"time"
)

// Future holds the result of an asynchronous computation.
type Future[T any] struct {
	value T
	err   error
	done  chan struct{}
}

// Async runs fn(ctx, param) in its own goroutine. A context that is already
// cancelled completes the future immediately without calling fn. A panic in
// fn is converted into an error.
func Async[P, T any](ctx context.Context, param P, fn func(context.Context, P) (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}

	go func() {
		defer close(f.done)
		defer func() {
			if p := recover(); p != nil {
				f.err = fmt.Errorf("async: panic: %v", p)
			}
		}()

		if err := ctx.Err(); err != nil {
			f.err = err
			return
		}

		f.value, f.err = fn(ctx, param)
	}()

	return f
}

// Await blocks until the computation completes.
func (f *Future[T]) Await() (T, error) {
	<-f.done
	return f.value, f.err
}

// AwaitWithTimeout waits at most timeout. On expiry it returns ErrTimeout;
// the computation keeps running and its result is discarded.
func (f *Future[T]) AwaitWithTimeout(timeout time.Duration) (T, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-f.done:
		return f.value, f.err
	case <-timer.C:
		var zero T
		return zero, ErrTimeout
	}
}

// AwaitContext waits until the computation completes or ctx is done,
// whichever happens first. On ctx expiry it returns ctx.Err().
func (f *Future[T]) AwaitContext(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		// Prefer a result that raced with cancellation.
		select {
		case <-f.done:
			return f.value, f.err
		default:
		}
		var zero T
		return zero, ctx.Err()
	}
}

// IsComplete reports whether the computation has finished without blocking.
func (f *Future[T]) IsComplete() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// WaitAll waits for every future and returns their values in order.
// The first error in order is returned alongside the collected values.
func WaitAll[T any](futures ...*Future[T]) ([]T, error) {
	values := make([]T, len(futures))
	var firstErr error
	for i, f := range futures {
		v, err := f.Await()
		values[i] = v
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return values, firstErr
}

// WaitAny returns the index and result of the first future to complete.
func WaitAny[T any](futures ...*Future[T]) (int, T, error) {
	var zero T
	if len(futures) == 0 {
		return -1, zero, ErrNoFutures
	}

	type result struct {
		index int
		value T
		err   error
	}
	// Buffered so losing goroutines never block.
	done := make(chan result, len(futures))
	for i, f := range futures {
		go func() {
			v, err := f.Await()
			done <- result{index: i, value: v, err: err}
		}()
	}

	res := <-done
	return res.index, res.value, res.err
}
