// Package async implements the future/promise and ordered-callback-queue
// plumbing that keeps the protocol state machines non-blocking while
// database lookups are in flight.
package async

import "context"

// Future holds the eventual result of a query issued in the background.
type Future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

// Query runs fn in a background goroutine and returns a Future resolved with
// its result. Cancellation is not supported: once issued, the query runs to
// completion or failure.
func Query[T any](ctx context.Context, fn func(context.Context) (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		f.val, f.err = fn(ctx)
	}()
	return f
}

// Resolved reports whether the result is available.
func (f *Future[T]) Resolved() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the result is available or ctx is cancelled.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
