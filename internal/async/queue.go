package async

import "context"

// callback pairs a pending future with its continuation.
type callback interface {
	resolved() bool
	invoke(ctx context.Context) error
}

type boundCallback[T any] struct {
	fut *Future[T]
	fn  func(ctx context.Context, val T, err error) error
}

func (c *boundCallback[T]) resolved() bool { return c.fut.Resolved() }

func (c *boundCallback[T]) invoke(ctx context.Context) error {
	val, err := c.fut.Wait(ctx)
	return c.fn(ctx, val, err)
}

// Queue is a per-connection FIFO of query continuations. It is owned by the
// connection's goroutine and is not safe for concurrent use; that goroutine
// is the only one that enqueues and drains.
type Queue struct {
	pending []callback
}

// Enqueue registers fn to run once fut resolves. Continuations for one queue
// always run in registration order.
func Enqueue[T any](q *Queue, fut *Future[T], fn func(ctx context.Context, val T, err error) error) {
	q.pending = append(q.pending, &boundCallback[T]{fut: fut, fn: fn})
}

// Pending reports whether any continuation is still queued.
func (q *Queue) Pending() bool {
	return len(q.pending) > 0
}

// ProcessReady invokes continuations whose futures have resolved, in FIFO
// order, stopping at the first unresolved future so ordering is preserved.
// The first continuation error aborts the drain and is returned.
func (q *Queue) ProcessReady(ctx context.Context) error {
	for len(q.pending) > 0 && q.pending[0].resolved() {
		head := q.pending[0]
		q.pending = q.pending[1:]
		if err := head.invoke(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Drain blocks until every queued continuation has run, in FIFO order.
// Connection loops call this between packet reads: while a query is pending
// the connection accepts no further client data that could depend on it.
func (q *Queue) Drain(ctx context.Context) error {
	for len(q.pending) > 0 {
		head := q.pending[0]
		q.pending = q.pending[1:]
		if err := head.invoke(ctx); err != nil {
			return err
		}
	}
	return nil
}
