package toolbox

import (
	"context"
	"fmt"
)

// Future is the awaitable result of one handler invocation. Synchronous
// handlers produce futures that are already resolved.
type Future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

// Resolved returns a completed Future holding v and err.
func Resolved[T any](v T, err error) *Future[T] {
	f := &Future[T]{done: make(chan struct{}), val: v, err: err}
	close(f.done)

	return f
}

// Go runs fn in its own goroutine and returns a Future completed with its
// result. A panic inside fn completes the Future with an error wrapping
// ErrPanic.
func Go[T any](ctx context.Context, fn func(context.Context) (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}

	go func() {
		defer close(f.done)
		defer func() {
			if r := recover(); r != nil {
				f.err = fmt.Errorf("%w: %v", ErrPanic, r)
			}
		}()

		f.val, f.err = fn(ctx)
	}()

	return f
}

// Done is closed once the Future completes.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the Future completes or ctx is done, whichever happens
// first.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func erase[T any](f *Future[T]) *Future[any] {
	if f == nil {
		return Resolved[any](nil, ErrNilFuture)
	}

	select {
	case <-f.done:
		return Resolved[any](f.val, f.err)
	default:
	}

	out := &Future[any]{done: make(chan struct{})}
	go func() {
		<-f.done
		out.val, out.err = f.val, f.err
		close(out.done)
	}()

	return out
}
