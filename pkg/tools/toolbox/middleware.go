package toolbox

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// Invoker runs a tool with raw JSON arguments and returns its result.
type Invoker interface {
	Invoke(ctx context.Context, t Tool, args json.RawMessage) (any, error)
}

// InvokerFunc adapts a plain function to the Invoker interface.
type InvokerFunc func(ctx context.Context, t Tool, args json.RawMessage) (any, error)

// Invoke calls the underlying function.
func (f InvokerFunc) Invoke(ctx context.Context, t Tool, args json.RawMessage) (any, error) {
	return f(ctx, t, args)
}

// Middleware wraps an Invoker, returning a new Invoker with added behaviour.
type Middleware func(next Invoker) Invoker

func chain(inv Invoker, mw []Middleware) Invoker {
	for i := len(mw) - 1; i >= 0; i-- {
		inv = mw[i](inv)
	}
	return inv
}

// --- Timeout middleware ---

// Timeout returns a Middleware that bounds each invocation with a deadline.
func Timeout(d time.Duration) Middleware {
	return func(next Invoker) Invoker {
		return InvokerFunc(func(ctx context.Context, t Tool, args json.RawMessage) (any, error) {
			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()

			return next.Invoke(ctx, t, args)
		})
	}
}

// --- Recovery middleware ---

// Recovery returns a Middleware that catches handler panics and converts them
// to errors wrapping ErrPanic.
func Recovery() Middleware {
	return func(next Invoker) Invoker {
		return InvokerFunc(func(ctx context.Context, t Tool, args json.RawMessage) (v any, err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("%w: %v", ErrPanic, r)
				}
			}()

			return next.Invoke(ctx, t, args)
		})
	}
}

// --- Logger middleware ---

// Logger returns a Middleware that logs invocation start, duration, and error.
func Logger(log *slog.Logger) Middleware {
	return func(next Invoker) Invoker {
		return InvokerFunc(func(ctx context.Context, t Tool, args json.RawMessage) (any, error) {
			log.DebugContext(ctx, "tool invoked", "tool", t.Name, "async", t.Async)

			start := time.Now()

			v, err := next.Invoke(ctx, t, args)

			duration := time.Since(start)

			if err != nil {
				log.ErrorContext(ctx, "tool finished with error",
					"tool", t.Name,
					"duration", duration,
					"error", err,
				)
			} else {
				log.InfoContext(ctx, "tool finished",
					"tool", t.Name,
					"duration", duration,
				)
			}

			return v, err
		})
	}
}
