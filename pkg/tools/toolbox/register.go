package toolbox

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/germanamz/mystic/pkg/schema"
)

// ToolOption customises a single registration.
type ToolOption func(*toolConfig)

type toolConfig struct {
	name        string
	description *string
}

// WithName registers the tool under name instead of one derived from the
// function identifier.
func WithName(name string) ToolOption {
	return func(c *toolConfig) { c.name = name }
}

// WithDescription overrides the description read from the function's doc
// comment.
func WithDescription(desc string) ToolOption {
	return func(c *toolConfig) { c.description = &desc }
}

// Register infers the schemas of fn, adds it to tb, and returns fn unchanged so
// it can be used to decorate a declaration:
//
//	var Greet = toolbox.MustRegister(tb, greet)
//
// The exported fields of In are the tool's parameters. Without WithName the
// tool is named after the function in snake_case; anonymous functions need
// WithName. A tool registered under an existing name replaces it.
func Register[In, Out any](tb *ToolBox, fn func(context.Context, In) (Out, error), opts ...ToolOption) (func(context.Context, In) (Out, error), error) {
	h := func(ctx context.Context, args json.RawMessage) *Future[any] {
		in, err := decode[In](args)
		if err != nil {
			return Resolved[any](nil, err)
		}

		out, err := fn(ctx, in)
		if err != nil {
			return Resolved[any](nil, err)
		}

		return Resolved[any](out, nil)
	}

	if err := register[In, Out](tb, fn, h, false, opts); err != nil {
		return nil, err
	}

	return fn, nil
}

// MustRegister is like Register but panics on error.
func MustRegister[In, Out any](tb *ToolBox, fn func(context.Context, In) (Out, error), opts ...ToolOption) func(context.Context, In) (Out, error) {
	fn, err := Register(tb, fn, opts...)
	if err != nil {
		panic(err)
	}

	return fn
}

// RegisterAsync is Register for handlers that complete asynchronously. The
// Future returned by fn is awaited by Invoke.
func RegisterAsync[In, Out any](tb *ToolBox, fn func(context.Context, In) *Future[Out], opts ...ToolOption) (func(context.Context, In) *Future[Out], error) {
	h := func(ctx context.Context, args json.RawMessage) *Future[any] {
		in, err := decode[In](args)
		if err != nil {
			return Resolved[any](nil, err)
		}

		return erase(fn(ctx, in))
	}

	if err := register[In, Out](tb, fn, h, true, opts); err != nil {
		return nil, err
	}

	return fn, nil
}

// MustRegisterAsync is like RegisterAsync but panics on error.
func MustRegisterAsync[In, Out any](tb *ToolBox, fn func(context.Context, In) *Future[Out], opts ...ToolOption) func(context.Context, In) *Future[Out] {
	fn, err := RegisterAsync(tb, fn, opts...)
	if err != nil {
		panic(err)
	}

	return fn
}

func register[In, Out any](tb *ToolBox, fn any, h Handler, async bool, opts []ToolOption) error {
	var cfg toolConfig
	for _, o := range opts {
		o(&cfg)
	}

	info := describe(fn)

	name := cfg.name
	if name == "" {
		if info.name == "" {
			return fmt.Errorf("toolbox: register %s: %w", info.symbol, ErrUnnamedHandler)
		}
		name = info.name
	}

	desc := info.doc
	if cfg.description != nil {
		desc = *cfg.description
	}

	s, err := schema.For[In, Out]()
	if err != nil {
		return fmt.Errorf("toolbox: register %q: %w", name, err)
	}

	tb.put(context.Background(), Tool{
		Name:         name,
		Description:  desc,
		InputSchema:  s.Input,
		OutputSchema: s.Output,
		Source:       info.source,
		Async:        async,
		Handler:      h,
		resolved:     s.Resolved,
	})

	return nil
}

func decode[In any](args json.RawMessage) (In, error) {
	var in In
	if len(args) == 0 {
		return in, nil
	}

	if err := json.Unmarshal(args, &in); err != nil {
		return in, fmt.Errorf("%w: decode into %s: %v", ErrInvalidArguments, reflect.TypeFor[In](), err)
	}

	return in, nil
}
