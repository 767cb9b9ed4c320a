package toolbox

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned where a missing tool must be reported as an error.
	ErrNotFound = errors.New("tool not found")
	// ErrInvocation is matched by every error returned from Invoke.
	ErrInvocation = errors.New("tool invocation failed")
	// ErrInvalidArguments is matched when arguments fail to decode or validate.
	ErrInvalidArguments = errors.New("invalid arguments")
	// ErrPanic is matched when a handler panicked.
	ErrPanic = errors.New("handler panicked")
	// ErrUnnamedHandler is returned when no name was given for an anonymous
	// function.
	ErrUnnamedHandler = errors.New("cannot derive a name for an anonymous handler")
	// ErrNilFuture is returned when an async handler returns a nil Future.
	ErrNilFuture = errors.New("handler returned a nil future")
	// ErrInvalidTool is returned by Add for incomplete tool records.
	ErrInvalidTool = errors.New("invalid tool")
)

// InvocationError wraps a failure raised while invoking a tool.
type InvocationError struct {
	Tool string
	Err  error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("tool %q: %v", e.Tool, e.Err)
}

func (e *InvocationError) Unwrap() []error {
	return []error{ErrInvocation, e.Err}
}
