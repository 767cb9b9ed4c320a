package toolbox

import "context"

// Observer receives registration and invocation events.
type Observer interface {
	ToolRegistered(ctx context.Context, t Tool)
	// ToolInvoked is called before an invocation starts. The returned context is
	// used for the invocation and finish is called with its error once it ends.
	ToolInvoked(ctx context.Context, t Tool) (_ context.Context, finish func(error))
}

type nopObserver struct{}

func (nopObserver) ToolRegistered(context.Context, Tool) {}

func (nopObserver) ToolInvoked(ctx context.Context, _ Tool) (context.Context, func(error)) {
	return ctx, func(error) {}
}
