package toolbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoHandler(_ context.Context, args json.RawMessage) *Future[any] {
	return Resolved[any](string(args), nil)
}

func errorHandler(_ context.Context, _ json.RawMessage) *Future[any] {
	return Resolved[any](nil, errors.New("tool failed"))
}

func objectSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:       "object",
		Properties: map[string]*jsonschema.Schema{"msg": {Type: "string"}},
	}
}

func newEchoTool(name string) Tool {
	return Tool{
		Name:        name,
		Description: "Echoes input",
		InputSchema: objectSchema(),
		Handler:     echoHandler,
	}
}

func mustAdd(t *testing.T, tb *ToolBox, tools ...Tool) {
	t.Helper()
	require.NoError(t, tb.Add(tools...))
}

func TestNew(t *testing.T) {
	tb := New()
	assert.NotNil(t, tb)
	assert.Empty(t, tb.Tools())
}

func TestAddAndGet(t *testing.T) {
	tb := New()
	mustAdd(t, tb, newEchoTool("echo"))

	got, ok := tb.Get("echo")
	assert.True(t, ok)
	assert.Equal(t, "echo", got.Name)
	assert.Equal(t, &jsonschema.Schema{Type: "string"}, got.OutputSchema)
}

func TestGetNotFound(t *testing.T) {
	tb := New()

	_, ok := tb.Get("missing")
	assert.False(t, ok)
}

func TestAddMultiple(t *testing.T) {
	tb := New()
	mustAdd(t, tb,
		newEchoTool("a"),
		newEchoTool("b"),
		newEchoTool("c"),
	)

	assert.Len(t, tb.Tools(), 3)
}

func TestAddInvalid(t *testing.T) {
	tb := New()

	tests := []struct {
		name string
		tool Tool
	}{
		{"no name", Tool{InputSchema: objectSchema(), Handler: echoHandler}},
		{"no handler", Tool{Name: "x", InputSchema: objectSchema()}},
		{"no schema", Tool{Name: "x", Handler: echoHandler}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tb.Add(tt.tool), ErrInvalidTool)
		})
	}
	assert.Empty(t, tb.Tools())
}

func TestAddReplace(t *testing.T) {
	tb := New()
	mustAdd(t, tb, Tool{
		Name:        "tool",
		Description: "original",
		InputSchema: objectSchema(),
		Handler:     echoHandler,
	})
	mustAdd(t, tb, Tool{
		Name:        "tool",
		Description: "replaced",
		InputSchema: objectSchema(),
		Handler:     echoHandler,
	})

	got, ok := tb.Get("tool")
	require.True(t, ok)
	assert.Equal(t, "replaced", got.Description)
	assert.Len(t, tb.Tools(), 1)
}

func TestToolsSortedByName(t *testing.T) {
	tb := New()
	mustAdd(t, tb, newEchoTool("y"), newEchoTool("x"), newEchoTool("z"))

	var names []string
	for _, tool := range tb.Tools() {
		names = append(names, tool.Name)
	}
	assert.Equal(t, []string{"x", "y", "z"}, names)
}

func TestDispatchSuccess(t *testing.T) {
	tb := New()
	mustAdd(t, tb, newEchoTool("echo"))

	resp := tb.Dispatch(context.Background(), "echo", json.RawMessage(`{"msg":"hi"}`))
	assert.Equal(t, StatusOK, resp.Status)
	assert.JSONEq(t, `{"msg":"hi"}`, resp.Text)
}

func TestDispatchValidatesAddedTools(t *testing.T) {
	tb := New()
	mustAdd(t, tb, newEchoTool("echo"))

	resp := tb.Dispatch(context.Background(), "echo", json.RawMessage(`{"msg":42}`))
	assert.Equal(t, StatusFailed, resp.Status)
	assert.ErrorIs(t, resp.Err, ErrInvalidArguments)
}

func TestMerge(t *testing.T) {
	tb1 := New()
	mustAdd(t, tb1, newEchoTool("a"), newEchoTool("b"))

	tb2 := New()
	mustAdd(t, tb2, newEchoTool("c"))

	tb1.Merge(tb2)

	assert.Len(t, tb1.Tools(), 3)
	_, ok := tb1.Get("c")
	assert.True(t, ok)
}

func TestMergeOverwrite(t *testing.T) {
	tb1 := New()
	mustAdd(t, tb1, Tool{Name: "x", Description: "original", InputSchema: objectSchema(), Handler: echoHandler})

	tb2 := New()
	mustAdd(t, tb2, Tool{Name: "x", Description: "replaced", InputSchema: objectSchema(), Handler: echoHandler})

	tb1.Merge(tb2)

	got, ok := tb1.Get("x")
	require.True(t, ok)
	assert.Equal(t, "replaced", got.Description)
	assert.Len(t, tb1.Tools(), 1)
}

func TestFilterSubset(t *testing.T) {
	tb := New()
	mustAdd(t, tb, newEchoTool("a"), newEchoTool("b"), newEchoTool("c"))

	filtered := tb.Filter([]string{"a", "c"})

	assert.Len(t, filtered.Tools(), 2)
	_, ok := filtered.Get("a")
	assert.True(t, ok)
	_, ok = filtered.Get("c")
	assert.True(t, ok)
	_, ok = filtered.Get("b")
	assert.False(t, ok)
}

func TestFilterEmptyReturnsSamePointer(t *testing.T) {
	tb := New()
	mustAdd(t, tb, newEchoTool("a"))

	filtered := tb.Filter(nil)
	assert.Same(t, tb, filtered)

	filtered = tb.Filter([]string{})
	assert.Same(t, tb, filtered)
}

func TestFilterMissingNamesSkipped(t *testing.T) {
	tb := New()
	mustAdd(t, tb, newEchoTool("a"))

	filtered := tb.Filter([]string{"a", "missing", "also_missing"})

	assert.Len(t, filtered.Tools(), 1)
	_, ok := filtered.Get("a")
	assert.True(t, ok)
}

func TestFilterOriginalNotMutated(t *testing.T) {
	tb := New()
	mustAdd(t, tb, newEchoTool("a"), newEchoTool("b"), newEchoTool("c"))

	filtered := tb.Filter([]string{"a"})

	// Original still has all three tools.
	assert.Len(t, tb.Tools(), 3)
	// Filtered has only one.
	assert.Len(t, filtered.Tools(), 1)
}

func TestFilterSeesLaterRegistrations(t *testing.T) {
	tb := New()
	mustAdd(t, tb, newEchoTool("a"))

	filtered := tb.Filter([]string{"a", "late"})
	_, ok := filtered.Get("late")
	assert.False(t, ok)

	mustAdd(t, tb, newEchoTool("late"), newEchoTool("hidden"))

	_, ok = filtered.Get("late")
	assert.True(t, ok)
	_, ok = filtered.Get("hidden")
	assert.False(t, ok)
	assert.Len(t, filtered.Tools(), 2)

	resp := filtered.Dispatch(context.Background(), "late", json.RawMessage(`{"msg":"x"}`))
	assert.Equal(t, StatusOK, resp.Status)
	resp = filtered.Dispatch(context.Background(), "hidden", nil)
	assert.Equal(t, StatusNotFound, resp.Status)
}

func TestFilterOfFilterNarrows(t *testing.T) {
	tb := New()
	mustAdd(t, tb, newEchoTool("a"), newEchoTool("b"), newEchoTool("c"))

	narrowed := tb.Filter([]string{"a", "b"}).Filter([]string{"b", "c"})

	tools := narrowed.Tools()
	require.Len(t, tools, 1)
	assert.Equal(t, "b", tools[0].Name)
}

func TestFilterUsesSourceMiddleware(t *testing.T) {
	tb := New()
	mustAdd(t, tb, newEchoTool("a"))
	filtered := tb.Filter([]string{"a"})

	calls := 0
	tb.Use(func(next Invoker) Invoker {
		return InvokerFunc(func(ctx context.Context, tool Tool, args json.RawMessage) (any, error) {
			calls++
			return next.Invoke(ctx, tool, args)
		})
	})

	resp := filtered.Dispatch(context.Background(), "a", nil)
	assert.Equal(t, StatusOK, resp.Status)
	assert.Equal(t, 1, calls)
}

func TestDispatchHandlerError(t *testing.T) {
	tb := New()
	mustAdd(t, tb, Tool{
		Name:        "fail",
		InputSchema: objectSchema(),
		Handler:     errorHandler,
	})

	resp := tb.Dispatch(context.Background(), "fail", nil)
	assert.Equal(t, StatusFailed, resp.Status)
	assert.Contains(t, resp.Text, "tool failed")
}

func TestMiddlewareOrder(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next Invoker) Invoker {
			return InvokerFunc(func(ctx context.Context, tool Tool, args json.RawMessage) (any, error) {
				order = append(order, name)
				return next.Invoke(ctx, tool, args)
			})
		}
	}

	tb := New(WithMiddleware(mark("outer")))
	tb.Use(mark("inner"))
	mustAdd(t, tb, newEchoTool("echo"))

	resp := tb.Dispatch(context.Background(), "echo", nil)
	require.Equal(t, StatusOK, resp.Status)
	assert.Equal(t, []string{"outer", "inner"}, order)
}

type recordingObserver struct {
	registered []string
	invoked    []string
	errs       []error
}

func (o *recordingObserver) ToolRegistered(_ context.Context, t Tool) {
	o.registered = append(o.registered, t.Name)
}

func (o *recordingObserver) ToolInvoked(ctx context.Context, t Tool) (context.Context, func(error)) {
	o.invoked = append(o.invoked, t.Name)
	return ctx, func(err error) { o.errs = append(o.errs, err) }
}

func TestObserver(t *testing.T) {
	obs := &recordingObserver{}
	tb := New(WithObserver(obs))
	mustAdd(t, tb, newEchoTool("echo"), Tool{Name: "fail", InputSchema: objectSchema(), Handler: errorHandler})

	tb.Dispatch(context.Background(), "echo", nil)
	tb.Dispatch(context.Background(), "fail", nil)
	tb.Dispatch(context.Background(), "missing", nil)

	assert.Equal(t, []string{"echo", "fail"}, obs.registered)
	assert.Equal(t, []string{"echo", "fail"}, obs.invoked)
	require.Len(t, obs.errs, 2)
	assert.NoError(t, obs.errs[0])
	assert.Error(t, obs.errs[1])
}

func TestDispatchMergesNestedDefaults(t *testing.T) {
	tb := New()
	mustAdd(t, tb, Tool{
		Name: "echo",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"id":   {Type: "integer"},
				"mode": {Type: "string", Default: json.RawMessage(`"fast"`)},
				"opts": {
					Type:       "object",
					Properties: map[string]*jsonschema.Schema{"depth": {Type: "integer", Default: json.RawMessage(`2`)}},
				},
			},
		},
		Handler: echoHandler,
	})

	resp := tb.Dispatch(context.Background(), "echo", json.RawMessage(`{"id":9007199254740993,"opts":{"big":18446744073709551615}}`))
	require.Equal(t, StatusOK, resp.Status, resp.Text)

	var got struct {
		ID   json.Number `json:"id"`
		Mode string      `json:"mode"`
		Opts struct {
			Big   json.Number `json:"big"`
			Depth int         `json:"depth"`
		} `json:"opts"`
	}
	require.NoError(t, json.Unmarshal([]byte(resp.Text), &got))
	assert.Equal(t, json.Number("9007199254740993"), got.ID)
	assert.Equal(t, "fast", got.Mode)
	assert.Equal(t, json.Number("18446744073709551615"), got.Opts.Big)
	assert.Equal(t, 2, got.Opts.Depth)
}

func TestDispatchPassesArgumentsThroughWithoutDefaults(t *testing.T) {
	tb := New()
	mustAdd(t, tb, newEchoTool("echo"))

	resp := tb.Dispatch(context.Background(), "echo", json.RawMessage(` {"msg": "hi", "n": 12345678901234567890} `))
	require.Equal(t, StatusOK, resp.Status, resp.Text)
	assert.Equal(t, `{"msg": "hi", "n": 12345678901234567890}`, resp.Text)
}
