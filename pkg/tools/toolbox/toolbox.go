package toolbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/germanamz/mystic/pkg/schema"
)

// ToolBox is a name-keyed collection of tools. It allows registering,
// retrieving, listing, and invoking tools. Transport adapters use a ToolBox to
// dispatch requests.
type ToolBox struct {
	mu         sync.RWMutex
	tools      map[string]Tool
	log        *slog.Logger
	observer   Observer
	middleware []Middleware

	// Set on views returned by Filter.
	base *ToolBox
	only map[string]bool
}

// Option configures a ToolBox.
type Option func(*ToolBox)

// WithLogger sets the logger registrations are reported to.
func WithLogger(log *slog.Logger) Option {
	return func(tb *ToolBox) { tb.log = log }
}

// WithObserver sets the observer notified of registrations and invocations.
func WithObserver(o Observer) Option {
	return func(tb *ToolBox) { tb.observer = o }
}

// WithMiddleware appends invoke middleware. The first middleware is the
// outermost.
func WithMiddleware(mw ...Middleware) Option {
	return func(tb *ToolBox) { tb.middleware = append(tb.middleware, mw...) }
}

// New creates a new ToolBox ready for use.
func New(opts ...Option) *ToolBox {
	tb := &ToolBox{
		tools:    make(map[string]Tool),
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		observer: nopObserver{},
	}
	for _, o := range opts {
		o(tb)
	}

	return tb
}

// Use appends invoke middleware after construction.
func (tb *ToolBox) Use(mw ...Middleware) {
	tb = tb.root()
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.middleware = append(tb.middleware, mw...)
}

// Add inserts pre-built tools, such as tools proxied from a remote server. A
// tool with the same name as an existing one replaces it. A missing output
// schema defaults to text.
func (tb *ToolBox) Add(tools ...Tool) error {
	for _, t := range tools {
		if t.Name == "" || t.Handler == nil || t.InputSchema == nil {
			return fmt.Errorf("toolbox: add %q: %w: name, handler, and input schema are required", t.Name, ErrInvalidTool)
		}
		if t.OutputSchema == nil {
			t.OutputSchema = schema.Text()
		}

		resolved, err := t.InputSchema.Resolve(nil)
		if err != nil {
			return fmt.Errorf("toolbox: add %q: resolve input schema: %w", t.Name, err)
		}
		t.resolved = resolved

		tb.put(context.Background(), t)
	}

	return nil
}

func (tb *ToolBox) put(ctx context.Context, t Tool) {
	tb = tb.root()
	tb.mu.Lock()
	_, replaced := tb.tools[t.Name]
	tb.tools[t.Name] = t
	tb.mu.Unlock()

	tb.log.InfoContext(ctx, "tool registered",
		"name", t.Name,
		"description", t.Description,
		"source", t.Source,
		"async", t.Async,
		"replaced", replaced,
		"input_schema", schemaJSON(t.InputSchema),
		"output_schema", schemaJSON(t.OutputSchema),
	)
	tb.observer.ToolRegistered(ctx, t)
}

// Get returns a tool by name and a boolean indicating whether it was found.
func (tb *ToolBox) Get(name string) (Tool, bool) {
	if tb.base != nil {
		if !tb.only[name] {
			return Tool{}, false
		}
		return tb.base.Get(name)
	}

	tb.mu.RLock()
	defer tb.mu.RUnlock()

	t, ok := tb.tools[name]
	return t, ok
}

// Merge adds all tools from another ToolBox into this one. If a tool with the
// same name already exists, it is replaced.
func (tb *ToolBox) Merge(other *ToolBox) {
	for _, t := range other.Tools() {
		tb.put(context.Background(), t)
	}
}

// Filter returns a view of tb holding only the named tools. The view reads
// through to tb, so tools registered on tb later are visible when named.
// Registering on the view registers on tb. An empty list returns tb itself.
func (tb *ToolBox) Filter(names []string) *ToolBox {
	if len(names) == 0 {
		return tb
	}

	only := make(map[string]bool, len(names))
	for _, n := range names {
		if tb.base == nil || tb.only[n] {
			only[n] = true
		}
	}

	return &ToolBox{base: tb.root(), only: only}
}

func (tb *ToolBox) root() *ToolBox {
	if tb.base != nil {
		return tb.base
	}
	return tb
}

// Tools returns all registered tools sorted by name.
func (tb *ToolBox) Tools() []Tool {
	if tb.base != nil {
		return slices.DeleteFunc(tb.base.Tools(), func(t Tool) bool { return !tb.only[t.Name] })
	}

	tb.mu.RLock()
	result := make([]Tool, 0, len(tb.tools))
	for _, t := range tb.tools {
		result = append(result, t)
	}
	tb.mu.RUnlock()

	slices.SortFunc(result, func(a, b Tool) int { return strings.Compare(a.Name, b.Name) })

	return result
}

// Invoke runs t with the given JSON arguments and waits for its result. Missing
// arguments fall back to the defaults recorded in the input schema and the
// arguments are validated before the handler runs. Every returned error is an
// *InvocationError.
func (tb *ToolBox) Invoke(ctx context.Context, t Tool, args json.RawMessage) (Result, error) {
	tb = tb.root()
	ctx, finish := tb.observer.ToolInvoked(ctx, t)

	tb.mu.RLock()
	inv := chain(InvokerFunc(call), tb.middleware)
	tb.mu.RUnlock()

	v, err := inv.Invoke(ctx, t, args)
	finish(err)
	if err != nil {
		return Result{}, &InvocationError{Tool: t.Name, Err: err}
	}

	return Result{Value: v, Text: Text(v)}, nil
}

// Dispatch looks name up and invokes it. A miss is reported as StatusNotFound
// without invoking anything.
func (tb *ToolBox) Dispatch(ctx context.Context, name string, args json.RawMessage) Response {
	t, ok := tb.Get(name)
	if !ok {
		return Response{Tool: name, Status: StatusNotFound}
	}

	res, err := tb.Invoke(ctx, t, args)
	if err != nil {
		return Response{Tool: name, Status: StatusFailed, Text: err.Error(), Err: err}
	}

	return Response{Tool: name, Status: StatusOK, Text: res.Text, Value: res.Value}
}

func call(ctx context.Context, t Tool, args json.RawMessage) (any, error) {
	if t.Handler == nil {
		return nil, fmt.Errorf("%w: no handler", ErrInvalidTool)
	}

	args, err := prepareArgs(t, args)
	if err != nil {
		return nil, err
	}

	return t.Handler(ctx, args).Await(ctx)
}

// prepareArgs validates args against the input schema and fills in missing
// defaults. Values supplied by the caller keep their original encoding so
// integers beyond float64 precision reach the handler intact.
func prepareArgs(t Tool, args json.RawMessage) (json.RawMessage, error) {
	args = bytes.TrimSpace(args)
	if len(args) == 0 || bytes.Equal(args, []byte("null")) {
		args = json.RawMessage("{}")
	}

	var m map[string]any
	if err := json.Unmarshal(args, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	if m == nil {
		m = map[string]any{}
	}

	resolved := t.resolved
	if resolved == nil && t.InputSchema != nil {
		r, err := t.InputSchema.Resolve(nil)
		if err != nil {
			return nil, fmt.Errorf("resolve input schema: %w", err)
		}
		resolved = r
	}
	if resolved == nil {
		return args, nil
	}

	if err := resolved.ApplyDefaults(&m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	if err := resolved.Validate(m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}

	merged, err := mergeDefaults(args, m)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}

	return merged, nil
}

// mergeDefaults copies the keys of filled that are missing from raw into raw,
// descending into objects present in both.
func mergeDefaults(raw json.RawMessage, filled any) (json.RawMessage, error) {
	obj, ok := filled.(map[string]any)
	if !ok {
		return raw, nil
	}

	var given map[string]json.RawMessage
	if err := json.Unmarshal(raw, &given); err != nil || given == nil {
		return raw, nil
	}

	added := false
	for k, v := range obj {
		cur, ok := given[k]
		if !ok {
			b, err := json.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("default for %q: %w", k, err)
			}
			given[k] = b
			added = true
			continue
		}

		next, err := mergeDefaults(cur, v)
		if err != nil {
			return nil, err
		}
		if !bytes.Equal(next, cur) {
			given[k] = next
			added = true
		}
	}
	if !added {
		return raw, nil
	}

	return json.Marshal(given)
}

func schemaJSON(s *jsonschema.Schema) string {
	if s == nil {
		return ""
	}

	b, err := json.Marshal(s)
	if err != nil {
		return err.Error()
	}

	return string(b)
}
