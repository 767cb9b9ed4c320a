package toolbox

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/google/jsonschema-go/jsonschema"
)

// Handler executes a tool with the given JSON arguments. The returned Future is
// already resolved for synchronous handlers.
type Handler func(ctx context.Context, args json.RawMessage) *Future[any]

// Tool represents one registered operation: its name, description, inferred
// schemas, where it was defined, and the handler that runs it.
type Tool struct {
	Name         string
	Description  string
	InputSchema  *jsonschema.Schema
	OutputSchema *jsonschema.Schema
	// Source is the file:line the handler was defined at. Empty for tools that
	// did not come from a local Go function.
	Source  string
	Async   bool
	Handler Handler

	resolved *jsonschema.Resolved
}

// Result is the outcome of a successful invocation.
type Result struct {
	Value any
	Text  string
}

// Text renders a handler result as a response body. Strings and byte slices are
// used as is, Stringers and errors through their methods, and everything else
// as JSON.
func Text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case fmt.Stringer:
		return x.String()
	case error:
		return x.Error()
	}

	if rv := reflect.ValueOf(v); rv.Kind() == reflect.String {
		return rv.String()
	}

	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}

	return string(b)
}
