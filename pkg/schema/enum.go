package schema

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
)

// Enum is implemented by named string types with a closed set of values. Such
// types are described as {"type":"string","enum":[...]} wherever they appear.
type Enum interface {
	EnumValues() []string
}

var enumType = reflect.TypeFor[Enum]()

// enumSchemas walks t and returns a schema override for every enum type it
// reaches.
func enumSchemas(t reflect.Type) map[reflect.Type]*jsonschema.Schema {
	out := map[reflect.Type]*jsonschema.Schema{}
	seen := map[reflect.Type]bool{}

	var walk func(reflect.Type)
	walk = func(t reflect.Type) {
		if seen[t] {
			return
		}
		seen[t] = true

		if t.Kind() == reflect.String && t.Name() != "" && t.Implements(enumType) {
			values := reflect.Zero(t).Interface().(Enum).EnumValues()
			out[t] = &jsonschema.Schema{Type: "string", Enum: toAny(values)}
			return
		}

		switch t.Kind() {
		case reflect.Pointer, reflect.Slice, reflect.Array:
			walk(t.Elem())
		case reflect.Map:
			walk(t.Elem())
		case reflect.Struct:
			for i := range t.NumField() {
				walk(t.Field(i).Type)
			}
		}
	}
	walk(t)

	return out
}

func applyEnumTag(prop *jsonschema.Schema, t reflect.Type, tag string) error {
	base := t
	for base.Kind() == reflect.Pointer {
		base = base.Elem()
	}
	if base.Kind() != reflect.String {
		return fmt.Errorf("enum tag on non-string field of kind %s", base.Kind())
	}

	var values []string
	for v := range strings.SplitSeq(tag, ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return fmt.Errorf("empty enum tag")
	}

	prop.Enum = toAny(values)

	return nil
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
