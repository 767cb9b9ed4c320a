package httpadapter

import (
	"net/url"
	"strconv"

	"github.com/google/jsonschema-go/jsonschema"
)

// QueryArguments converts query parameters into a JSON arguments object,
// coercing each value to the type its property declares. Values that cannot be
// coerced are passed as strings and left for validation to reject.
func QueryArguments(q url.Values, s *jsonschema.Schema) map[string]any {
	args := make(map[string]any, len(q))
	for key, values := range q {
		if len(values) == 0 {
			continue
		}

		var prop *jsonschema.Schema
		if s != nil {
			prop = s.Properties[key]
		}

		if primaryType(prop) == "array" {
			var items *jsonschema.Schema
			if prop != nil {
				items = prop.Items
			}
			list := make([]any, len(values))
			for i, v := range values {
				list[i] = coerce(v, items)
			}
			args[key] = list
			continue
		}

		args[key] = coerce(values[len(values)-1], prop)
	}

	return args
}

func coerce(v string, s *jsonschema.Schema) any {
	switch primaryType(s) {
	case "integer":
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	case "number":
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	case "boolean":
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}

	return v
}

// primaryType returns the first non-null type of s.
func primaryType(s *jsonschema.Schema) string {
	if s == nil {
		return ""
	}
	if s.Type != "" {
		return s.Type
	}
	for _, t := range s.Types {
		if t != "null" {
			return t
		}
	}

	return ""
}
