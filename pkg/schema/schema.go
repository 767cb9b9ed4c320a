// Package schema derives JSON Schemas for tool handlers from their Go types.
//
// A handler has the shape func(context.Context, In) (Out, error). The exported
// fields of In are the handler's parameters, in declaration order, named by their
// json tag. Out is the return value.
package schema

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
)

// Schemas holds the input and output schemas of one handler.
type Schemas struct {
	Input    *jsonschema.Schema
	Output   *jsonschema.Schema
	// Resolved is Input prepared for applying defaults and validation.
	Resolved *jsonschema.Resolved
}

// For infers the schemas for a handler taking In and returning Out.
func For[In, Out any]() (Schemas, error) {
	return ForTypes(reflect.TypeFor[In](), reflect.TypeFor[Out]())
}

// ForTypes is like For but takes reflect types.
func ForTypes(in, out reflect.Type) (Schemas, error) {
	input, resolved, err := resolveInput(in)
	if err != nil {
		return Schemas{}, err
	}

	return Schemas{Input: input, Output: Output(out), Resolved: resolved}, nil
}

// Text returns the generic text schema used when a type is absent or cannot be
// described.
func Text() *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string"}
}

// Input builds the object schema describing the parameters struct t.
//
// Fields without a default are required. A field carrying a default tag is
// optional and the default is recorded in its property schema; string kinds
// take the tag text as is, other kinds parse it as JSON. Fields marked
// omitempty or omitzero are optional without a recorded default. A field typed
// as an empty interface is described as text. An enum tag restricts a string
// field to a comma separated set of values.
func Input(t reflect.Type) (*jsonschema.Schema, error) {
	s, _, err := resolveInput(t)
	return s, err
}

func resolveInput(t reflect.Type) (*jsonschema.Schema, *jsonschema.Resolved, error) {
	if t == nil {
		return nil, nil, &Error{Err: fmt.Errorf("nil parameters type")}
	}

	st := t
	for st.Kind() == reflect.Pointer {
		st = st.Elem()
	}
	if st.Kind() != reflect.Struct {
		return nil, nil, &Error{Type: t, Err: fmt.Errorf("parameters must be a struct, got %s", st.Kind())}
	}

	s, err := jsonschema.ForType(st, &jsonschema.ForOptions{TypeSchemas: enumSchemas(st)})
	if err != nil {
		return nil, nil, &Error{Type: t, Err: err}
	}
	if s.Properties == nil {
		s.Properties = map[string]*jsonschema.Schema{}
	}

	var required []string
	for _, f := range reflect.VisibleFields(st) {
		if f.Anonymous || !f.IsExported() {
			continue
		}

		name, opts := jsonName(f)
		prop, ok := s.Properties[name]
		if name == "-" || !ok {
			continue
		}

		if isUntyped(f.Type) {
			prop = &jsonschema.Schema{Type: "string", Description: prop.Description}
			s.Properties[name] = prop
		}

		if values, ok := f.Tag.Lookup("enum"); ok {
			if err := applyEnumTag(prop, f.Type, values); err != nil {
				return nil, nil, &Error{Type: t, Field: f.Name, Err: err}
			}
		}

		if def, ok := f.Tag.Lookup("default"); ok {
			raw, err := defaultValue(f.Type, def)
			if err != nil {
				return nil, nil, &Error{Type: t, Field: f.Name, Err: err}
			}
			prop.Default = raw
			continue
		}

		if opts["omitempty"] || opts["omitzero"] {
			continue
		}

		required = append(required, name)
	}
	s.Required = required

	resolved, err := s.Resolve(&jsonschema.ResolveOptions{ValidateDefaults: true})
	if err != nil {
		return nil, nil, &Error{Type: t, Err: err}
	}

	return s, resolved, nil
}

// Output builds the schema describing a handler result of type t. It never
// fails: an absent, interface, or unsupported type is described as text.
func Output(t reflect.Type) *jsonschema.Schema {
	if t == nil || t.Kind() == reflect.Interface {
		return Text()
	}

	s, err := jsonschema.ForType(t, &jsonschema.ForOptions{TypeSchemas: enumSchemas(t)})
	if err != nil {
		return Text()
	}

	return s
}

func isUntyped(t reflect.Type) bool {
	return t.Kind() == reflect.Interface && t.NumMethod() == 0
}

func jsonName(f reflect.StructField) (string, map[string]bool) {
	opts := map[string]bool{}
	tag, ok := f.Tag.Lookup("json")
	if !ok {
		return f.Name, opts
	}

	parts := strings.Split(tag, ",")
	for _, p := range parts[1:] {
		opts[strings.TrimSpace(p)] = true
	}

	if parts[0] == "" {
		return f.Name, opts
	}

	return parts[0], opts
}

func defaultValue(t reflect.Type, tag string) (json.RawMessage, error) {
	base := t
	for base.Kind() == reflect.Pointer {
		base = base.Elem()
	}

	if base.Kind() == reflect.String || isUntyped(base) {
		return json.Marshal(tag)
	}

	v := reflect.New(t)
	if err := json.Unmarshal([]byte(tag), v.Interface()); err != nil {
		return nil, fmt.Errorf("invalid default %q: %w", tag, err)
	}

	return json.Marshal(v.Elem().Interface())
}
