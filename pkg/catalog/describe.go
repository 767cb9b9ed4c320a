package catalog

import (
	"fmt"
	"slices"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
)

// Param is one property of an input schema.
type Param struct {
	Name        string
	Type        string
	Required    bool
	Default     string
	Description string
}

// Params lists the properties of s in declaration order.
func Params(s *jsonschema.Schema) []Param {
	if s == nil {
		return nil
	}

	var params []Param
	for _, name := range propertyNames(s) {
		prop := s.Properties[name]
		p := Param{
			Name:        name,
			Type:        TypeName(prop),
			Required:    slices.Contains(s.Required, name),
			Description: prop.Description,
		}
		if prop.Default != nil {
			p.Default = string(prop.Default)
		}
		params = append(params, p)
	}

	return params
}

// Signature summarises an input schema as "a, b?, c?" where optional
// parameters carry a question mark.
func Signature(s *jsonschema.Schema) string {
	var parts []string
	for _, p := range Params(s) {
		if p.Required {
			parts = append(parts, p.Name)
		} else {
			parts = append(parts, p.Name+"?")
		}
	}

	return strings.Join(parts, ", ")
}

// TypeName renders a schema type for humans, e.g. "string", "integer|null",
// "array of string", or "string (small, large)".
func TypeName(s *jsonschema.Schema) string {
	if s == nil {
		return "any"
	}

	var name string
	switch {
	case s.Type != "":
		name = s.Type
	case len(s.Types) > 0:
		types := slices.DeleteFunc(slices.Clone(s.Types), func(t string) bool { return t == "null" })
		name = strings.Join(types, "|")
		if len(types) < len(s.Types) {
			name += "|null"
		}
	default:
		name = "any"
	}

	if strings.HasPrefix(name, "array") && s.Items != nil {
		name = strings.Replace(name, "array", "array of "+TypeName(s.Items), 1)
	}

	if len(s.Enum) > 0 {
		values := make([]string, len(s.Enum))
		for i, v := range s.Enum {
			values[i] = fmt.Sprint(v)
		}
		name += " (" + strings.Join(values, ", ") + ")"
	}

	return name
}

func propertyNames(s *jsonschema.Schema) []string {
	names := make([]string, 0, len(s.Properties))
	for _, n := range s.PropertyOrder {
		if _, ok := s.Properties[n]; ok && !slices.Contains(names, n) {
			names = append(names, n)
		}
	}

	var rest []string
	for n := range s.Properties {
		if !slices.Contains(names, n) {
			rest = append(rest, n)
		}
	}
	slices.Sort(rest)

	return append(names, rest...)
}
