package schema

import (
	"errors"
	"fmt"
	"reflect"
)

// ErrSchemaInference is matched by every error returned from input schema
// inference.
var ErrSchemaInference = errors.New("schema inference failed")

// Error reports a type or field that could not be described.
type Error struct {
	Type  reflect.Type
	Field string
	Err   error
}

func (e *Error) Error() string {
	switch {
	case e.Type == nil:
		return fmt.Sprintf("schema: %v", e.Err)
	case e.Field != "":
		return fmt.Sprintf("schema: %s.%s: %v", e.Type, e.Field, e.Err)
	default:
		return fmt.Sprintf("schema: %s: %v", e.Type, e.Err)
	}
}

func (e *Error) Unwrap() []error {
	return []error{ErrSchemaInference, e.Err}
}
