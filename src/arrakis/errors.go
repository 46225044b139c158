package arrakis

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// SchemaError reports an inbound frame that failed structural validation.
// Path names the offending field where one can be identified. Frames that
// produce a SchemaError must be dropped by the caller; they are never
// partially trusted.
type SchemaError struct {
	Path string
	Msg  string
}

func (e *SchemaError) Error() string {
	if e.Path == "" {
		return "schema: " + e.Msg
	}
	return fmt.Sprintf("schema: %s: %s", e.Path, e.Msg)
}

func schemaErrorf(path, format string, args ...any) *SchemaError {
	return &SchemaError{Path: path, Msg: fmt.Sprintf(format, args...)}
}

// asSchemaError converts json and validator failures into a SchemaError
// carrying the field path they identify.
func asSchemaError(err error) *SchemaError {
	var se *SchemaError
	if errors.As(err, &se) {
		return se
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return schemaErrorf(typeErr.Field, "expected %s, got %s", typeErr.Type, typeErr.Value)
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		e := verrs[0]
		return schemaErrorf(e.Namespace(), "failed %q validation", e.Tag())
	}

	return &SchemaError{Msg: err.Error()}
}
