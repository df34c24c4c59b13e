package body

import (
	"errors"
	"fmt"
)

// ErrFragmentInvalid marks a field template that did not render to valid JSON.
var ErrFragmentInvalid = errors.New("rendered fragment is not valid JSON")

// InvalidTemplateError is returned when the body template is not a JSON object
// once the static placeholders are substituted.
type InvalidTemplateError struct {
	Err error
}

func (e *InvalidTemplateError) Error() string {
	if e == nil || e.Err == nil {
		return "body: invalid template"
	}
	return "body: invalid template: " + e.Err.Error()
}

func (e *InvalidTemplateError) Unwrap() error { return e.Err }

// FieldRenderError identifies the fragment that failed. Index is the turn or
// tool position it came from.
type FieldRenderError struct {
	Role  FieldRole
	Index int
	Err   error
}

func (e *FieldRenderError) Error() string {
	return fmt.Sprintf("body: %s field #%d: %v", e.Role, e.Index, e.Err)
}

func (e *FieldRenderError) Unwrap() error { return e.Err }
