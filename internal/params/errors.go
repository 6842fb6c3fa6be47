package params

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingRequiredParameter is returned when a required key was not supplied.
	ErrMissingRequiredParameter = errors.New("missing required parameter")
	// ErrTypeMismatch is returned when a supplied value cannot be coerced to
	// the type implied by the parameter's default.
	ErrTypeMismatch = errors.New("parameter type mismatch")
	// ErrUnknownParameterReference is returned when a module argument names
	// a parameter the recipe never declared.
	ErrUnknownParameterReference = errors.New("unknown parameter reference")
	// ErrUndeclaredParameter is returned when the caller supplies a key the
	// recipe does not declare.
	ErrUndeclaredParameter = errors.New("undeclared parameter")
)

// Error describes a resolution failure. It unwraps to one of the sentinel
// errors above.
type Error struct {
	Kind   error
	Key    string
	Module string
	Msg    string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := fmt.Sprintf("%s %q", e.Kind.Error(), e.Key)
	if e.Module != "" {
		msg = fmt.Sprintf("module %s: %s", e.Module, msg)
	}
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Kind }
