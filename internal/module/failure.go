package module

import (
	"errors"
	"fmt"
)

// Kind classifies why a module ended in the Failed state.
type Kind string

const (
	// KindError is an arbitrary failure reported by the module.
	KindError Kind = "Error"
	// KindTimeout means the module exceeded its configured deadline.
	KindTimeout Kind = "Timeout"
	// KindCancelled means the run was cancelled while the module was pending or running.
	KindCancelled Kind = "Cancelled"
	// KindPanic means the module panicked; the panic was recovered by the adapter.
	KindPanic Kind = "Panic"
	// KindUpstreamFailed marks a dependent short-circuited by a failed dependency.
	KindUpstreamFailed Kind = "UpstreamFailed"
	// KindSetupFailed means SetUp returned an error.
	KindSetupFailed Kind = "SetupFailed"
)

// Failure is the structured failure descriptor of a module.
type Failure struct {
	Kind    Kind
	Module  string
	Message string
	Err     error
}

// Error implements the error interface.
func (f *Failure) Error() string {
	if f == nil {
		return ""
	}
	if f.Module == "" {
		return fmt.Sprintf("%s: %s", f.Kind, f.Message)
	}
	return fmt.Sprintf("module %s: %s: %s", f.Module, f.Kind, f.Message)
}

// Unwrap returns the underlying cause, if any.
func (f *Failure) Unwrap() error {
	if f == nil {
		return nil
	}
	return f.Err
}

// Failf builds a Failure a module can return from Process to choose its own kind.
func Failf(kind Kind, format string, args ...any) *Failure {
	return &Failure{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// AsFailure extracts a *Failure from err's chain.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}
