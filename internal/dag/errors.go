package dag

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDuplicateModuleName is returned when two modules share an ID.
	ErrDuplicateModuleName = errors.New("duplicate module name")
	// ErrUnknownDependency is returned when a wants entry names no module.
	ErrUnknownDependency = errors.New("unknown dependency")
	// ErrCyclicDependency is returned when the wants relation has a cycle.
	ErrCyclicDependency = errors.New("cyclic dependency")
	// ErrNodeNotFound is returned by lookups for an ID that is not in the graph.
	ErrNodeNotFound = errors.New("node not found")
)

// GraphError is a structural error. It unwraps to its Kind.
type GraphError struct {
	Kind error
	Msg  string
}

func (e *GraphError) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Msg)
}

func (e *GraphError) Unwrap() error { return e.Kind }

// CycleError names the modules of a detected cycle in edge order. The first
// member is repeated at the end of the rendered message.
type CycleError struct {
	Members []string
}

func (e *CycleError) Error() string {
	path := append(append([]string(nil), e.Members...), e.Members[0])
	return fmt.Sprintf("%s: %s", ErrCyclicDependency.Error(), strings.Join(path, " -> "))
}

func (e *CycleError) Unwrap() error { return ErrCyclicDependency }

func graphErrorf(kind error, format string, args ...any) error {
	return &GraphError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}
