// Package nodestore defines the interface for the per-run state/artifact
// store: module name to produced artifacts and terminal status.
//
// The store is created once per run, written by the scheduler as modules
// finish and read when a dependent is launched. It is discarded when the
// run ends; nothing persists between runs.
//
// Artifacts are write-once. A second Put for the same module, or a Get
// before the module succeeded, is an *InvariantError: it means the
// scheduler is wrong, never the recipe or a module.
package nodestore

import (
	"context"
	"errors"
	"fmt"

	"github.com/specialistvlad/recipegrid/internal/module"
	"github.com/specialistvlad/recipegrid/internal/node"
)

var (
	// ErrDuplicateArtifact is returned by Put when the module already stored artifacts.
	ErrDuplicateArtifact = errors.New("duplicate artifact")
	// ErrArtifactNotReady is returned by Get when the module has not stored artifacts.
	ErrArtifactNotReady = errors.New("artifact not ready")
)

// InvariantError marks a store/concurrency invariant violation. It unwraps
// to ErrDuplicateArtifact or ErrArtifactNotReady.
type InvariantError struct {
	Kind   error
	Module string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("store invariant violated: %s for module %q", e.Kind.Error(), e.Module)
}

func (e *InvariantError) Unwrap() error { return e.Kind }

// IsInvariant reports whether err is a store invariant violation.
func IsInvariant(err error) bool {
	var ie *InvariantError
	return errors.As(err, &ie)
}

// Store is the interface for the mutable state of one run.
//
// Implementations MUST be safe for concurrent use: modules complete on
// their own goroutines and several may publish at the same time. A Put
// must be fully visible to any goroutine that later observes the module as
// Succeeded.
type Store interface {
	// Put records the artifacts of a module that finished successfully.
	Put(ctx context.Context, id string, artifacts module.Artifacts) error

	// Get returns the artifacts stored for id.
	Get(ctx context.Context, id string) (module.Artifacts, error)

	// SetStatus records the latest known state of a module.
	SetStatus(ctx context.Context, id string, status node.State) error

	// GetStatus returns the recorded state of a module, Pending if none.
	GetStatus(ctx context.Context, id string) (node.State, error)

	// Snapshot returns a copy of every stored artifact set keyed by module.
	Snapshot(ctx context.Context) map[string]module.Artifacts
}
