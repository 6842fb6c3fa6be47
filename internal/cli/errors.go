package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/specialistvlad/recipegrid/internal/catalog"
	"github.com/specialistvlad/recipegrid/internal/dag"
	"github.com/specialistvlad/recipegrid/internal/engine"
	"github.com/specialistvlad/recipegrid/internal/params"
	"github.com/specialistvlad/recipegrid/internal/recipe"
	"github.com/specialistvlad/recipegrid/internal/registry"
	"github.com/specialistvlad/recipegrid/internal/scheduler"
)

// Process exit codes.
const (
	ExitInternal        = 1
	ExitUsage           = 2
	ExitSchema          = 3
	ExitPartiallyFailed = 4
	ExitAborted         = 5
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func (e *ExitError) Unwrap() error { return e.Err }

func usageError(err error) error {
	return &ExitError{Code: ExitUsage, Message: err.Error(), Err: err}
}

// schemaErrors are the failures caused by a recipe or its parameters rather
// than by the environment.
var schemaErrors = []error{
	recipe.ErrInvalidRecipe,
	recipe.ErrUnsupportedFormat,
	catalog.ErrDuplicateRecipe,
	catalog.ErrRecipeNotFound,
	params.ErrMissingRequiredParameter,
	params.ErrTypeMismatch,
	params.ErrUnknownParameterReference,
	params.ErrUndeclaredParameter,
	dag.ErrDuplicateModuleName,
	dag.ErrUnknownDependency,
	dag.ErrCyclicDependency,
	registry.ErrUnknownModule,
	engine.ErrSetupFailed,
}

// AsExitError maps err to the exit code the process should terminate with.
func AsExitError(err error) *ExitError {
	if err == nil {
		return nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr
	}
	for _, target := range schemaErrors {
		if errors.Is(err, target) {
			return &ExitError{Code: ExitSchema, Message: err.Error(), Err: err}
		}
	}
	// cobra reports these as plain errors.
	msg := err.Error()
	if strings.HasPrefix(msg, "unknown command") || strings.HasPrefix(msg, "unknown flag") ||
		strings.HasPrefix(msg, "required flag") {
		return &ExitError{Code: ExitUsage, Message: msg, Err: err}
	}
	return &ExitError{Code: ExitInternal, Message: msg, Err: err}
}

// verdictError turns a finished run that did not complete into an ExitError.
// An error returned alongside a result is an internal failure, such as a
// store invariant violation, and takes precedence over the verdict.
func verdictError(res *scheduler.Result, runErr error) error {
	if runErr != nil {
		return &ExitError{
			Code:    ExitInternal,
			Message: fmt.Sprintf("recipe '%s' hit an internal error (verdict %s): %v", res.Recipe, res.Verdict, runErr),
			Err:     runErr,
		}
	}
	switch res.Verdict {
	case scheduler.Completed:
		return nil
	case scheduler.PartiallyFailed:
		return &ExitError{
			Code:    ExitPartiallyFailed,
			Message: fmt.Sprintf("recipe '%s' partially failed: %d of %d modules failed", res.Recipe, len(res.Failed()), len(res.Modules)),
		}
	default:
		return &ExitError{Code: ExitAborted, Message: fmt.Sprintf("recipe '%s' was aborted", res.Recipe)}
	}
}
