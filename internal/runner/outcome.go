package runner

import "github.com/specialistvlad/recipegrid/internal/module"

// Outcome is the terminal result of one module execution. Exactly one of
// Artifacts and Failure is meaningful.
type Outcome struct {
	Artifacts module.Artifacts
	Failure   *module.Failure
}

// Succeeded reports whether the module produced artifacts.
func (o Outcome) Succeeded() bool {
	return o.Failure == nil
}
