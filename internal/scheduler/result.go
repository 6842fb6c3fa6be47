package scheduler

import (
	"time"

	"github.com/specialistvlad/recipegrid/internal/module"
	"github.com/specialistvlad/recipegrid/internal/node"
)

// Verdict is the pipeline-level terminal state.
type Verdict string

const (
	// Completed means every module succeeded.
	Completed Verdict = "Completed"
	// PartiallyFailed means at least one module failed and the run was not cancelled.
	PartiallyFailed Verdict = "PartiallyFailed"
	// Aborted means the run was cancelled or hit an internal invariant violation.
	Aborted Verdict = "Aborted"
)

// ModuleReport is the final state of one module instance.
type ModuleReport struct {
	ID        string
	Kind      string
	State     node.State
	Failure   *module.Failure
	Artifacts module.Artifacts
	Started   time.Time
	Finished  time.Time
}

// Duration is the time the module spent running.
func (r ModuleReport) Duration() time.Duration {
	if r.Started.IsZero() || r.Finished.IsZero() {
		return 0
	}
	return r.Finished.Sub(r.Started)
}

// Result is the outcome of a run.
type Result struct {
	RunID    string
	Recipe   string
	Verdict  Verdict
	Started  time.Time
	Finished time.Time
	// Modules is in recipe order.
	Modules []ModuleReport
}

// Module returns the report for id.
func (r *Result) Module(id string) (ModuleReport, bool) {
	for _, m := range r.Modules {
		if m.ID == id {
			return m, true
		}
	}
	return ModuleReport{}, false
}

// Succeeded returns the IDs of modules that succeeded.
func (r *Result) Succeeded() []string {
	return r.withState(node.Succeeded)
}

// Failed returns the IDs of modules that failed.
func (r *Result) Failed() []string {
	return r.withState(node.Failed)
}

// Artifacts returns the artifacts of every succeeded module.
func (r *Result) Artifacts() map[string]module.Artifacts {
	out := make(map[string]module.Artifacts)
	for _, m := range r.Modules {
		if m.State == node.Succeeded {
			out[m.ID] = m.Artifacts
		}
	}
	return out
}

func (r *Result) withState(s node.State) []string {
	var ids []string
	for _, m := range r.Modules {
		if m.State == s {
			ids = append(ids, m.ID)
		}
	}
	return ids
}
