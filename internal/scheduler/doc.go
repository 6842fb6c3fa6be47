// Package scheduler drives one pipeline run over a dependency graph.
//
// Every module instance moves Pending -> Ready -> Running -> Succeeded or
// Failed. Roots are Ready at once and every Ready instance is launched
// immediately through the runtime adapter, optionally bounded by
// MaxParallel. The scheduler loop owns all bookkeeping and blocks only on a
// single completion channel that any finishing module can wake.
//
// A failed module fails all of its transitive dependents without starting
// them; unrelated branches keep running. Cancelling the run context stops
// new launches, cancels what is in flight, waits for it, and yields the
// Aborted verdict.
package scheduler
