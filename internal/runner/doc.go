// Package runner is the module runtime adapter. It starts a module's
// Process call on its own goroutine, so the caller never blocks on module
// I/O, and turns whatever happens (artifacts, an error, a timeout, a
// cancellation or a panic) into a single Outcome.
package runner
