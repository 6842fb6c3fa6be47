// Package inmemorystore keeps one run's artifacts and module states in
// memory. Artifacts are write-once; the engine creates a fresh store for
// every run and discards it when the Result has been built.
package inmemorystore
