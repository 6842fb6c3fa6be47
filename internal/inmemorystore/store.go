package inmemorystore

import (
	"context"
	"sync"

	"github.com/specialistvlad/recipegrid/internal/module"
	"github.com/specialistvlad/recipegrid/internal/node"
	"github.com/specialistvlad/recipegrid/internal/nodestore"
)

// Store is an in-memory implementation of nodestore.Store.
//
// Artifacts live behind a mutex so that the existence check and the write of
// a Put are one atomic step with respect to concurrent completions. Status
// updates are independent per key and use a sync.Map.
type Store struct {
	mu        sync.RWMutex
	artifacts map[string]module.Artifacts

	states sync.Map // Key: module ID, Value: node.State
}

// New creates a new, empty in-memory store.
func New() *Store {
	return &Store{artifacts: make(map[string]module.Artifacts)}
}

var _ nodestore.Store = (*Store)(nil)

// Put stores a copy of artifacts. It fails with an *nodestore.InvariantError
// wrapping ErrDuplicateArtifact if id already has artifacts.
func (s *Store) Put(ctx context.Context, id string, artifacts module.Artifacts) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.artifacts[id]; exists {
		return &nodestore.InvariantError{Kind: nodestore.ErrDuplicateArtifact, Module: id}
	}
	s.artifacts[id] = artifacts.Clone()
	return nil
}

// Get returns the stored artifacts of id. It fails with an
// *nodestore.InvariantError wrapping ErrArtifactNotReady if there are none.
func (s *Store) Get(ctx context.Context, id string) (module.Artifacts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.artifacts[id]
	if !ok {
		return nil, &nodestore.InvariantError{Kind: nodestore.ErrArtifactNotReady, Module: id}
	}
	return a.Clone(), nil
}

// SetStatus records the state of a module.
func (s *Store) SetStatus(ctx context.Context, id string, status node.State) error {
	s.states.Store(id, status)
	return nil
}

// GetStatus returns the recorded state of a module. If no status has been
// set, it returns node.Pending.
func (s *Store) GetStatus(ctx context.Context, id string) (node.State, error) {
	status, ok := s.states.Load(id)
	if !ok {
		return node.Pending, nil
	}
	return status.(node.State), nil
}

// Snapshot returns a copy of every stored artifact set.
func (s *Store) Snapshot(ctx context.Context) map[string]module.Artifacts {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]module.Artifacts, len(s.artifacts))
	for id, a := range s.artifacts {
		out[id] = a.Clone()
	}
	return out
}
