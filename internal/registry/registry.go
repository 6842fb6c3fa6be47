package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/specialistvlad/recipegrid/internal/module"
)

// ErrUnknownModule is returned when a recipe names a module kind that was
// never registered.
var ErrUnknownModule = errors.New("unknown module")

// Registrant is implemented by every module package to register its kinds.
type Registrant interface {
	Register(r *Registry)
}

// Registry holds the registered module factories for one application instance.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]module.Factory
}

// New creates a registry and lets each registrant add its module kinds.
func New(registrants ...Registrant) *Registry {
	r := &Registry{factories: make(map[string]module.Factory)}
	for _, m := range registrants {
		m.Register(r)
	}
	return r
}

// Register adds a module kind. Registering the same name twice is a
// programmer error and panics.
func (r *Registry) Register(name string, factory module.Factory) {
	if name == "" || factory == nil {
		panic("registry: module name and factory are required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		panic(fmt.Sprintf("module with name '%s' already registered", name))
	}
	slog.Debug("Registering module.", "name", name)
	r.factories[name] = factory
}

// Factory returns the factory registered under name.
func (r *Registry) Factory(name string) (module.Factory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModule, name)
	}
	return f, nil
}

// New builds a fresh instance of the named module kind.
func (r *Registry) New(name string) (module.Module, error) {
	f, err := r.Factory(name)
	if err != nil {
		return nil, err
	}
	return f(), nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[name]
	return ok
}

// Names returns every registered module kind, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegistrantFunc adapts a plain function to the Registrant interface.
type RegistrantFunc func(r *Registry)

// Register implements Registrant.
func (f RegistrantFunc) Register(r *Registry) { f(r) }
