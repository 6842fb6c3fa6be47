package runner

import "github.com/specialistvlad/recipegrid/internal/registry"

func newRegistry(r registry.Registrant) *registry.Registry {
	return registry.New(r)
}
