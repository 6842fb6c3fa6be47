package dag

import (
	"fmt"

	"github.com/specialistvlad/recipegrid/internal/recipe"
)

// Build constructs a validated dependency graph from a recipe's modules.
// It fails with ErrDuplicateModuleName, ErrUnknownDependency or a
// *CycleError (ErrCyclicDependency). The specs are not modified.
func Build(specs []*recipe.ModuleSpec) (*Graph, error) {
	g := New()

	// First pass: one node per module instance.
	for _, spec := range specs {
		if err := g.AddNode(spec.ID()); err != nil {
			return nil, err
		}
		g.nodes[spec.ID()].spec = spec
	}

	// Second pass: wants edges.
	for _, spec := range specs {
		for _, want := range spec.Wants {
			if err := g.AddEdge(want, spec.ID()); err != nil {
				return nil, err
			}
		}
	}

	if err := g.DetectCycles(); err != nil {
		return nil, fmt.Errorf("validating dependency graph: %w", err)
	}
	return g, nil
}
