package module

import (
	"context"
	"sort"
)

// Module is the capability set the engine requires from a pipeline stage.
type Module interface {
	// SetUp receives the module's argument map with every placeholder
	// already substituted. It runs before any module in the run is processed.
	SetUp(ctx context.Context, args Args) error

	// Process performs the module's work. inputs holds the artifacts of each
	// declared dependency, keyed by dependency name. Blocking I/O is allowed;
	// implementations should return promptly once ctx is done.
	Process(ctx context.Context, inputs Inputs) (Artifacts, error)
}

// Factory creates a fresh, unconfigured Module instance.
type Factory func() Module

// Artifacts is the opaque output of a successful module. The engine never
// interprets its contents.
type Artifacts map[string]any

// Inputs maps a dependency name to the artifacts that dependency produced.
type Inputs map[string]Artifacts

// Names returns the dependency names in sorted order.
func (in Inputs) Names() []string {
	names := make([]string, 0, len(in))
	for name := range in {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Collect returns every value stored under key across all dependencies, in
// dependency-name order. Slice values are flattened.
func (in Inputs) Collect(key string) []any {
	var out []any
	for _, name := range in.Names() {
		v, ok := in[name][key]
		if !ok {
			continue
		}
		switch tv := v.(type) {
		case []any:
			out = append(out, tv...)
		case []string:
			for _, s := range tv {
				out = append(out, s)
			}
		default:
			out = append(out, tv)
		}
	}
	return out
}

// CollectStrings is Collect restricted to string values.
func (in Inputs) CollectStrings(key string) []string {
	var out []string
	for _, v := range in.Collect(key) {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Clone returns a shallow copy of the artifact set so a dependent cannot
// mutate the map another dependent also receives.
func (a Artifacts) Clone() Artifacts {
	if a == nil {
		return Artifacts{}
	}
	out := make(Artifacts, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}
