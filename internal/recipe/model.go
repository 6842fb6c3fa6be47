package recipe

import (
	"strings"

	"github.com/zclconf/go-cty/cty"
)

// Recipe is a named, parameterized pipeline template.
type Recipe struct {
	Name             string
	Description      []string
	ShortDescription string
	Modules          []*ModuleSpec
	Args             []*ParameterDeclaration

	// Source is the file the recipe was loaded from, if any.
	Source string
}

// DescriptionText joins the description lines for display.
func (r *Recipe) DescriptionText() string {
	return strings.Join(r.Description, "\n")
}

// Parameter returns the declaration for key.
func (r *Recipe) Parameter(key string) (*ParameterDeclaration, bool) {
	for _, p := range r.Args {
		if p.Key == key {
			return p, true
		}
	}
	return nil, false
}

// RequiredParameters returns the required declarations in declaration order.
func (r *Recipe) RequiredParameters() []*ParameterDeclaration {
	var out []*ParameterDeclaration
	for _, p := range r.Args {
		if !p.Optional {
			out = append(out, p)
		}
	}
	return out
}

// OptionalParameters returns the optional declarations in declaration order.
func (r *Recipe) OptionalParameters() []*ParameterDeclaration {
	var out []*ParameterDeclaration
	for _, p := range r.Args {
		if p.Optional {
			out = append(out, p)
		}
	}
	return out
}

// ParameterDeclaration is one entry of a recipe's "args" list.
type ParameterDeclaration struct {
	// Key is the parameter name with any leading "--" removed.
	Key  string
	Help string
	// Optional is true for keys written with a leading "--".
	Optional bool
	// Default is the declared default. It is a null value when the manifest
	// says null or omits it.
	Default cty.Value
}

// IsBool reports whether the declared default makes the parameter boolean-typed.
func (p *ParameterDeclaration) IsBool() bool {
	return !p.Default.IsNull() && p.Default.Type() == cty.Bool
}

// Flag returns the parameter as it is written in a manifest.
func (p *ParameterDeclaration) Flag() string {
	if p.Optional {
		return "--" + p.Key
	}
	return p.Key
}

// ModuleSpec is one entry of a recipe's "modules" list.
type ModuleSpec struct {
	// Name identifies the module implementation to instantiate.
	Name string
	// RuntimeName, when set, names this instance in the graph so a recipe
	// can use the same implementation more than once.
	RuntimeName string
	Wants       []string
	Args        map[string]Arg
}

// ID is the name the module instance is known by in the execution graph.
func (m *ModuleSpec) ID() string {
	if m.RuntimeName != "" {
		return m.RuntimeName
	}
	return m.Name
}
