package testutil

import (
	"github.com/specialistvlad/recipegrid/internal/recipe"
	"github.com/zclconf/go-cty/cty"
)

// Spec builds a module spec with no arguments.
func Spec(name string, wants ...string) *recipe.ModuleSpec {
	return &recipe.ModuleSpec{Name: name, Wants: wants, Args: map[string]recipe.Arg{}}
}

// Recipe builds a recipe from module specs.
func Recipe(name string, specs ...*recipe.ModuleSpec) *recipe.Recipe {
	return &recipe.Recipe{Name: name, Modules: specs}
}

// Required declares a required parameter.
func Required(key string) *recipe.ParameterDeclaration {
	return &recipe.ParameterDeclaration{Key: key, Default: cty.NullVal(cty.DynamicPseudoType)}
}

// Optional declares an optional parameter with a default.
func Optional(key string, def cty.Value) *recipe.ParameterDeclaration {
	return &recipe.ParameterDeclaration{Key: key, Optional: true, Default: def}
}
