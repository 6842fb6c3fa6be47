package params

import (
	"fmt"
	"sort"

	"github.com/specialistvlad/recipegrid/internal/recipe"
	"github.com/zclconf/go-cty/cty"
)

// Substitute replaces every placeholder in args with its resolved value.
// Substitution is whole-value: "@key" becomes values[key] with its type
// intact. Literals pass through unchanged. Arguments are visited in name
// order, so the first failing reference reported is always the same one.
func Substitute(args map[string]recipe.Arg, values Values) (map[string]cty.Value, error) {
	out := make(map[string]cty.Value, len(args))
	for _, name := range sortedKeys(args) {
		v, err := substitute(args[name], values)
		if err != nil {
			return nil, err
		}
		out[name] = v
	}
	return out, nil
}

// ForModule is Substitute for a module spec. Errors name the module.
func ForModule(spec *recipe.ModuleSpec, values Values) (map[string]cty.Value, error) {
	out, err := Substitute(spec.Args, values)
	if perr, ok := err.(*Error); ok {
		perr.Module = spec.ID()
	}
	return out, err
}

func substitute(a recipe.Arg, values Values) (cty.Value, error) {
	switch tv := a.(type) {
	case recipe.Literal:
		return tv.Value, nil
	case recipe.Placeholder:
		v, ok := values[tv.Key]
		if !ok {
			return cty.NilVal, &Error{Kind: ErrUnknownParameterReference, Key: tv.Key}
		}
		return v, nil
	case recipe.List:
		if len(tv) == 0 {
			return cty.EmptyTupleVal, nil
		}
		elems := make([]cty.Value, len(tv))
		for i, e := range tv {
			v, err := substitute(e, values)
			if err != nil {
				return cty.NilVal, err
			}
			elems[i] = v
		}
		return cty.TupleVal(elems), nil
	case recipe.Map:
		if len(tv) == 0 {
			return cty.EmptyObjectVal, nil
		}
		attrs := make(map[string]cty.Value, len(tv))
		for _, k := range sortedKeys(tv) {
			v, err := substitute(tv[k], values)
			if err != nil {
				return cty.NilVal, err
			}
			attrs[k] = v
		}
		return cty.ObjectVal(attrs), nil
	default:
		panic(fmt.Sprintf("params: unhandled argument type %T", a))
	}
}

func sortedKeys[M ~map[string]recipe.Arg](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
