package params

import (
	"sort"

	"github.com/specialistvlad/recipegrid/internal/recipe"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// Values is the resolved parameter mapping of one run.
type Values map[string]cty.Value

// Keys returns the resolved keys in sorted order.
func (v Values) Keys() []string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Strings wraps caller-provided strings, such as command-line values, as
// cty strings suitable for Resolve.
func Strings(in map[string]string) map[string]cty.Value {
	out := make(map[string]cty.Value, len(in))
	for k, v := range in {
		out[k] = cty.StringVal(v)
	}
	return out
}

// Resolve combines the declarations of a recipe with the supplied values.
//
// Required keys must be supplied. Optional keys fall back to their declared
// default, which may be null. A parameter whose default is a bool, number or
// string is typed by that default and supplied values are converted to it.
func Resolve(decls []*recipe.ParameterDeclaration, supplied map[string]cty.Value) (Values, error) {
	declared := make(map[string]*recipe.ParameterDeclaration, len(decls))
	for _, d := range decls {
		declared[d.Key] = d
	}

	keys := make([]string, 0, len(supplied))
	for k := range supplied {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, ok := declared[k]; !ok {
			return nil, &Error{Kind: ErrUndeclaredParameter, Key: k}
		}
	}

	out := make(Values, len(decls))
	for _, d := range decls {
		v, ok := supplied[d.Key]
		if !ok || v.IsNull() {
			if !d.Optional {
				return nil, &Error{Kind: ErrMissingRequiredParameter, Key: d.Key, Msg: d.Help}
			}
			out[d.Key] = d.Default
			continue
		}

		coerced, err := coerce(d, v)
		if err != nil {
			return nil, err
		}
		out[d.Key] = coerced
	}
	return out, nil
}

func coerce(d *recipe.ParameterDeclaration, v cty.Value) (cty.Value, error) {
	if d.Default.IsNull() {
		return v, nil
	}
	want := d.Default.Type()
	if !want.IsPrimitiveType() || v.Type().Equals(want) {
		return v, nil
	}
	converted, err := convert.Convert(v, want)
	if err != nil {
		return cty.NilVal, &Error{
			Kind: ErrTypeMismatch,
			Key:  d.Key,
			Msg:  "expected " + want.FriendlyName() + ", got " + describe(v),
		}
	}
	return converted, nil
}

func describe(v cty.Value) string {
	if v.Type() == cty.String && v.IsKnown() {
		return "\"" + v.AsString() + "\""
	}
	return v.Type().FriendlyName()
}
