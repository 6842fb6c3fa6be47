package module

import (
	"fmt"
	"sort"
	"strings"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Args is a module's resolved argument map.
type Args map[string]cty.Value

// Has reports whether key is present and non-null.
func (a Args) Has(key string) bool {
	v, ok := a[key]
	return ok && !v.IsNull()
}

// Keys returns the argument names in sorted order.
func (a Args) Keys() []string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Decode converts the argument named key into target, which must be a
// pointer. Missing or null arguments leave target untouched.
func (a Args) Decode(key string, target any) error {
	v, ok := a[key]
	if !ok || v.IsNull() {
		return nil
	}
	ty, err := gocty.ImpliedType(target)
	if err != nil {
		return fmt.Errorf("argument %q: %w", key, err)
	}
	converted, err := convert.Convert(v, ty)
	if err != nil {
		return fmt.Errorf("argument %q: %w", key, err)
	}
	if err := gocty.FromCtyValue(converted, target); err != nil {
		return fmt.Errorf("argument %q: %w", key, err)
	}
	return nil
}

// String returns the argument as a string, or def when it is absent.
func (a Args) String(key, def string) (string, error) {
	out := def
	if err := a.Decode(key, &out); err != nil {
		return "", err
	}
	return out, nil
}

// Bool returns the argument as a bool, or def when it is absent.
func (a Args) Bool(key string, def bool) (bool, error) {
	out := def
	if err := a.Decode(key, &out); err != nil {
		return false, err
	}
	return out, nil
}

// StringList accepts either a list of strings or a single comma-separated
// string, the form recipe parameters usually arrive in from a command line.
func (a Args) StringList(key string) ([]string, error) {
	v, ok := a[key]
	if !ok || v.IsNull() {
		return nil, nil
	}
	if v.Type() == cty.String {
		var out []string
		for _, part := range strings.Split(v.AsString(), ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out, nil
	}
	var out []string
	if err := a.Decode(key, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Native returns the argument as plain Go values: string, float64, bool,
// map[string]any or []any. Missing or null arguments yield nil.
func (a Args) Native(key string) (any, error) {
	v, ok := a[key]
	if !ok {
		return nil, nil
	}
	out, err := native(v)
	if err != nil {
		return nil, fmt.Errorf("argument %q: %w", key, err)
	}
	return out, nil
}

func native(val cty.Value) (any, error) {
	if !val.IsKnown() || val.IsNull() {
		return nil, nil
	}
	ty := val.Type()
	switch {
	case ty == cty.String:
		return val.AsString(), nil
	case ty == cty.Number:
		f, _ := val.AsBigFloat().Float64()
		return f, nil
	case ty == cty.Bool:
		return val.True(), nil
	case ty.IsObjectType() || ty.IsMapType():
		out := make(map[string]any)
		for it := val.ElementIterator(); it.Next(); {
			k, v := it.Element()
			nv, err := native(v)
			if err != nil {
				return nil, err
			}
			out[k.AsString()] = nv
		}
		return out, nil
	case ty.IsTupleType() || ty.IsListType() || ty.IsSetType():
		out := make([]any, 0, val.LengthInt())
		for it := val.ElementIterator(); it.Next(); {
			_, v := it.Element()
			nv, err := native(v)
			if err != nil {
				return nil, err
			}
			out = append(out, nv)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported type %s", ty.FriendlyName())
	}
}
