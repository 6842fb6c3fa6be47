package recipe

import (
	"regexp"
	"sort"

	"github.com/zclconf/go-cty/cty"
)

// Arg is the literal/placeholder union a module argument value belongs to.
// The concrete types are Literal, Placeholder, List and Map.
type Arg interface {
	isArg()
}

// Literal is a value passed to the module unchanged.
type Literal struct {
	Value cty.Value
}

// Placeholder is an "@key" reference to a recipe parameter.
type Placeholder struct {
	Key string
}

// List is a collection literal with at least one placeholder among its elements.
type List []Arg

// Map is an object literal with at least one placeholder among its attributes.
type Map map[string]Arg

func (Literal) isArg()     {}
func (Placeholder) isArg() {}
func (List) isArg()        {}
func (Map) isArg()         {}

// keyPattern is the grammar shared by parameter keys and the placeholders
// referencing them, so every declared key can be referenced and every
// "@key" string is checked against the declarations.
const keyPattern = `[^\s@]+`

var (
	keyRe         = regexp.MustCompile(`^` + keyPattern + `$`)
	placeholderRe = regexp.MustCompile(`^@(` + keyPattern + `)$`)
)

// ValidKey reports whether key can name a recipe parameter.
func ValidKey(key string) bool {
	return keyRe.MatchString(key)
}

// ParsePlaceholder reports whether s is exactly of the form "@key".
func ParsePlaceholder(s string) (string, bool) {
	m := placeholderRe.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// ArgFromValue classifies a manifest value. Collections are only split into
// List or Map when they hold a placeholder somewhere below them; otherwise
// they stay a single Literal so their original type survives substitution.
func ArgFromValue(v cty.Value) Arg {
	if v.IsNull() || !v.IsKnown() || !containsPlaceholder(v) {
		return Literal{Value: v}
	}
	ty := v.Type()
	switch {
	case ty == cty.String:
		key, _ := ParsePlaceholder(v.AsString())
		return Placeholder{Key: key}
	case ty.IsTupleType() || ty.IsListType() || ty.IsSetType():
		out := make(List, 0, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			out = append(out, ArgFromValue(ev))
		}
		return out
	case ty.IsObjectType() || ty.IsMapType():
		out := make(Map, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			k, ev := it.Element()
			out[k.AsString()] = ArgFromValue(ev)
		}
		return out
	}
	return Literal{Value: v}
}

func containsPlaceholder(v cty.Value) bool {
	if v.IsNull() || !v.IsKnown() {
		return false
	}
	ty := v.Type()
	switch {
	case ty == cty.String:
		_, ok := ParsePlaceholder(v.AsString())
		return ok
	case ty.IsCollectionType() || ty.IsTupleType() || ty.IsObjectType():
		for it := v.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			if containsPlaceholder(ev) {
				return true
			}
		}
	}
	return false
}

// References returns every parameter key referenced by a, sorted and unique.
func References(a Arg) []string {
	seen := make(map[string]struct{})
	collectRefs(a, seen)
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func collectRefs(a Arg, seen map[string]struct{}) {
	switch tv := a.(type) {
	case Placeholder:
		seen[tv.Key] = struct{}{}
	case List:
		for _, e := range tv {
			collectRefs(e, seen)
		}
	case Map:
		for _, e := range tv {
			collectRefs(e, seen)
		}
	}
}
