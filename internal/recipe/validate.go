package recipe

import (
	"errors"
	"fmt"
)

var errEmptyKey = errors.New("parameter key must not be empty")

func errTuple(n int) error {
	return fmt.Errorf("parameter must be a [key, help, default] array, got %d elements", n)
}

func errKeySyntax(key string) error {
	return fmt.Errorf("parameter key %q must not contain whitespace or '@'", key)
}

func errRequiredDefault(key string) error {
	return fmt.Errorf("required parameter %q cannot declare a default; prefix it with -- to make it optional", key)
}

// validate checks the structural rules the loaders share. Graph rules
// (duplicates, dangling wants, cycles) belong to the dag package.
func validate(r *Recipe) error {
	if r.Name == "" {
		return invalidf(r.Source, "recipe has no name")
	}
	seen := make(map[string]struct{}, len(r.Args))
	for _, p := range r.Args {
		if _, dup := seen[p.Key]; dup {
			return invalidf(r.Source, "recipe %q declares parameter %q twice", r.Name, p.Key)
		}
		seen[p.Key] = struct{}{}
	}
	for i, m := range r.Modules {
		if m.Name == "" {
			return invalidf(r.Source, "recipe %q: modules[%d] has no name", r.Name, i)
		}
	}
	return nil
}
