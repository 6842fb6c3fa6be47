package recipe

import (
	"errors"
	"fmt"
)

// ErrInvalidRecipe is returned for manifests that do not match the recipe schema.
var ErrInvalidRecipe = errors.New("invalid recipe")

// ErrUnsupportedFormat is returned by LoadFile for unknown file extensions.
var ErrUnsupportedFormat = errors.New("unsupported recipe format")

func invalidf(source, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if source != "" {
		return fmt.Errorf("%w: %s: %s", ErrInvalidRecipe, source, msg)
	}
	return fmt.Errorf("%w: %s", ErrInvalidRecipe, msg)
}
