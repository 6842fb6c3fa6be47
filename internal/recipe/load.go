package recipe

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Extensions lists the file extensions LoadFile understands.
var Extensions = []string{".json", ".hcl"}

// LoadFile reads every recipe defined in path. JSON files hold exactly one
// recipe; HCL files may hold several.
func LoadFile(path string) ([]*Recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading recipe %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		r, err := ParseJSON(data, path)
		if err != nil {
			return nil, err
		}
		return []*Recipe{r}, nil
	case ".hcl":
		return ParseHCL(data, path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}
