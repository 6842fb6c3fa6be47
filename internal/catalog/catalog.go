// Package catalog holds the recipes known to a process. A Catalog is built
// once, usually by Load, and then only read, so lookups are safe from any
// goroutine.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/specialistvlad/recipegrid/internal/ctxlog"
	"github.com/specialistvlad/recipegrid/internal/fsutil"
	"github.com/specialistvlad/recipegrid/internal/recipe"
)

var (
	// ErrDuplicateRecipe is returned when two recipes share a name.
	ErrDuplicateRecipe = errors.New("duplicate recipe name")
	// ErrRecipeNotFound is returned by Get for unknown names.
	ErrRecipeNotFound = errors.New("recipe not found")
)

// Catalog maps recipe names to recipes.
type Catalog struct {
	recipes map[string]*recipe.Recipe
}

// New creates a catalog holding recipes.
func New(recipes ...*recipe.Recipe) (*Catalog, error) {
	c := &Catalog{recipes: make(map[string]*recipe.Recipe, len(recipes))}
	for _, r := range recipes {
		if err := c.Add(r); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Load reads every recipe file found under paths. Each path may be a file
// or a directory.
func Load(ctx context.Context, paths ...string) (*Catalog, error) {
	logger := ctxlog.FromContext(ctx)
	c, _ := New()

	for _, p := range paths {
		files, err := fsutil.FindFiles(p, recipe.Extensions...)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve recipe path '%s': %w", p, err)
		}
		if len(files) == 0 {
			logger.Warn("No recipe files found at the specified path.", "path", p)
			continue
		}
		logger.Debug("Found recipe files to process.", "count", len(files), "path", p)

		for _, f := range files {
			recipes, err := recipe.LoadFile(f)
			if err != nil {
				return nil, err
			}
			for _, r := range recipes {
				if err := c.Add(r); err != nil {
					return nil, err
				}
			}
		}
	}

	logger.Info("Loaded recipes.", "count", c.Len())
	return c, nil
}

// Add registers r. It is meant for building a catalog, not for use while
// other goroutines read it.
func (c *Catalog) Add(r *recipe.Recipe) error {
	if prev, ok := c.recipes[r.Name]; ok {
		return fmt.Errorf("%w: '%s' defined in %s and %s", ErrDuplicateRecipe, r.Name, source(prev), source(r))
	}
	c.recipes[r.Name] = r
	return nil
}

// Get returns the recipe called name.
func (c *Catalog) Get(name string) (*recipe.Recipe, error) {
	r, ok := c.recipes[name]
	if !ok {
		return nil, fmt.Errorf("%w: '%s'", ErrRecipeNotFound, name)
	}
	return r, nil
}

// Len returns the number of recipes.
func (c *Catalog) Len() int { return len(c.recipes) }

// Names returns the recipe names in sorted order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.recipes))
	for n := range c.recipes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// All returns the recipes sorted by name.
func (c *Catalog) All() []*recipe.Recipe {
	out := make([]*recipe.Recipe, 0, len(c.recipes))
	for _, n := range c.Names() {
		out = append(out, c.recipes[n])
	}
	return out
}

func source(r *recipe.Recipe) string {
	if r.Source == "" {
		return "<memory>"
	}
	return r.Source
}
