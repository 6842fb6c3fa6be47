// Package filesystem provides the LocalFilesystemCollector module, which
// turns a list of local paths into a list of regular files for downstream
// processors.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/specialistvlad/recipegrid/internal/ctxlog"
	"github.com/specialistvlad/recipegrid/internal/module"
	"github.com/specialistvlad/recipegrid/internal/registry"
)

// Name is the module kind recipes refer to.
const Name = "LocalFilesystemCollector"

// Module implements registry.Registrant for this package.
type Module struct{}

// Register registers the collector with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.Register(Name, func() module.Module { return &Collector{} })
}

// Collector expands its paths into the regular files below them.
type Collector struct {
	paths []string
}

// SetUp reads the "paths" argument, a list or a comma-separated string.
func (c *Collector) SetUp(ctx context.Context, args module.Args) error {
	paths, err := args.StringList("paths")
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return errors.New("paths: at least one path is required")
	}
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("paths: %w", err)
		}
		c.paths = append(c.paths, abs)
	}
	return nil
}

// Process produces {"files": [...]} with absolute paths in walk order.
// Missing paths are skipped; it fails only when nothing is found.
func (c *Collector) Process(ctx context.Context, _ module.Inputs) (module.Artifacts, error) {
	logger := ctxlog.FromContext(ctx)

	var files []string
	for _, root := range c.paths {
		if _, err := os.Stat(root); err != nil {
			logger.Warn("Skipping unreadable path.", "path", root, "error", err)
			continue
		}
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if d.Type().IsRegular() {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", root, err)
		}
	}

	if len(files) == 0 {
		return nil, module.Failf(module.KindError, "no files found under %v", c.paths)
	}
	logger.Info("Collected files.", "count", len(files))
	return module.Artifacts{"files": files}, nil
}
