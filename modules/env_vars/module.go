// Package env_vars provides the EnvCollector module, which snapshots the
// process environment.
package env_vars

import (
	"context"
	"os"
	"strings"

	"github.com/specialistvlad/recipegrid/internal/module"
	"github.com/specialistvlad/recipegrid/internal/registry"
)

// Name is the module kind recipes refer to.
const Name = "EnvCollector"

// Module implements registry.Registrant for this package.
type Module struct{}

// Register registers the collector with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.Register(Name, func() module.Module { return &Collector{} })
}

// Collector captures environment variables, optionally filtered by prefix.
type Collector struct {
	prefix string
}

// SetUp reads the optional "prefix" argument.
func (c *Collector) SetUp(ctx context.Context, args module.Args) error {
	var err error
	c.prefix, err = args.String("prefix", "")
	return err
}

// Process produces {"env": map[string]string}.
func (c *Collector) Process(ctx context.Context, _ module.Inputs) (module.Artifacts, error) {
	env := make(map[string]string)
	for _, e := range os.Environ() {
		pair := strings.SplitN(e, "=", 2)
		if len(pair) == 2 && strings.HasPrefix(pair[0], c.prefix) {
			env[pair[0]] = pair[1]
		}
	}
	return module.Artifacts{"env": env}, nil
}
