// Package print provides the PrintExporter module, which writes upstream
// artifacts to the terminal.
package print

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/specialistvlad/recipegrid/internal/ctxlog"
	"github.com/specialistvlad/recipegrid/internal/module"
	"github.com/specialistvlad/recipegrid/internal/registry"
)

// Name is the module kind recipes refer to.
const Name = "PrintExporter"

// Module implements registry.Registrant for this package. Out defaults to
// os.Stdout.
type Module struct {
	Out io.Writer
}

// Register registers the exporter with the registry.
func (m *Module) Register(r *registry.Registry) {
	out := m.Out
	if out == nil {
		out = os.Stdout
	}
	r.Register(Name, func() module.Module { return &Exporter{out: out} })
}

// Exporter prints every artifact of every dependency.
type Exporter struct {
	out  io.Writer
	keys map[string]bool
}

// SetUp reads the optional "keys" argument restricting which artifact keys
// are printed.
func (e *Exporter) SetUp(ctx context.Context, args module.Args) error {
	keys, err := args.StringList("keys")
	if err != nil {
		return err
	}
	if len(keys) > 0 {
		e.keys = make(map[string]bool, len(keys))
		for _, k := range keys {
			e.keys[k] = true
		}
	}
	return nil
}

// Process writes the artifacts and produces {"printed": n}.
func (e *Exporter) Process(ctx context.Context, in module.Inputs) (module.Artifacts, error) {
	ctxlog.FromContext(ctx).Info("Printing input")

	var b strings.Builder
	printed := 0
	for _, dep := range in.Names() {
		fmt.Fprintf(&b, "── %s\n", dep)
		artifacts := in[dep]
		if len(artifacts) == 0 {
			b.WriteString("      (null)\n")
			continue
		}

		keys := make([]string, 0, len(artifacts))
		for k := range artifacts {
			if e.keys == nil || e.keys[k] {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)

		for _, k := range keys {
			printed++
			switch v := artifacts[k].(type) {
			case []string:
				fmt.Fprintf(&b, "      %s:\n", k)
				for _, s := range v {
					fmt.Fprintf(&b, "        %s\n", s)
				}
			case module.Report:
				fmt.Fprintf(&b, "      %s = %q\n", k, v.Title)
			default:
				fmt.Fprintf(&b, "      %s = %v\n", k, v)
			}
		}
	}

	if _, err := io.WriteString(e.out, b.String()); err != nil {
		return nil, err
	}
	return module.Artifacts{"printed": printed}, nil
}
