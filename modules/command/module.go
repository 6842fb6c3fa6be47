// Package command provides the CommandProcessor module, which runs an
// external tool over the files collected upstream.
package command

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"

	"github.com/specialistvlad/recipegrid/internal/ctxlog"
	"github.com/specialistvlad/recipegrid/internal/module"
	"github.com/specialistvlad/recipegrid/internal/registry"
)

// Name is the module kind recipes refer to.
const Name = "CommandProcessor"

// Module implements registry.Registrant for this package.
type Module struct{}

// Register registers the processor with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.Register(Name, func() module.Module { return &Processor{} })
}

// Processor runs "command" with "args" followed by every upstream file.
type Processor struct {
	path string
	args []string
}

// SetUp resolves the command on PATH so a missing tool fails before the run.
func (p *Processor) SetUp(ctx context.Context, args module.Args) error {
	name, err := args.String("command", "")
	if err != nil {
		return err
	}
	if name == "" {
		return errors.New("command: a command is required")
	}
	if p.path, err = exec.LookPath(name); err != nil {
		return err
	}
	if err := args.Decode("args", &p.args); err != nil {
		return err
	}
	return nil
}

// Process produces {"stdout": string, "exit_code": int}. A non-zero exit is
// a failure carrying the command's stderr.
func (p *Processor) Process(ctx context.Context, in module.Inputs) (module.Artifacts, error) {
	logger := ctxlog.FromContext(ctx)

	argv := append(append([]string{}, p.args...), in.CollectStrings("files")...)
	cmd := exec.CommandContext(ctx, p.path, argv...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.Info("Running command.", "command", p.path, "args", len(argv))
	err := cmd.Run()

	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr) && ctx.Err() == nil:
		return nil, module.Failf(module.KindError, "%s exited with status %d: %s",
			p.path, exitErr.ExitCode(), strings.TrimSpace(stderr.String()))
	default:
		return nil, err
	}

	return module.Artifacts{
		"stdout":    stdout.String(),
		"exit_code": cmd.ProcessState.ExitCode(),
	}, nil
}
