package runner

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/specialistvlad/recipegrid/internal/ctxlog"
	"github.com/specialistvlad/recipegrid/internal/module"
	"github.com/specialistvlad/recipegrid/internal/node"
)

// DefaultGrace is how long a handle waits for a module to return once its
// context is done, when Adapter.Grace is zero.
const DefaultGrace = 2 * time.Second

// TimeoutArg is the module argument that overrides Adapter.Timeout. It
// accepts a Go duration string ("30s") or a number of seconds.
const TimeoutArg = "timeout"

var (
	errModuleTimeout = errors.New("module timed out")
	errCancelled     = errors.New("module cancelled")
)

// Adapter starts modules and observes them until they are terminal.
type Adapter struct {
	// Timeout bounds every Process call. Zero means no limit unless the
	// module sets TimeoutArg.
	Timeout time.Duration
	// Grace bounds how long to wait for a module that ignores cancellation.
	Grace time.Duration
}

// Handle tracks one started module.
type Handle struct {
	id      string
	cancel  context.CancelCauseFunc
	done    chan struct{}
	outcome Outcome
}

// ID returns the module instance the handle belongs to.
func (h *Handle) ID() string { return h.id }

// Done is closed once the outcome is available.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Wait blocks until the module is terminal and returns its outcome.
func (h *Handle) Wait() Outcome {
	<-h.done
	return h.outcome
}

// Cancel asks the module to stop. The outcome is Cancelled unless the
// module already finished.
func (h *Handle) Cancel() {
	h.cancel(errCancelled)
}

// Start launches mod.Process for inst and returns immediately.
func (a *Adapter) Start(ctx context.Context, inst *node.Instance, mod module.Module, inputs module.Inputs) *Handle {
	ctx, logger := ctxlog.With(ctx, "module", inst.ID, "kind", inst.Kind)

	runCtx, cancel := context.WithCancelCause(ctx)
	h := &Handle{id: inst.ID, cancel: cancel, done: make(chan struct{})}

	timeout, err := a.timeoutFor(inst.Args)
	if err != nil {
		h.finish(Outcome{Failure: &module.Failure{Kind: module.KindError, Module: inst.ID, Message: err.Error(), Err: err}})
		cancel(nil)
		return h
	}

	modCtx := runCtx
	stopTimer := func() {}
	if timeout > 0 {
		var stop context.CancelFunc
		modCtx, stop = context.WithTimeoutCause(runCtx, timeout, errModuleTimeout)
		stopTimer = stop
	}

	type result struct {
		artifacts module.Artifacts
		err       error
		panicked  any
	}
	results := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("Module panicked.", "panic", r, "stack", string(debug.Stack()))
				results <- result{panicked: r}
			}
		}()
		logger.Info("▶️ Starting module")
		artifacts, err := mod.Process(modCtx, inputs)
		results <- result{artifacts: artifacts, err: err}
	}()

	go func() {
		defer cancel(nil)
		defer stopTimer()

		var res result
		select {
		case res = <-results:
		case <-modCtx.Done():
			select {
			case res = <-results:
			case <-time.After(a.grace()):
				logger.Warn("Module did not return after its context ended.", "grace", a.grace())
				res = result{err: context.Cause(modCtx)}
			}
		}

		out := classify(inst.ID, modCtx, res.artifacts, res.err, res.panicked)
		if out.Succeeded() {
			logger.Info("✅ Finished module", "artifacts", len(out.Artifacts))
		} else {
			logger.Error("❌ Module failed", "kind", out.Failure.Kind, "error", out.Failure.Message)
		}
		h.finish(out)
	}()

	return h
}

func (h *Handle) finish(out Outcome) {
	h.outcome = out
	close(h.done)
}

func (a *Adapter) grace() time.Duration {
	if a.Grace > 0 {
		return a.Grace
	}
	return DefaultGrace
}

func (a *Adapter) timeoutFor(args module.Args) (time.Duration, error) {
	if !args.Has(TimeoutArg) {
		return a.Timeout, nil
	}
	raw, err := args.String(TimeoutArg, "")
	if err != nil {
		return 0, err
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d, nil
	}
	var seconds float64
	if err := args.Decode(TimeoutArg, &seconds); err != nil {
		return 0, fmt.Errorf("invalid %s %q: want a duration such as 30s", TimeoutArg, raw)
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

// classify maps how Process ended to an Outcome. A module that returned
// without error succeeded even if its context ended afterwards.
func classify(id string, ctx context.Context, artifacts module.Artifacts, err error, panicked any) Outcome {
	switch {
	case panicked != nil:
		return Outcome{Failure: &module.Failure{Kind: module.KindPanic, Module: id, Message: fmt.Sprint(panicked)}}
	case err == nil:
		if artifacts == nil {
			artifacts = module.Artifacts{}
		}
		return Outcome{Artifacts: artifacts}
	}

	if ctx.Err() != nil {
		if errors.Is(context.Cause(ctx), errModuleTimeout) {
			return Outcome{Failure: &module.Failure{Kind: module.KindTimeout, Module: id, Message: "module exceeded its timeout", Err: err}}
		}
		return Outcome{Failure: &module.Failure{Kind: module.KindCancelled, Module: id, Message: "module cancelled", Err: context.Cause(ctx)}}
	}

	if f, ok := module.AsFailure(err); ok {
		out := *f
		if out.Module == "" {
			out.Module = id
		}
		return Outcome{Failure: &out}
	}
	return Outcome{Failure: &module.Failure{Kind: module.KindError, Module: id, Message: err.Error(), Err: err}}
}

// SetUp calls mod.SetUp with inst's arguments and converts an error or a
// panic into a SetupFailed failure.
func SetUp(ctx context.Context, inst *node.Instance, mod module.Module) (f *module.Failure) {
	defer func() {
		if r := recover(); r != nil {
			f = &module.Failure{Kind: module.KindSetupFailed, Module: inst.ID, Message: fmt.Sprintf("panic: %v", r)}
		}
	}()
	if err := mod.SetUp(ctx, inst.Args); err != nil {
		return &module.Failure{Kind: module.KindSetupFailed, Module: inst.ID, Message: err.Error(), Err: err}
	}
	return nil
}
