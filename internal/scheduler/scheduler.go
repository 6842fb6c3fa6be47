package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/specialistvlad/recipegrid/internal/ctxlog"
	"github.com/specialistvlad/recipegrid/internal/dag"
	"github.com/specialistvlad/recipegrid/internal/metrics"
	"github.com/specialistvlad/recipegrid/internal/module"
	"github.com/specialistvlad/recipegrid/internal/node"
	"github.com/specialistvlad/recipegrid/internal/nodestore"
	"github.com/specialistvlad/recipegrid/internal/runner"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"
)

// ErrStalled is returned when nodes remain but nothing is running or ready.
// It indicates a scheduler bug.
var ErrStalled = errors.New("scheduler stalled")

// ErrStatusDiverged is returned when the store's recorded state of a module
// disagrees with the module's own state at the end of a run.
var ErrStatusDiverged = errors.New("recorded module status diverged")

// Options tune a run.
type Options struct {
	// MaxParallel caps concurrently running modules. Zero means no cap.
	MaxParallel int
	// Adapter starts modules. Nil means a zero Adapter.
	Adapter *runner.Adapter
	// Metrics may be nil.
	Metrics *metrics.Metrics
	// Tracer defaults to otel.Tracer("recipegrid").
	Tracer trace.Tracer
	// RunID defaults to a random UUID.
	RunID string
}

// Task pairs a module instance with the module that implements it.
type Task struct {
	Instance *node.Instance
	Module   module.Module
}

// Scheduler executes one run. It is not reusable.
type Scheduler struct {
	graph *dag.Graph
	tasks map[string]*Task
	store nodestore.Store
	opts  Options
	sem   *semaphore.Weighted
}

// New creates a scheduler. Every graph node must have a task.
func New(g *dag.Graph, tasks map[string]*Task, store nodestore.Store, opts Options) (*Scheduler, error) {
	for _, id := range g.Nodes() {
		if _, ok := tasks[id]; !ok {
			return nil, fmt.Errorf("no task for module %q", id)
		}
	}
	if opts.Adapter == nil {
		opts.Adapter = &runner.Adapter{}
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer("recipegrid")
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	s := &Scheduler{graph: g, tasks: tasks, store: store, opts: opts}
	if opts.MaxParallel > 0 {
		s.sem = semaphore.NewWeighted(int64(opts.MaxParallel))
	}
	return s, nil
}

type completion struct {
	id      string
	outcome runner.Outcome
}

// run is the mutable state of the scheduler loop. It is only touched by
// the goroutine executing Run.
type run struct {
	*Scheduler
	ctx         context.Context
	ready       []string
	inflight    map[string]*runner.Handle
	spans       map[string]trace.Span
	completions chan completion
	remaining   int
	aborted     bool
	fatal       error
}

// Run executes the graph and returns the result. The error is non-nil only
// for internal invariant violations; module failures are reported in the
// Result.
func (s *Scheduler) Run(ctx context.Context, recipeName string) (*Result, error) {
	ctx, logger := ctxlog.With(ctx, "run_id", s.opts.RunID, "recipe", recipeName)

	ctx, runSpan := s.opts.Tracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.String("recipe", recipeName),
		attribute.String("run_id", s.opts.RunID),
		attribute.Int("modules", s.graph.Len()),
	))
	defer runSpan.End()

	result := &Result{RunID: s.opts.RunID, Recipe: recipeName, Started: time.Now()}
	logger.Info("🚀 Starting pipeline run", "modules", s.graph.Len())

	r := &run{
		Scheduler:   s,
		ctx:         ctx,
		inflight:    make(map[string]*runner.Handle),
		spans:       make(map[string]trace.Span),
		completions: make(chan completion, s.graph.Len()),
		remaining:   s.graph.Len(),
	}

	for _, id := range s.graph.Roots() {
		r.markReady(id)
	}

	done := ctx.Done()
	for r.remaining > 0 {
		if ctx.Err() != nil && !r.aborted {
			r.abort("run cancelled")
		}
		r.launchReady()

		if len(r.inflight) == 0 {
			if r.remaining > 0 {
				r.fail(fmt.Errorf("%w: %d modules neither running nor ready", ErrStalled, r.remaining))
			}
			break
		}

		select {
		case c := <-r.completions:
			r.complete(c)
		case <-done:
			done = nil
			r.abort("run cancelled")
		}
	}

	result.Finished = time.Now()
	result.Modules = r.reports()
	result.Verdict = r.verdict(result)

	runSpan.SetAttributes(attribute.String("verdict", string(result.Verdict)))
	if result.Verdict != Completed {
		runSpan.SetStatus(codes.Error, string(result.Verdict))
	}
	s.opts.Metrics.RunFinished(string(result.Verdict))

	logger.Info("🏁 Pipeline run finished",
		"verdict", result.Verdict,
		"succeeded", len(result.Succeeded()),
		"failed", len(result.Failed()),
		"duration", result.Finished.Sub(result.Started))

	return result, r.fatal
}

func (r *run) verdict(res *Result) Verdict {
	switch {
	case r.aborted:
		return Aborted
	case len(res.Failed()) > 0:
		return PartiallyFailed
	default:
		return Completed
	}
}

// markReady moves a Pending instance to Ready and queues it.
func (r *run) markReady(id string) {
	inst := r.tasks[id].Instance
	if err := inst.Transition(node.Pending, node.Ready); err != nil {
		r.fail(err)
		return
	}
	r.setStatus(inst)
	r.ready = append(r.ready, id)
}

// launchReady starts queued instances while the parallelism bound allows.
func (r *run) launchReady() {
	for len(r.ready) > 0 && !r.aborted {
		if r.sem != nil && !r.sem.TryAcquire(1) {
			return
		}
		id := r.ready[0]
		r.ready = r.ready[1:]
		r.launch(id)
	}
}

func (r *run) launch(id string) {
	logger := ctxlog.FromContext(r.ctx)
	task := r.tasks[id]
	inst := task.Instance

	inputs, err := r.inputs(id)
	if err != nil {
		r.release()
		r.fail(err)
		return
	}

	if err := inst.Transition(node.Ready, node.Running); err != nil {
		r.release()
		r.fail(err)
		return
	}
	r.setStatus(inst)
	r.opts.Metrics.ModuleStarted()

	ctx, span := r.opts.Tracer.Start(r.ctx, "module.process", trace.WithAttributes(
		attribute.String("module", id),
		attribute.String("kind", inst.Kind),
	))
	r.spans[id] = span

	logger.Debug("Launching module.", "module", id, "inputs", inputs.Names())
	h := r.opts.Adapter.Start(ctx, inst, task.Module, inputs)
	r.inflight[id] = h

	go func() {
		out := h.Wait()
		r.completions <- completion{id: id, outcome: out}
	}()
}

// inputs gathers the artifacts of every dependency of id.
func (r *run) inputs(id string) (module.Inputs, error) {
	deps, err := r.graph.Dependencies(id)
	if err != nil {
		return nil, err
	}
	inputs := make(module.Inputs, len(deps))
	for _, dep := range deps {
		a, err := r.store.Get(r.ctx, dep)
		if err != nil {
			return nil, err
		}
		inputs[dep] = a
	}
	return inputs, nil
}

func (r *run) release() {
	if r.sem != nil {
		r.sem.Release(1)
	}
}

func (r *run) complete(c completion) {
	logger := ctxlog.FromContext(r.ctx)
	delete(r.inflight, c.id)
	r.release()

	inst := r.tasks[c.id].Instance
	span := r.spans[c.id]
	delete(r.spans, c.id)

	if c.outcome.Succeeded() {
		// Artifacts are published before the state so a dependent that sees
		// Succeeded always finds them.
		err := r.store.Put(r.ctx, c.id, c.outcome.Artifacts)
		if err == nil {
			err = inst.Transition(node.Running, node.Succeeded)
		}
		if err != nil {
			c.outcome = runner.Outcome{Failure: &module.Failure{Kind: module.KindError, Module: c.id, Message: err.Error(), Err: err}}
			r.fail(err)
		}
	}

	if !c.outcome.Succeeded() {
		inst.Fail(c.outcome.Failure)
	}
	r.remaining--
	r.setStatus(inst)
	r.endSpan(span, inst)
	r.opts.Metrics.ModuleFinished(inst.Kind, inst.State().String(), failureKind(inst), inst.Duration())

	if inst.State() == node.Failed {
		r.cascade(c.id)
		return
	}

	dependents, _ := r.graph.Dependents(c.id)
	for _, depID := range dependents {
		dep := r.tasks[depID].Instance
		if dep.DecrementDepCount() == 0 && dep.State() == node.Pending {
			logger.Debug("Unlocking dependent module.", "module", depID, "dependency", c.id)
			r.markReady(depID)
		}
	}
}

// cascade fails every transitive dependent of id without starting it.
func (r *run) cascade(id string) {
	logger := ctxlog.FromContext(r.ctx)
	descendants, _ := r.graph.Descendants(id)
	for _, d := range descendants {
		inst := r.tasks[d].Instance
		f := &module.Failure{
			Kind:    module.KindUpstreamFailed,
			Message: fmt.Sprintf("skipped due to upstream failure of '%s'", id),
		}
		if inst.Fail(f) {
			logger.Warn("Skipping dependent module due to upstream failure.", "module", d, "dependency", id)
			r.remaining--
			r.setStatus(inst)
			r.opts.Metrics.ModuleSkipped(inst.Kind, string(module.KindUpstreamFailed))
		}
	}
}

// abort stops launching, fails everything not yet running as Cancelled and
// asks in-flight modules to stop. Their completions are still drained.
func (r *run) abort(reason string) {
	if r.aborted {
		return
	}
	r.aborted = true
	logger := ctxlog.FromContext(r.ctx)
	logger.Warn("Aborting pipeline run.", "reason", reason, "inflight", len(r.inflight))

	r.ready = nil
	for _, id := range r.graph.Nodes() {
		inst := r.tasks[id].Instance
		if s := inst.State(); s != node.Pending && s != node.Ready {
			continue
		}
		if inst.Fail(&module.Failure{Kind: module.KindCancelled, Message: reason}) {
			r.remaining--
			r.setStatus(inst)
			r.opts.Metrics.ModuleSkipped(inst.Kind, string(module.KindCancelled))
		}
	}
	for _, h := range r.inflight {
		h.Cancel()
	}
}

// fail records an internal error and aborts the run.
func (r *run) fail(err error) {
	r.recordFatal(err)
	r.abort("internal error: " + err.Error())
}

func (r *run) setStatus(inst *node.Instance) {
	if err := r.store.SetStatus(r.ctx, inst.ID, inst.State()); err != nil {
		ctxlog.FromContext(r.ctx).Error("Failed to record module status.", "module", inst.ID, "error", err)
	}
}

func (r *run) endSpan(span trace.Span, inst *node.Instance) {
	if span == nil {
		return
	}
	span.SetAttributes(attribute.String("state", inst.State().String()))
	if f := inst.Failure(); f != nil {
		span.SetAttributes(attribute.String("failure.kind", string(f.Kind)))
		span.SetStatus(codes.Error, f.Message)
	}
	span.End()
}

func failureKind(inst *node.Instance) string {
	if f := inst.Failure(); f != nil {
		return string(f.Kind)
	}
	return ""
}

// reports builds the per-module reports in recipe order. States are read
// back from the store; one that disagrees with the instance is recorded as
// an internal error.
func (r *run) reports() []ModuleReport {
	snapshot := r.store.Snapshot(r.ctx)
	ids := r.graph.Nodes()
	out := make([]ModuleReport, 0, len(ids))
	for _, id := range ids {
		inst := r.tasks[id].Instance
		state, err := r.store.GetStatus(r.ctx, id)
		if err != nil {
			r.recordFatal(fmt.Errorf("reading status of %q: %w", id, err))
			state = inst.State()
		} else if state != inst.State() {
			r.recordFatal(fmt.Errorf("%w: module %q recorded %s, instance is %s", ErrStatusDiverged, id, state, inst.State()))
		}
		rep := ModuleReport{
			ID:       id,
			Kind:     inst.Kind,
			State:    state,
			Failure:  inst.Failure(),
			Started:  inst.Started(),
			Finished: inst.Finished(),
		}
		if rep.State == node.Succeeded {
			rep.Artifacts = snapshot[id]
		}
		out = append(out, rep)
	}
	return out
}

func (r *run) recordFatal(err error) {
	ctxlog.FromContext(r.ctx).Error("Internal scheduler error.", "error", err)
	if r.fatal == nil {
		r.fatal = err
	}
}
