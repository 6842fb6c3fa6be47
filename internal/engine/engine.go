package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/specialistvlad/recipegrid/internal/catalog"
	"github.com/specialistvlad/recipegrid/internal/ctxlog"
	"github.com/specialistvlad/recipegrid/internal/dag"
	"github.com/specialistvlad/recipegrid/internal/inmemorystore"
	"github.com/specialistvlad/recipegrid/internal/metrics"
	"github.com/specialistvlad/recipegrid/internal/module"
	"github.com/specialistvlad/recipegrid/internal/node"
	"github.com/specialistvlad/recipegrid/internal/nodestore"
	"github.com/specialistvlad/recipegrid/internal/params"
	"github.com/specialistvlad/recipegrid/internal/recipe"
	"github.com/specialistvlad/recipegrid/internal/registry"
	"github.com/specialistvlad/recipegrid/internal/runner"
	"github.com/specialistvlad/recipegrid/internal/scheduler"
	"github.com/zclconf/go-cty/cty"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrSetupFailed is returned by Prepare when one or more modules reject
	// their arguments.
	ErrSetupFailed = errors.New("module setup failed")
	// ErrPlanExecuted is returned when a plan is executed a second time.
	ErrPlanExecuted = errors.New("plan already executed")
)

// SetupError lists every module whose SetUp failed, in recipe order.
type SetupError struct {
	Failures []*module.Failure
}

func (e *SetupError) Error() string {
	msgs := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		msgs[i] = f.Error()
	}
	return fmt.Sprintf("%s: %s", ErrSetupFailed, strings.Join(msgs, "; "))
}

func (e *SetupError) Unwrap() error { return ErrSetupFailed }

// Options configures how plans execute.
type Options struct {
	// MaxParallel caps concurrently running modules. Zero means no cap.
	MaxParallel int
	// ModuleTimeout is the default per-module timeout. Zero means none.
	ModuleTimeout time.Duration
	// Grace bounds the wait for a module that ignores cancellation.
	Grace   time.Duration
	Metrics *metrics.Metrics
	Tracer  trace.Tracer
	// NewStore creates the artifact store of each run. Defaults to an
	// in-memory store.
	NewStore func() nodestore.Store
}

// Engine prepares and runs recipes from a catalog.
type Engine struct {
	catalog  *catalog.Catalog
	registry *registry.Registry
	opts     Options
}

// New creates an engine. The catalog and registry are shared, read-only,
// by every plan the engine prepares.
func New(c *catalog.Catalog, r *registry.Registry, opts Options) *Engine {
	if opts.NewStore == nil {
		opts.NewStore = func() nodestore.Store { return inmemorystore.New() }
	}
	return &Engine{catalog: c, registry: r, opts: opts}
}

// Catalog returns the engine's recipe catalog.
func (e *Engine) Catalog() *catalog.Catalog { return e.catalog }

// Plan is a recipe bound to parameters whose modules are set up and ready
// to run. A plan runs at most once.
type Plan struct {
	Recipe *recipe.Recipe
	Params params.Values
	Graph  *dag.Graph

	engine   *Engine
	tasks    map[string]*scheduler.Task
	executed atomic.Bool
}

// Run prepares and executes the named recipe.
func (e *Engine) Run(ctx context.Context, name string, supplied map[string]cty.Value) (*scheduler.Result, error) {
	plan, err := e.Prepare(ctx, name, supplied)
	if err != nil {
		return nil, err
	}
	return plan.Execute(ctx)
}

// Prepare looks up the named recipe and prepares it.
func (e *Engine) Prepare(ctx context.Context, name string, supplied map[string]cty.Value) (*Plan, error) {
	r, err := e.catalog.Get(name)
	if err != nil {
		return nil, err
	}
	return e.PrepareRecipe(ctx, r, supplied)
}

// PrepareRecipe binds r to the supplied parameters, builds its graph and
// sets up every module. r is never modified.
func (e *Engine) PrepareRecipe(ctx context.Context, r *recipe.Recipe, supplied map[string]cty.Value) (*Plan, error) {
	logger := ctxlog.FromContext(ctx).With("recipe", r.Name)
	logger.Debug("Preparing recipe.", "supplied", len(supplied))

	values, err := params.Resolve(r.Args, supplied)
	if err != nil {
		return nil, fmt.Errorf("resolving parameters of recipe '%s': %w", r.Name, err)
	}

	g, err := dag.Build(r.Modules)
	if err != nil {
		return nil, fmt.Errorf("building graph of recipe '%s': %w", r.Name, err)
	}
	logger.Debug("Dependency graph built.", "node_count", g.Len())

	tasks := make(map[string]*scheduler.Task, len(r.Modules))
	for _, spec := range r.Modules {
		task, err := e.bind(g, spec, values)
		if err != nil {
			return nil, fmt.Errorf("recipe '%s': %w", r.Name, err)
		}
		tasks[spec.ID()] = task
	}

	if err := e.setUp(ctx, g, tasks); err != nil {
		return nil, fmt.Errorf("recipe '%s': %w", r.Name, err)
	}

	logger.Debug("Recipe prepared.", "modules", g.Len(), "params", values.Keys())
	return &Plan{Recipe: r, Params: values, Graph: g, engine: e, tasks: tasks}, nil
}

// bind substitutes the parameters into spec's arguments and instantiates
// its module.
func (e *Engine) bind(g *dag.Graph, spec *recipe.ModuleSpec, values params.Values) (*scheduler.Task, error) {
	args, err := params.ForModule(spec, values)
	if err != nil {
		return nil, err
	}
	mod, err := e.registry.New(spec.Name)
	if err != nil {
		return nil, fmt.Errorf("module '%s': %w", spec.ID(), err)
	}
	deg, err := g.InDegree(spec.ID())
	if err != nil {
		return nil, err
	}
	return &scheduler.Task{
		Instance: node.New(spec.ID(), spec.Name, module.Args(args), deg),
		Module:   mod,
	}, nil
}

// setUp calls SetUp on every module concurrently and reports all failures.
func (e *Engine) setUp(ctx context.Context, g *dag.Graph, tasks map[string]*scheduler.Task) error {
	var (
		mu       sync.Mutex
		failures []*module.Failure
	)

	eg, egCtx := errgroup.WithContext(ctx)
	if e.opts.MaxParallel > 0 {
		eg.SetLimit(e.opts.MaxParallel)
	}
	for _, id := range g.Nodes() {
		task := tasks[id]
		eg.Go(func() error {
			// Failures are collected, never returned: a returned error would
			// cancel egCtx and the remaining setups with it.
			if f := runner.SetUp(egCtx, task.Instance, task.Module); f != nil {
				ctxlog.FromContext(ctx).Error("Module setup failed.", "module", id, "error", f.Message)
				mu.Lock()
				failures = append(failures, f)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = eg.Wait() // always nil

	if len(failures) == 0 {
		return nil
	}
	order := make(map[string]int, g.Len())
	for i, id := range g.Nodes() {
		order[id] = i
	}
	sort.Slice(failures, func(i, j int) bool { return order[failures[i].Module] < order[failures[j].Module] })
	return &SetupError{Failures: failures}
}

// Execute runs the plan to completion. Module failures are reported in the
// result; the error is reserved for internal invariant violations.
func (p *Plan) Execute(ctx context.Context) (*scheduler.Result, error) {
	if !p.executed.CompareAndSwap(false, true) {
		return nil, ErrPlanExecuted
	}
	opts := p.engine.opts
	s, err := scheduler.New(p.Graph, p.tasks, opts.NewStore(), scheduler.Options{
		MaxParallel: opts.MaxParallel,
		Adapter:     &runner.Adapter{Timeout: opts.ModuleTimeout, Grace: opts.Grace},
		Metrics:     opts.Metrics,
		Tracer:      opts.Tracer,
	})
	if err != nil {
		return nil, err
	}
	return s.Run(ctx, p.Recipe.Name)
}

// Args returns the substituted arguments of module id.
func (p *Plan) Args(id string) (module.Args, bool) {
	t, ok := p.tasks[id]
	if !ok {
		return nil, false
	}
	return t.Instance.Args, true
}
