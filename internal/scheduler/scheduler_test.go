package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/specialistvlad/recipegrid/internal/dag"
	"github.com/specialistvlad/recipegrid/internal/inmemorystore"
	"github.com/specialistvlad/recipegrid/internal/metrics"
	"github.com/specialistvlad/recipegrid/internal/module"
	"github.com/specialistvlad/recipegrid/internal/node"
	"github.com/specialistvlad/recipegrid/internal/nodestore"
	"github.com/specialistvlad/recipegrid/internal/recipe"
	"github.com/specialistvlad/recipegrid/internal/registry"
	"github.com/specialistvlad/recipegrid/internal/runner"
	"github.com/specialistvlad/recipegrid/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type fixture struct {
	sched *Scheduler
	rec   *testutil.Recorder
	store *inmemorystore.Store
}

func newFixture(t *testing.T, opts Options, scripts map[string]testutil.Script, specs ...*recipe.ModuleSpec) *fixture {
	t.Helper()

	g, err := dag.Build(specs)
	require.NoError(t, err)

	fakes := testutil.NewFakeModules(scripts)
	reg := registry.New(fakes)

	tasks := make(map[string]*Task, len(specs))
	for _, s := range specs {
		deg, err := g.InDegree(s.ID())
		require.NoError(t, err)
		mod, err := reg.New(s.Name)
		require.NoError(t, err)
		tasks[s.ID()] = &Task{Instance: node.New(s.ID(), s.Name, nil, deg), Module: mod}
	}

	store := inmemorystore.New()
	sched, err := New(g, tasks, store, opts)
	require.NoError(t, err)
	return &fixture{sched: sched, rec: fakes.Recorder, store: store}
}

func succeed(artifacts module.Artifacts) testutil.Script {
	return testutil.Script{Artifacts: artifacts}
}

func TestRun_ArtifactsFlowToDependent(t *testing.T) {
	ctx, logs := testutil.Context(t)
	files := module.Artifacts{"files": []string{"/evidence/a.log", "/evidence/b.log"}}

	f := newFixture(t, Options{}, map[string]testutil.Script{
		"X": succeed(files),
		"Y": succeed(module.Artifacts{"done": true}),
	}, testutil.Spec("X"), testutil.Spec("Y", "X"))

	res, err := f.sched.Run(ctx, "scenario")
	require.NoError(t, err)

	assert.Equal(t, Completed, res.Verdict)
	assert.Equal(t, "scenario", res.Recipe)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, []string{"X", "Y"}, res.Succeeded())
	assert.Empty(t, res.Failed())

	in, ok := f.rec.Inputs("Y")
	require.True(t, ok)
	assert.Equal(t, module.Inputs{"X": files}, in)

	x, _ := res.Module("X")
	assert.Equal(t, files, x.Artifacts)
	assert.Equal(t, node.Succeeded, x.State)

	status, err := f.store.GetStatus(ctx, "Y")
	require.NoError(t, err)
	assert.Equal(t, node.Succeeded, status)
	assert.Contains(t, logs.String(), "Pipeline run finished")
}

func TestRun_DependencyOrdering(t *testing.T) {
	ctx, _ := testutil.Context(t)
	f := newFixture(t, Options{}, map[string]testutil.Script{
		"A": {Sleep: 30 * time.Millisecond},
		"B": {Sleep: 10 * time.Millisecond},
		"C": {},
	}, testutil.Spec("A"), testutil.Spec("B"), testutil.Spec("C", "A", "B"))

	res, err := f.sched.Run(ctx, "order")
	require.NoError(t, err)
	require.Equal(t, Completed, res.Verdict)

	a, _ := f.rec.Execution("A")
	b, _ := f.rec.Execution("B")
	c, _ := f.rec.Execution("C")
	assert.False(t, c.Start.Before(a.End), "C started before A finished")
	assert.False(t, c.Start.Before(b.End), "C started before B finished")

	in, _ := f.rec.Inputs("C")
	assert.Equal(t, []string{"A", "B"}, in.Names())
}

func TestRun_CascadingFailure(t *testing.T) {
	ctx, logs := testutil.Context(t)
	f := newFixture(t, Options{}, map[string]testutil.Script{
		"A": {Err: errors.New("collector exploded")},
		"B": {},
		"C": {},
	}, testutil.Spec("A"), testutil.Spec("B", "A"), testutil.Spec("C", "B"))

	res, err := f.sched.Run(ctx, "cascade")
	require.NoError(t, err)

	assert.Equal(t, PartiallyFailed, res.Verdict)
	assert.Equal(t, []string{"A", "B", "C"}, res.Failed())

	a, _ := res.Module("A")
	assert.Equal(t, module.KindError, a.Failure.Kind)
	assert.Equal(t, "collector exploded", a.Failure.Message)

	for _, id := range []string{"B", "C"} {
		rep, _ := res.Module(id)
		assert.Equal(t, node.Failed, rep.State, id)
		assert.Equal(t, module.KindUpstreamFailed, rep.Failure.Kind, id)
		assert.True(t, rep.Started.IsZero(), "%s must never enter Running", id)
		assert.False(t, f.rec.Started(id), id)
	}
	assert.Contains(t, logs.String(), "Skipping dependent module due to upstream failure.")
}

func TestRun_IndependentBranchIsolation(t *testing.T) {
	ctx, _ := testutil.Context(t)
	f := newFixture(t, Options{}, map[string]testutil.Script{
		"A": {Err: errors.New("remote agent unreachable")},
		"B": succeed(module.Artifacts{"b": 1}),
		"C": {},
		"D": {Sleep: 20 * time.Millisecond, Artifacts: module.Artifacts{"d": 1}},
	}, testutil.Spec("A"), testutil.Spec("B"), testutil.Spec("C", "A", "B"), testutil.Spec("D"))

	res, err := f.sched.Run(ctx, "isolation")
	require.NoError(t, err)

	assert.Equal(t, PartiallyFailed, res.Verdict)
	assert.ElementsMatch(t, []string{"B", "D"}, res.Succeeded())
	assert.ElementsMatch(t, []string{"A", "C"}, res.Failed())

	c, _ := res.Module("C")
	assert.Equal(t, module.KindUpstreamFailed, c.Failure.Kind)
	assert.False(t, f.rec.Started("C"))

	assert.Equal(t, map[string]module.Artifacts{"B": {"b": 1}, "D": {"d": 1}}, res.Artifacts())
}

func TestRun_ConcurrentSiblings(t *testing.T) {
	ctx, _ := testutil.Context(t)
	gate := make(chan struct{})
	scripts := map[string]testutil.Script{
		"A": {Gate: gate},
		"B": {Gate: gate},
		"C": {Gate: gate},
	}
	f := newFixture(t, Options{}, scripts, testutil.Spec("A"), testutil.Spec("B"), testutil.Spec("C"))

	// All three must be running at once before any of them may finish.
	go func() {
		deadline := time.After(2 * time.Second)
		for f.rec.MaxConcurrent() < 3 {
			select {
			case <-deadline:
				close(gate)
				return
			case <-time.After(time.Millisecond):
			}
		}
		close(gate)
	}()

	res, err := f.sched.Run(ctx, "siblings")
	require.NoError(t, err)
	assert.Equal(t, Completed, res.Verdict)
	assert.Equal(t, 3, f.rec.MaxConcurrent())
}

func TestRun_MaxParallel(t *testing.T) {
	ctx, _ := testutil.Context(t)
	scripts := map[string]testutil.Script{}
	var specs []*recipe.ModuleSpec
	for _, id := range []string{"A", "B", "C", "D"} {
		scripts[id] = testutil.Script{Sleep: 10 * time.Millisecond}
		specs = append(specs, testutil.Spec(id))
	}
	specs = append(specs, testutil.Spec("E", "A", "B", "C", "D"))
	scripts["E"] = testutil.Script{}

	f := newFixture(t, Options{MaxParallel: 2}, scripts, specs...)
	res, err := f.sched.Run(ctx, "bounded")
	require.NoError(t, err)

	assert.Equal(t, Completed, res.Verdict)
	assert.LessOrEqual(t, f.rec.MaxConcurrent(), 2)
	assert.Len(t, f.rec.Order(), 5)
}

func TestRun_Cancellation(t *testing.T) {
	ctx, _ := testutil.Context(t)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	f := newFixture(t, Options{}, map[string]testutil.Script{
		"Slow":     {Block: true},
		"Fast":     succeed(module.Artifacts{"ok": true}),
		"Exporter": {},
	}, testutil.Spec("Slow"), testutil.Spec("Fast"), testutil.Spec("Exporter", "Slow", "Fast"))

	time.AfterFunc(50*time.Millisecond, cancel)
	res, err := f.sched.Run(ctx, "cancel")
	require.NoError(t, err)

	assert.Equal(t, Aborted, res.Verdict)

	slow, _ := res.Module("Slow")
	assert.Equal(t, node.Failed, slow.State)
	assert.Equal(t, module.KindCancelled, slow.Failure.Kind)

	exporter, _ := res.Module("Exporter")
	assert.Equal(t, node.Failed, exporter.State)
	assert.Equal(t, module.KindCancelled, exporter.Failure.Kind)
	assert.False(t, f.rec.Started("Exporter"))

	fast, _ := res.Module("Fast")
	assert.Equal(t, node.Succeeded, fast.State, "work finished before the abort is kept")
}

func TestRun_AlreadyCancelled(t *testing.T) {
	ctx, _ := testutil.Context(t)
	ctx, cancel := context.WithCancel(ctx)
	cancel()

	f := newFixture(t, Options{}, map[string]testutil.Script{"A": {}, "B": {}},
		testutil.Spec("A"), testutil.Spec("B", "A"))

	res, err := f.sched.Run(ctx, "cancelled")
	require.NoError(t, err)
	assert.Equal(t, Aborted, res.Verdict)
	assert.False(t, f.rec.Started("A"))
	assert.Equal(t, []string{"A", "B"}, res.Failed())
}

func TestRun_Timeout(t *testing.T) {
	ctx, _ := testutil.Context(t)
	f := newFixture(t, Options{Adapter: &runner.Adapter{Timeout: 20 * time.Millisecond}},
		map[string]testutil.Script{"Hang": {Block: true}, "After": {}},
		testutil.Spec("Hang"), testutil.Spec("After", "Hang"))

	res, err := f.sched.Run(ctx, "timeout")
	require.NoError(t, err)

	assert.Equal(t, PartiallyFailed, res.Verdict)
	hang, _ := res.Module("Hang")
	assert.Equal(t, module.KindTimeout, hang.Failure.Kind)
	after, _ := res.Module("After")
	assert.Equal(t, module.KindUpstreamFailed, after.Failure.Kind)
}

func TestRun_PanicIsContained(t *testing.T) {
	ctx, _ := testutil.Context(t)
	f := newFixture(t, Options{}, map[string]testutil.Script{
		"Bad":  {Panic: "nil map write"},
		"Good": {},
	}, testutil.Spec("Bad"), testutil.Spec("Good"))

	res, err := f.sched.Run(ctx, "panic")
	require.NoError(t, err)
	assert.Equal(t, PartiallyFailed, res.Verdict)
	bad, _ := res.Module("Bad")
	assert.Equal(t, module.KindPanic, bad.Failure.Kind)
	assert.Equal(t, []string{"Good"}, res.Succeeded())
}

func TestRun_DuplicateArtifactIsInvariantError(t *testing.T) {
	ctx, _ := testutil.Context(t)
	f := newFixture(t, Options{}, map[string]testutil.Script{"A": {}, "B": {}},
		testutil.Spec("A"), testutil.Spec("B", "A"))

	// Simulate a stray earlier write for A.
	require.NoError(t, f.store.Put(ctx, "A", module.Artifacts{"stale": true}))

	res, err := f.sched.Run(ctx, "invariant")
	require.Error(t, err)
	assert.ErrorIs(t, err, nodestore.ErrDuplicateArtifact)
	assert.True(t, nodestore.IsInvariant(err))

	require.NotNil(t, res)
	assert.Equal(t, Aborted, res.Verdict)
	assert.False(t, f.rec.Started("B"))
}

// forgetfulStore drops status writes for one module.
type forgetfulStore struct {
	*inmemorystore.Store
	forget string
}

func (s *forgetfulStore) SetStatus(ctx context.Context, id string, status node.State) error {
	if id == s.forget {
		return nil
	}
	return s.Store.SetStatus(ctx, id, status)
}

func TestRun_ReportsStatesFromStore(t *testing.T) {
	ctx, _ := testutil.Context(t)
	f := newFixture(t, Options{}, map[string]testutil.Script{
		"A": {Err: errors.New("boom")},
		"B": {},
		"C": {},
	}, testutil.Spec("A"), testutil.Spec("B"), testutil.Spec("C", "A"))

	res, err := f.sched.Run(ctx, "states")
	require.NoError(t, err)

	for _, rep := range res.Modules {
		status, err := f.store.GetStatus(ctx, rep.ID)
		require.NoError(t, err)
		assert.Equal(t, status, rep.State, rep.ID)
	}
	c, _ := res.Module("C")
	assert.Equal(t, node.Failed, c.State)
}

func TestRun_DivergedStatusIsInternalError(t *testing.T) {
	ctx, _ := testutil.Context(t)

	g, err := dag.Build([]*recipe.ModuleSpec{testutil.Spec("A"), testutil.Spec("B", "A")})
	require.NoError(t, err)
	fakes := testutil.NewFakeModules(map[string]testutil.Script{"A": {}, "B": {}})
	reg := registry.New(fakes)
	tasks := make(map[string]*Task)
	for _, id := range g.Nodes() {
		deg, err := g.InDegree(id)
		require.NoError(t, err)
		mod, err := reg.New(id)
		require.NoError(t, err)
		tasks[id] = &Task{Instance: node.New(id, id, nil, deg), Module: mod}
	}

	sched, err := New(g, tasks, &forgetfulStore{Store: inmemorystore.New(), forget: "B"}, Options{})
	require.NoError(t, err)

	res, err := sched.Run(ctx, "diverged")
	require.ErrorIs(t, err, ErrStatusDiverged)
	require.NotNil(t, res)
	b, _ := res.Module("B")
	assert.Equal(t, node.Pending, b.State)
}

func TestRun_EmptyGraph(t *testing.T) {
	ctx, _ := testutil.Context(t)
	f := newFixture(t, Options{}, nil)
	res, err := f.sched.Run(ctx, "empty")
	require.NoError(t, err)
	assert.Equal(t, Completed, res.Verdict)
	assert.Empty(t, res.Modules)
}

func TestRun_MetricsAndSpans(t *testing.T) {
	ctx, _ := testutil.Context(t)

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	reg := prometheus.NewRegistry()
	f := newFixture(t, Options{Tracer: tp.Tracer("test"), Metrics: metrics.New(reg), RunID: "run-1"},
		map[string]testutil.Script{"A": {}, "B": {Err: errors.New("nope")}},
		testutil.Spec("A"), testutil.Spec("B", "A"))

	res, err := f.sched.Run(ctx, "observed")
	require.NoError(t, err)
	assert.Equal(t, "run-1", res.RunID)

	spans := exporter.GetSpans()
	names := make(map[string]int)
	for _, s := range spans {
		names[s.Name]++
		if s.Name == "pipeline.run" {
			assert.Equal(t, codes.Error, s.Status.Code)
		}
	}
	assert.Equal(t, 1, names["pipeline.run"])
	assert.Equal(t, 2, names["module.process"])

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNew_MissingTask(t *testing.T) {
	g, err := dag.Build([]*recipe.ModuleSpec{testutil.Spec("A")})
	require.NoError(t, err)
	_, err = New(g, map[string]*Task{}, inmemorystore.New(), Options{})
	assert.ErrorContains(t, err, "no task")
}
