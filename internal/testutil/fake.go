package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/specialistvlad/recipegrid/internal/module"
	"github.com/specialistvlad/recipegrid/internal/registry"
)

// Script describes how a fake module behaves.
type Script struct {
	// Artifacts is returned by Process on success.
	Artifacts module.Artifacts
	// Err is returned by Process.
	Err error
	// SetUpErr is returned by SetUp.
	SetUpErr error
	// SetUpSleep delays SetUp, honouring cancellation.
	SetUpSleep time.Duration
	// Sleep delays Process, honouring cancellation.
	Sleep time.Duration
	// Block makes Process wait until its context is done.
	Block bool
	// IgnoreCancel makes Sleep uninterruptible.
	IgnoreCancel bool
	// Panic makes Process panic with this value.
	Panic any
	// Gate, when set, is waited on before Process returns.
	Gate <-chan struct{}
}

// ExecutionRecord holds the start and end times of one Process call.
type ExecutionRecord struct {
	Start time.Time
	End   time.Time
}

// Recorder captures what fake modules observed. It is safe for concurrent use.
type Recorder struct {
	mu         sync.Mutex
	setUp      map[string]module.Args
	inputs     map[string]module.Inputs
	executions map[string]*ExecutionRecord
	order      []string
	running    int
	maxRunning int
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		setUp:      make(map[string]module.Args),
		inputs:     make(map[string]module.Inputs),
		executions: make(map[string]*ExecutionRecord),
	}
}

// SetUpArgs returns the arguments a module was set up with.
func (r *Recorder) SetUpArgs(name string) (module.Args, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.setUp[name]
	return a, ok
}

// Inputs returns the inputs a module's Process received.
func (r *Recorder) Inputs(name string) (module.Inputs, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	in, ok := r.inputs[name]
	return in, ok
}

// Started reports whether Process was called for name.
func (r *Recorder) Started(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.inputs[name]
	return ok
}

// Execution returns the timing record of name.
func (r *Recorder) Execution(name string) (*ExecutionRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.executions[name]
	return rec, ok
}

// Order returns module names in the order Process was entered.
func (r *Recorder) Order() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.order...)
}

// MaxConcurrent returns the largest number of Process calls seen in flight.
func (r *Recorder) MaxConcurrent() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.maxRunning
}

func (r *Recorder) enter(name string, in module.Inputs) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inputs[name] = in
	r.order = append(r.order, name)
	r.executions[name] = &ExecutionRecord{Start: time.Now()}
	r.running++
	if r.running > r.maxRunning {
		r.maxRunning = r.running
	}
}

func (r *Recorder) leave(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.running--
	if rec, ok := r.executions[name]; ok {
		rec.End = time.Now()
	}
}

// FakeModules registers one scripted module kind per entry of Scripts. The
// kind name doubles as the recorded module name, so recipes should use
// kinds directly as module names.
type FakeModules struct {
	Scripts  map[string]Script
	Recorder *Recorder
}

// NewFakeModules creates a registrant for the given scripts.
func NewFakeModules(scripts map[string]Script) *FakeModules {
	return &FakeModules{Scripts: scripts, Recorder: NewRecorder()}
}

// Register implements registry.Registrant.
func (f *FakeModules) Register(r *registry.Registry) {
	for name, script := range f.Scripts {
		name, script := name, script
		r.Register(name, func() module.Module {
			return &FakeModule{Name: name, Script: script, rec: f.Recorder}
		})
	}
}

// FakeModule is a module.Module driven by a Script.
type FakeModule struct {
	Name   string
	Script Script
	rec    *Recorder
}

// SetUp records args and returns Script.SetUpErr.
func (m *FakeModule) SetUp(ctx context.Context, args module.Args) error {
	m.rec.mu.Lock()
	m.rec.setUp[m.Name] = args
	m.rec.mu.Unlock()
	if m.Script.SetUpSleep > 0 {
		select {
		case <-time.After(m.Script.SetUpSleep):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return m.Script.SetUpErr
}

// Process plays the script.
func (m *FakeModule) Process(ctx context.Context, in module.Inputs) (module.Artifacts, error) {
	m.rec.enter(m.Name, in)
	defer m.rec.leave(m.Name)

	if m.Script.Panic != nil {
		panic(m.Script.Panic)
	}

	if m.Script.Sleep > 0 {
		if m.Script.IgnoreCancel {
			time.Sleep(m.Script.Sleep)
		} else {
			select {
			case <-time.After(m.Script.Sleep):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	if m.Script.Block {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	if m.Script.Gate != nil {
		select {
		case <-m.Script.Gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if m.Script.Err != nil {
		return nil, m.Script.Err
	}
	return m.Script.Artifacts.Clone(), nil
}
