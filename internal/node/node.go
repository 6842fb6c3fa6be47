// Package node holds the per-run state of one module instance. The graph
// is shared and immutable; an Instance is created fresh for every run and
// owned by the scheduler that drives it.
package node

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/specialistvlad/recipegrid/internal/module"
)

// State represents the execution state of a module instance.
type State int32

const (
	// Pending indicates the instance is waiting for its dependencies.
	Pending State = iota
	// Ready indicates every dependency succeeded and the instance may start.
	Ready
	// Running indicates the instance was handed to the runtime adapter.
	Running
	// Succeeded indicates the instance produced its artifacts.
	Succeeded
	// Failed indicates the instance failed, was cancelled or was skipped.
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "Pending"
	case Ready:
		return "Ready"
	case Running:
		return "Running"
	case Succeeded:
		return "Succeeded"
	case Failed:
		return "Failed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == Succeeded || s == Failed
}

// allowed lists the legal transitions.
var allowed = map[State][]State{
	Pending: {Ready, Failed},
	Ready:   {Running, Failed},
	Running: {Succeeded, Failed},
}

// Instance is the runtime entity for one module of a recipe.
type Instance struct {
	// ID is the module's name in the graph.
	ID string
	// Kind is the registered module implementation name.
	Kind string
	// Args is the resolved argument map, placeholders already substituted.
	Args module.Args

	// depCount is the number of dependencies that have not succeeded yet.
	depCount atomic.Int32
	// state is the execution state, managed atomically.
	state atomic.Int32
	// failOnce ensures the failure descriptor is written exactly once.
	failOnce sync.Once

	mu       sync.Mutex
	failure  *module.Failure
	started  time.Time
	finished time.Time
}

// New creates a Pending instance with deps unresolved dependencies.
func New(id, kind string, args module.Args, deps int) *Instance {
	n := &Instance{ID: id, Kind: kind, Args: args}
	n.depCount.Store(int32(deps))
	return n
}

// DepCount atomically returns the current number of unmet dependencies.
func (n *Instance) DepCount() int32 {
	return n.depCount.Load()
}

// DecrementDepCount atomically decrements the dependency counter and returns the new value.
func (n *Instance) DecrementDepCount() int32 {
	return n.depCount.Add(-1)
}

// State atomically retrieves the execution state.
func (n *Instance) State() State {
	return State(n.state.Load())
}

// Transition moves the instance from one state to another. It fails if the
// instance is not in from or if the move is not a legal transition.
func (n *Instance) Transition(from, to State) error {
	if !legal(from, to) {
		return fmt.Errorf("node %s: illegal transition %s -> %s", n.ID, from, to)
	}
	if !n.state.CompareAndSwap(int32(from), int32(to)) {
		return fmt.Errorf("node %s: transition %s -> %s from state %s", n.ID, from, to, n.State())
	}

	now := time.Now()
	n.mu.Lock()
	switch {
	case to == Running:
		n.started = now
	case to.Terminal():
		n.finished = now
	}
	n.mu.Unlock()
	return nil
}

func legal(from, to State) bool {
	for _, s := range allowed[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Fail records f and moves the instance to Failed from any non-terminal
// state. Only the first call has an effect; it reports whether it won.
func (n *Instance) Fail(f *module.Failure) bool {
	var won bool
	n.failOnce.Do(func() {
		for {
			cur := n.State()
			if cur.Terminal() {
				return
			}
			if n.Transition(cur, Failed) == nil {
				break
			}
		}
		if f != nil && f.Module == "" {
			f.Module = n.ID
		}
		n.mu.Lock()
		n.failure = f
		n.mu.Unlock()
		won = true
	})
	return won
}

// Failure returns the recorded failure descriptor, if any.
func (n *Instance) Failure() *module.Failure {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.failure
}

// Started returns when the instance entered Running. It is zero for
// instances that never ran.
func (n *Instance) Started() time.Time {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.started
}

// Finished returns when the instance reached a terminal state.
func (n *Instance) Finished() time.Time {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.finished
}

// Duration is the time spent Running. It is zero for instances that never ran.
func (n *Instance) Duration() time.Duration {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.started.IsZero() || n.finished.IsZero() {
		return 0
	}
	return n.finished.Sub(n.started)
}
