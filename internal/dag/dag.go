package dag

import (
	"sort"
	"sync"

	"github.com/specialistvlad/recipegrid/internal/recipe"
)

// Graph is a collection of nodes and their dependencies. All operations on
// the graph are concurrency-safe.
type Graph struct {
	// mutex protects the nodes map during concurrent access.
	mutex sync.RWMutex
	// nodes stores all nodes in the graph, keyed by their unique ID.
	nodes map[string]*node
	// order holds node IDs in insertion order, which is recipe order for
	// graphs produced by Build.
	order []string
}

// node represents a single vertex in the graph. It is un-exported to
// enforce interaction with the graph via the public API (using string IDs).
type node struct {
	id    string
	index int
	spec  *recipe.ModuleSpec
	// deps holds the set of nodes that this node depends on (predecessors).
	deps map[string]*node
	// dependents holds the set of nodes that depend on this node (successors).
	dependents map[string]*node
}

// New creates and returns an initialized, empty Graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]*node),
	}
}

// AddNode adds a node with the given ID. Adding an ID twice fails with
// ErrDuplicateModuleName.
func (g *Graph) AddNode(id string) error {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if _, ok := g.nodes[id]; ok {
		return graphErrorf(ErrDuplicateModuleName, "%q", id)
	}

	g.nodes[id] = &node{
		id:         id,
		index:      len(g.order),
		deps:       make(map[string]*node),
		dependents: make(map[string]*node),
	}
	g.order = append(g.order, id)
	return nil
}

// AddEdge creates a directed edge from fromID to toID, meaning toID depends
// on fromID. A self-referential edge is a cycle of one.
func (g *Graph) AddEdge(fromID, toID string) error {
	if fromID == toID {
		return &CycleError{Members: []string{fromID}}
	}

	g.mutex.Lock()
	defer g.mutex.Unlock()

	fromNode, ok := g.nodes[fromID]
	if !ok {
		return graphErrorf(ErrUnknownDependency, "%q wants %q", toID, fromID)
	}

	toNode, ok := g.nodes[toID]
	if !ok {
		return graphErrorf(ErrNodeNotFound, "%q", toID)
	}

	toNode.deps[fromID] = fromNode
	fromNode.dependents[toID] = toNode

	return nil
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return len(g.order)
}

// Nodes returns every node ID in insertion order.
func (g *Graph) Nodes() []string {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return append([]string(nil), g.order...)
}

// Has reports whether id is a node of the graph.
func (g *Graph) Has(id string) bool {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	_, ok := g.nodes[id]
	return ok
}

// Spec returns the module spec a node was built from. It is nil for nodes
// added directly with AddNode.
func (g *Graph) Spec(id string) (*recipe.ModuleSpec, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, graphErrorf(ErrNodeNotFound, "%q", id)
	}
	return n.spec, nil
}

// Dependencies returns the IDs the given node depends on, in insertion order.
func (g *Graph) Dependencies(id string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, graphErrorf(ErrNodeNotFound, "%q", id)
	}
	return sortedIDs(n.deps), nil
}

// Dependents returns the IDs that depend on the given node, in insertion order.
func (g *Graph) Dependents(id string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, graphErrorf(ErrNodeNotFound, "%q", id)
	}
	return sortedIDs(n.dependents), nil
}

// InDegree returns the number of distinct dependencies of a node.
func (g *Graph) InDegree(id string) (int, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return 0, graphErrorf(ErrNodeNotFound, "%q", id)
	}
	return len(n.deps), nil
}

// Roots returns the nodes without dependencies, in insertion order.
func (g *Graph) Roots() []string {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	var roots []string
	for _, id := range g.order {
		if len(g.nodes[id].deps) == 0 {
			roots = append(roots, id)
		}
	}
	return roots
}

// Descendants returns every transitive dependent of id, in insertion order.
func (g *Graph) Descendants(id string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	start, ok := g.nodes[id]
	if !ok {
		return nil, graphErrorf(ErrNodeNotFound, "%q", id)
	}

	seen := make(map[string]*node)
	queue := []*node{start}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for depID, dep := range n.dependents {
			if _, ok := seen[depID]; ok {
				continue
			}
			seen[depID] = dep
			queue = append(queue, dep)
		}
	}
	return sortedIDs(seen), nil
}

func sortedIDs(set map[string]*node) []string {
	nodes := make([]*node, 0, len(set))
	for _, n := range set {
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].index < nodes[j].index })
	ids := make([]string, len(nodes))
	for i, n := range nodes {
		ids[i] = n.id
	}
	return ids
}
