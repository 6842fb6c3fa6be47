package dag

import "sort"

// TopologicalSort returns the node IDs so that every node follows all of its
// dependencies. Among nodes that are ready at the same time, insertion order
// wins, so the result is stable for a given recipe.
func (g *Graph) TopologicalSort() ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	remaining := make(map[string]int, len(g.nodes))
	var ready []*node
	for _, id := range g.order {
		n := g.nodes[id]
		remaining[id] = len(n.deps)
		if len(n.deps) == 0 {
			ready = append(ready, n)
		}
	}

	out := make([]string, 0, len(g.order))
	for len(ready) > 0 {
		n := ready[0]
		ready = ready[1:]
		out = append(out, n.id)

		released := false
		for depID, dep := range n.dependents {
			remaining[depID]--
			if remaining[depID] == 0 {
				ready = append(ready, dep)
				released = true
			}
		}
		if released {
			sort.Slice(ready, func(i, j int) bool { return ready[i].index < ready[j].index })
		}
	}

	if len(out) != len(g.order) {
		return nil, graphErrorf(ErrCyclicDependency, "%d of %d nodes could not be ordered", len(g.order)-len(out), len(g.order))
	}
	return out, nil
}

// Levels groups nodes by the length of the longest dependency chain leading
// to them. Level 0 holds the roots; every node of level k depends on at
// least one node of level k-1.
func (g *Graph) Levels() ([][]string, error) {
	order, err := g.TopologicalSort()
	if err != nil {
		return nil, err
	}

	g.mutex.RLock()
	defer g.mutex.RUnlock()

	depth := make(map[string]int, len(order))
	var levels [][]string
	for _, id := range order {
		d := 0
		for depID := range g.nodes[id].deps {
			if depth[depID]+1 > d {
				d = depth[depID] + 1
			}
		}
		depth[id] = d
		for len(levels) <= d {
			levels = append(levels, nil)
		}
		levels[d] = append(levels[d], id)
	}

	for _, level := range levels {
		sort.Slice(level, func(i, j int) bool { return g.nodes[level[i]].index < g.nodes[level[j]].index })
	}
	return levels, nil
}
