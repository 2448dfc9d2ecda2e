package application

import (
	"fmt"
	"slices"
	"sync"

	"github.com/ahrav/go-washer/internal/ports"
)

var _ ports.TickGraph = (*TickGraph)(nil)

// TickGraph is a directed acyclic graph of tickable components. An edge
// from A to B means A must tick before B within one simulation step.
// Use TickGraph to derive a registration order for the engine from
// declared dependencies instead of hand-ordering components.
type TickGraph struct {
	// nodes maps component IDs to components for lookup during sorting.
	nodes map[string]ports.Tickable
	// order holds node IDs in insertion order. It breaks ties between
	// unconstrained nodes so the sort is deterministic.
	order []string
	// rank maps a node ID to its position in order.
	rank map[string]int
	// edges is the adjacency list: node ID -> IDs that tick after it.
	edges map[string][]string
	// edgeSet provides O(1) duplicate edge detection.
	// Key format: "beforeID->afterID"
	edgeSet map[string]struct{}
	// inDegree tracks incoming edges per node for Kahn's algorithm.
	inDegree map[string]int
	mu       sync.RWMutex
}

// NewTickGraph creates an empty graph.
func NewTickGraph() *TickGraph {
	return &TickGraph{
		nodes:    make(map[string]ports.Tickable),
		rank:     make(map[string]int),
		edges:    make(map[string][]string),
		edgeSet:  make(map[string]struct{}),
		inDegree: make(map[string]int),
	}
}

// AddNode registers a component as a node in this graph.
// AddNode returns an error if the component is nil or if a component with
// the same ID already exists in the graph.
func (g *TickGraph) AddNode(t ports.Tickable) error {
	if t == nil {
		return fmt.Errorf("cannot add nil component to tick graph")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	id := t.ID()
	if _, exists := g.nodes[id]; exists {
		return fmt.Errorf("node with ID %s already exists in tick graph", id)
	}

	g.nodes[id] = t
	g.rank[id] = len(g.order)
	g.order = append(g.order, id)
	g.edges[id] = make([]string, 0)
	g.inDegree[id] = 0

	return nil
}

// AddEdge declares that beforeID ticks before afterID.
// AddEdge rolls the edge back if it would create a cycle.
// AddEdge returns an error if either ID is not found, if the edge
// already exists, or if the edge would create a cycle.
func (g *TickGraph) AddEdge(beforeID, afterID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.nodes[beforeID]; !exists {
		return fmt.Errorf("source node %s does not exist", beforeID)
	}
	if _, exists := g.nodes[afterID]; !exists {
		return fmt.Errorf("target node %s does not exist", afterID)
	}

	edgeKey := beforeID + "->" + afterID
	if _, exists := g.edgeSet[edgeKey]; exists {
		return fmt.Errorf("edge from %s to %s already exists", beforeID, afterID)
	}

	g.edges[beforeID] = append(g.edges[beforeID], afterID)
	g.edgeSet[edgeKey] = struct{}{}
	g.inDegree[afterID]++

	if g.hasCycleUnsafe() {
		g.edges[beforeID] = g.edges[beforeID][:len(g.edges[beforeID])-1]
		delete(g.edgeSet, edgeKey)
		g.inDegree[afterID]--
		return fmt.Errorf("adding edge from %s to %s would create a cycle", beforeID, afterID)
	}

	return nil
}

// TopologicalSort computes a tick order that respects every edge using
// Kahn's algorithm. Among nodes that are ready at the same time, the one
// added first comes first.
// TopologicalSort returns an error if the graph contains a cycle.
func (g *TickGraph) TopologicalSort() ([]ports.Tickable, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	inDegree := make(map[string]int, len(g.inDegree))
	for k, v := range g.inDegree {
		inDegree[k] = v
	}

	// ready is kept sorted by insertion rank.
	ready := make([]string, 0)
	for _, id := range g.order {
		if inDegree[id] == 0 {
			ready = append(ready, id)
		}
	}

	result := make([]ports.Tickable, 0, len(g.nodes))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		result = append(result, g.nodes[id])

		for _, next := range g.edges[id] {
			inDegree[next]--
			if inDegree[next] == 0 {
				ready = g.insertByRank(ready, next)
			}
		}
	}

	if len(result) != len(g.nodes) {
		return nil, fmt.Errorf("tick graph contains a cycle")
	}
	return result, nil
}

func (g *TickGraph) insertByRank(ready []string, id string) []string {
	r := g.rank[id]
	i, _ := slices.BinarySearchFunc(ready, r, func(e string, target int) int {
		return g.rank[e] - target
	})
	return slices.Insert(ready, i, id)
}

// HasCycle reports whether the graph contains a circular dependency.
func (g *TickGraph) HasCycle() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.hasCycleUnsafe()
}

// hasCycleUnsafe runs a three-color depth-first search looking for back
// edges. It must be called with the graph mutex held.
func (g *TickGraph) hasCycleUnsafe() bool {
	// White (0): unvisited, Gray (1): visiting, Black (2): visited.
	colors := make(map[string]int, len(g.nodes))

	var dfs func(id string) bool
	dfs = func(id string) bool {
		colors[id] = 1
		for _, next := range g.edges[id] {
			if colors[next] == 1 {
				return true
			}
			if colors[next] == 0 && dfs(next) {
				return true
			}
		}
		colors[id] = 2
		return false
	}

	for _, id := range g.order {
		if colors[id] == 0 && dfs(id) {
			return true
		}
	}
	return false
}

// GetNode retrieves a component by its ID.
func (g *TickGraph) GetNode(id string) (ports.Tickable, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	t, exists := g.nodes[id]
	return t, exists
}

// Len returns the number of nodes.
func (g *TickGraph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}
