package ports

// TickGraph defines a directed acyclic graph of tickable components that
// determines the order in which the driver advances them.
// An edge from A to B means A must tick before B within the same tick, for
// instance the controller issuing commands before the motor acts on them.
type TickGraph interface {
	// AddNode registers a component as a node in this graph.
	// The component's ID must be unique within the graph scope.
	// AddNode returns an error if the ID conflicts with an existing node.
	AddNode(t Tickable) error

	// AddEdge establishes that beforeID ticks before afterID.
	// AddEdge returns an error if either ID is not found, if the edge
	// would create a cycle, or if the edge already exists.
	AddEdge(beforeID, afterID string) error

	// TopologicalSort computes a tick order that respects every edge.
	// Nodes without a mutual constraint keep their insertion order, so the
	// result is deterministic for a given construction sequence.
	// TopologicalSort returns an error if the graph contains cycles.
	TopologicalSort() ([]Tickable, error)

	// HasCycle reports whether the graph contains a circular dependency.
	HasCycle() bool

	// GetNode retrieves a component by its unique identifier.
	GetNode(id string) (Tickable, bool)
}
