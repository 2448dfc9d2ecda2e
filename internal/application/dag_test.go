package application

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-washer/internal/ports"
)

type mockTickable struct{ id string }

func (m *mockTickable) ID() string         { return m.id }
func (m *mockTickable) Tick(time.Duration) {}

func ids(ts []ports.Tickable) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.ID()
	}
	return out
}

func graphWith(t *testing.T, names ...string) *TickGraph {
	t.Helper()
	g := NewTickGraph()
	for _, n := range names {
		require.NoError(t, g.AddNode(&mockTickable{id: n}))
	}
	return g
}

func TestTickGraph_AddNode(t *testing.T) {
	tests := []struct {
		name    string
		setup   func() *TickGraph
		node    ports.Tickable
		wantErr bool
		errMsg  string
	}{
		{
			name:  "adds node successfully",
			setup: NewTickGraph,
			node:  &mockTickable{id: "motor"},
		},
		{
			name:    "rejects nil node",
			setup:   NewTickGraph,
			node:    nil,
			wantErr: true,
			errMsg:  "nil component",
		},
		{
			name:    "rejects duplicate node",
			setup:   func() *TickGraph { return graphWith(t, "motor") },
			node:    &mockTickable{id: "motor"},
			wantErr: true,
			errMsg:  "already exists",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := tt.setup()
			err := g.AddNode(tt.node)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
			got, ok := g.GetNode(tt.node.ID())
			assert.True(t, ok)
			assert.Equal(t, tt.node, got)
		})
	}
}

func TestTickGraph_AddEdge(t *testing.T) {
	tests := []struct {
		name    string
		edges   [][2]string
		edge    [2]string
		wantErr string
	}{
		{name: "valid edge", edge: [2]string{"a", "b"}},
		{name: "unknown source", edge: [2]string{"x", "b"}, wantErr: "source node x does not exist"},
		{name: "unknown target", edge: [2]string{"a", "x"}, wantErr: "target node x does not exist"},
		{name: "duplicate edge", edges: [][2]string{{"a", "b"}}, edge: [2]string{"a", "b"}, wantErr: "already exists"},
		{name: "self loop", edge: [2]string{"a", "a"}, wantErr: "would create a cycle"},
		{name: "closing a cycle", edges: [][2]string{{"a", "b"}, {"b", "c"}}, edge: [2]string{"c", "a"}, wantErr: "would create a cycle"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := graphWith(t, "a", "b", "c")
			for _, e := range tt.edges {
				require.NoError(t, g.AddEdge(e[0], e[1]))
			}

			err := g.AddEdge(tt.edge[0], tt.edge[1])
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.False(t, g.HasCycle(), "a rejected edge is rolled back")
		})
	}
}

func TestTickGraph_TopologicalSort(t *testing.T) {
	tests := []struct {
		name  string
		nodes []string
		edges [][2]string
		want  []string
	}{
		{
			name:  "no edges keeps insertion order",
			nodes: []string{"pump", "motor", "heater"},
			want:  []string{"pump", "motor", "heater"},
		},
		{
			name:  "edge moves a node forward",
			nodes: []string{"motor", "heater", "controller"},
			edges: [][2]string{{"controller", "motor"}},
			want:  []string{"heater", "controller", "motor"},
		},
		{
			name:  "diamond",
			nodes: []string{"scanner", "motor", "pump", "controller"},
			edges: [][2]string{
				{"controller", "motor"},
				{"controller", "pump"},
				{"motor", "scanner"},
				{"pump", "scanner"},
			},
			want: []string{"controller", "motor", "pump", "scanner"},
		},
		{
			name:  "released nodes are ordered by insertion",
			nodes: []string{"c", "b", "a", "root"},
			edges: [][2]string{{"root", "a"}, {"root", "c"}, {"root", "b"}},
			want:  []string{"root", "c", "b", "a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := graphWith(t, tt.nodes...)
			for _, e := range tt.edges {
				require.NoError(t, g.AddEdge(e[0], e[1]))
			}

			order, err := g.TopologicalSort()
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(order))

			again, err := g.TopologicalSort()
			require.NoError(t, err)
			assert.Equal(t, ids(order), ids(again), "sort is deterministic")
		})
	}
}

func TestTickGraph_GetNodeMissing(t *testing.T) {
	g := NewTickGraph()
	_, ok := g.GetNode("missing")
	assert.False(t, ok)
	assert.Zero(t, g.Len())
}
