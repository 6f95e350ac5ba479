package graphviewer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recera/linkgraph/pkg/linkindex"
)

func chainGraph() linkindex.Graph {
	return linkindex.Graph{
		Nodes: []linkindex.Node{
			{ID: "/blog/a", Title: "A", Collection: "blog"},
			{ID: "/notes/b", Title: "B", Collection: "notes"},
			{ID: "/talks/c", Title: "C", Collection: "talks"},
		},
		Links: []linkindex.Link{
			{Source: "/blog/a", Target: "/notes/b"},
			{Source: "/notes/b", Target: "/talks/c"},
		},
	}
}

func starGraph(n int) linkindex.Graph {
	g := linkindex.Graph{Nodes: []linkindex.Node{{ID: "hub", Collection: "blog"}}}
	for i := 0; i < n; i++ {
		id := string(rune('a'+i%26)) + string(rune('a'+i/26))
		g.Nodes = append(g.Nodes, linkindex.Node{ID: id, Collection: "notes"})
		g.Links = append(g.Links, linkindex.Link{Source: "hub", Target: id})
	}
	return g
}

func assertInBounds(t *testing.T, s *Simulation) {
	t.Helper()
	w, h := s.Size()
	for i, n := range s.Nodes() {
		m := s.Margin(i)
		assert.GreaterOrEqual(t, n.X, m, "node %s x", n.ID)
		assert.LessOrEqual(t, n.X, w-m, "node %s x", n.ID)
		assert.GreaterOrEqual(t, n.Y, m, "node %s y", n.ID)
		assert.LessOrEqual(t, n.Y, h-m, "node %s y", n.ID)
	}
}

func TestSettledPositionsWithinMargins(t *testing.T) {
	sizes := [][2]float64{{600, 300}, {200, 200}, {40, 40}, {900, 600}}
	for _, sz := range sizes {
		for seed := uint64(1); seed <= 5; seed++ {
			s := NewSimulation(starGraph(30), "hub", sz[0], sz[1], &Options{Seed: seed})
			assertInBounds(t, s)
		}
	}
}

func TestSeedIsDeterministic(t *testing.T) {
	a := NewSimulation(chainGraph(), "/notes/b", 400, 300, &Options{Seed: 42})
	b := NewSimulation(chainGraph(), "/notes/b", 400, 300, &Options{Seed: 42})
	for i := 0; i < 20; i++ {
		a.Tick()
		b.Tick()
	}
	a.Scatter(2)
	b.Scatter(2)
	assert.Equal(t, a.Nodes(), b.Nodes())

	c := NewSimulation(chainGraph(), "/notes/b", 400, 300, &Options{Seed: 43})
	assert.NotEqual(t, a.Nodes()[0].X, c.Nodes()[0].X)
}

func TestNewSimulationNodes(t *testing.T) {
	g := chainGraph()
	g.Nodes = append(g.Nodes, linkindex.Node{ID: "/blog/a", Title: "dup"}, linkindex.Node{ID: "/x/y", Collection: "unknown"})
	g.Links = append(g.Links, linkindex.Link{Source: "/blog/a", Target: "/missing"})

	s := NewSimulation(g, "/notes/b", 400, 300, &Options{Seed: 1})
	require.Equal(t, 4, s.Len())
	assert.Len(t, s.links, 2)

	assert.Equal(t, "A", s.Node(0).Title)
	assert.True(t, s.Node(1).IsCurrent)
	assert.False(t, s.Node(0).IsCurrent)
	assert.Equal(t, "#c084a8", s.Node(0).Color)
	assert.Equal(t, DefaultColor, s.Node(3).Color)
	assert.Equal(t, 0.0, s.Node(0).Phase)
	assert.Equal(t, 8.0, s.Radius(1))
	assert.Equal(t, 5.0, s.Radius(0))
}

func TestSettlingSeparatesNodes(t *testing.T) {
	s := NewSimulation(chainGraph(), "", 600, 300, &Options{Seed: 7})
	nodes := s.Nodes()
	for i := range nodes {
		for j := i + 1; j < len(nodes); j++ {
			d := math.Hypot(nodes[i].X-nodes[j].X, nodes[i].Y-nodes[j].Y)
			assert.Greater(t, d, 10.0)
		}
	}
}

func TestDragOutOfBoundsThenRelease(t *testing.T) {
	s := NewSimulation(chainGraph(), "/notes/b", 400, 300, &Options{Seed: 3})
	s.Scatter(3)

	require.True(t, s.BeginDrag(1))
	s.DragTo(-500, 9999)
	s.EndDrag()

	n := s.Node(1)
	assert.Equal(t, 0.0, n.VX)
	assert.Equal(t, 0.0, n.VY)
	assert.Equal(t, 18.0, n.X)
	assert.Equal(t, 300.0-18, n.Y)
	assert.Equal(t, -1, s.Dragged())
}

func TestDraggedNodeIsFrozen(t *testing.T) {
	s := NewSimulation(chainGraph(), "", 400, 300, &Options{Seed: 3})
	require.True(t, s.BeginDrag(0))
	s.DragTo(100, 100)
	before := s.Node(0)

	s.Scatter(3)
	for i := 0; i < 10; i++ {
		s.Tick()
	}
	assert.Equal(t, before, s.Node(0))

	assert.False(t, s.BeginDrag(-1))
	assert.False(t, s.BeginDrag(99))
}

func TestScatterClampsAndDecays(t *testing.T) {
	s := NewSimulation(chainGraph(), "", 400, 300, &Options{Seed: 9, Drift: SineDrift{}})
	for i := 0; i < s.Len(); i++ {
		s.nodes[i].VX, s.nodes[i].VY = 0, 0
	}

	s.Scatter(1e9)
	limit := s.opts.MaxScatter * s.opts.ScatterFactor / 2
	moved := false
	for _, n := range s.Nodes() {
		assert.LessOrEqual(t, math.Abs(n.VX), limit)
		assert.LessOrEqual(t, math.Abs(n.VY), limit)
		if n.VX != 0 || n.VY != 0 {
			moved = true
		}
	}
	assert.True(t, moved)

	for i := 0; i < 300; i++ {
		s.Tick()
	}
	for _, n := range s.Nodes() {
		assert.Less(t, math.Hypot(n.VX, n.VY), 0.05)
	}

	s.Scatter(-5)
	for _, n := range s.Nodes() {
		assert.Less(t, math.Hypot(n.VX, n.VY), 0.05)
	}
}

func TestTickKeepsNodesInBounds(t *testing.T) {
	s := NewSimulation(starGraph(12), "hub", 300, 200, &Options{Seed: 11, AmbientForce: 5})
	for i := 0; i < 200; i++ {
		if i%20 == 0 {
			s.Scatter(3)
		}
		s.Tick()
		assertInBounds(t, s)
	}
}

func TestNodeAtPicksNearestWithinTolerance(t *testing.T) {
	s := NewSimulation(chainGraph(), "/notes/b", 400, 300, &Options{Seed: 1})
	s.nodes[0].X, s.nodes[0].Y = 100, 100
	s.nodes[1].X, s.nodes[1].Y = 112, 100
	s.nodes[2].X, s.nodes[2].Y = 300, 200

	assert.Equal(t, 0, s.NodeAt(104, 100, 1.8, 1))
	assert.Equal(t, 1, s.NodeAt(108, 100, 1.8, 1))
	// current node radius 8 * 1.8 = 14.4
	assert.Equal(t, 1, s.NodeAt(125, 100, 1.8, 1))
	assert.Equal(t, -1, s.NodeAt(200, 150, 1.8, 1))
	// 5 * 1.5 * 1.5 = 11.25
	assert.Equal(t, 2, s.NodeAt(311, 200, 1.5, 1.5))
	assert.Equal(t, -1, s.NodeAt(312, 200, 1.5, 1.5))
}

func TestResizeClamps(t *testing.T) {
	s := NewSimulation(starGraph(8), "hub", 800, 600, &Options{Seed: 5})
	s.Resize(120, 80)
	assertInBounds(t, s)
}

func TestDrifts(t *testing.T) {
	sd := SineDrift{Frequency: 0.0008}
	x, y := sd.Offset(0, 0)
	assert.Equal(t, 0.0, x)
	assert.Equal(t, 0.0, y)

	nd := NewNoiseDrift(1, 0.01)
	a1, b1 := nd.Offset(10, 1.5)
	a2, b2 := NewNoiseDrift(1, 0.01).Offset(10, 1.5)
	assert.Equal(t, a1, a2)
	assert.Equal(t, b1, b2)
	for t0 := 0.0; t0 < 1000; t0 += 37 {
		x, y := nd.Offset(t0, 2)
		assert.LessOrEqual(t, math.Abs(x), 1.0)
		assert.LessOrEqual(t, math.Abs(y), 1.0)
	}
}

func TestNoiseDriftInSimulation(t *testing.T) {
	s := NewSimulation(chainGraph(), "", 400, 300, &Options{Seed: 2, Drift: NewNoiseDrift(2, 0.01)})
	for i := 0; i < 50; i++ {
		s.Tick()
	}
	assertInBounds(t, s)
}
