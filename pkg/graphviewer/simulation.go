package graphviewer

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/recera/linkgraph/pkg/linkindex"
)

// SimNode is a page with its position and motion state.
type SimNode struct {
	linkindex.Node
	X, Y      float64
	VX, VY    float64
	Phase     float64
	IsCurrent bool
	Color     string
}

type simLink struct {
	source, target int
}

// Simulation is a force layout over a fixed node set. It first settles with
// the full force model and afterwards only drifts, decays impulses and
// clamps nodes inside its bounds.
//
// A Simulation is not safe for concurrent use.
type Simulation struct {
	opts    Options
	nodes   []SimNode
	links   []simLink
	width   float64
	height  float64
	time    float64
	rng     *rand.Rand
	dragged int
}

// NewSimulation places the nodes of g around the center of a width×height
// area and runs the settling phase. Links whose endpoints are missing are
// dropped; repeated node ids keep the first occurrence.
func NewSimulation(g linkindex.Graph, current string, width, height float64, opts *Options) *Simulation {
	o := opts.withDefaults()
	seed := o.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	s := &Simulation{
		opts:    o,
		width:   width,
		height:  height,
		rng:     rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		dragged: -1,
	}
	s.time = s.rng.Float64() * 1000

	index := make(map[string]int, len(g.Nodes))
	for _, n := range g.Nodes {
		if _, dup := index[n.ID]; dup {
			continue
		}
		i := len(s.nodes)
		index[n.ID] = i
		s.nodes = append(s.nodes, SimNode{
			Node:      n,
			X:         width/2 + (s.rng.Float64()-0.5)*80,
			Y:         height/2 + (s.rng.Float64()-0.5)*60,
			Phase:     s.rng.Float64() * math.Pi * 2 * float64(i),
			IsCurrent: n.ID == current,
			Color:     o.ColorFor(n.Collection),
		})
	}
	for _, l := range g.Links {
		si, ok1 := index[l.Source]
		ti, ok2 := index[l.Target]
		if ok1 && ok2 {
			s.links = append(s.links, simLink{si, ti})
		}
	}

	s.Settle()
	return s
}

// Settle runs the configured number of settling iterations with a decaying
// alpha.
func (s *Simulation) Settle() {
	alpha := 1.0
	for i := 0; i < s.opts.Iterations; i++ {
		alpha *= 1 - s.opts.AlphaDecay
		s.applyForces(alpha)
		for j := range s.nodes {
			n := &s.nodes[j]
			n.VX *= s.opts.VelocityDecay
			n.VY *= s.opts.VelocityDecay
			n.X += n.VX
			n.Y += n.VY
			s.constrain(n)
		}
	}
}

func pairDistance(a, b *SimNode) (dx, dy, dist float64) {
	dx = b.X - a.X
	dy = b.Y - a.Y
	dist = math.Sqrt(dx*dx + dy*dy)
	if dist == 0 {
		dist = 1
	}
	return dx, dy, dist
}

func (s *Simulation) applyForces(alpha float64) {
	o := s.opts
	cx, cy := s.width/2, s.height/2

	for i := range s.nodes {
		n := &s.nodes[i]
		n.VX += (cx - n.X) * o.CenterForce * alpha
		n.VY += (cy - n.Y) * o.CenterForce * alpha
	}

	// charge
	for i := range s.nodes {
		for j := i + 1; j < len(s.nodes); j++ {
			a, b := &s.nodes[i], &s.nodes[j]
			dx, dy, dist := pairDistance(a, b)
			force := o.ChargeStrength * alpha / (dist * dist)
			fx, fy := dx/dist*force, dy/dist*force
			a.VX -= fx
			a.VY -= fy
			b.VX += fx
			b.VY += fy
		}
	}

	for _, l := range s.links {
		a, b := &s.nodes[l.source], &s.nodes[l.target]
		dx, dy, dist := pairDistance(a, b)
		force := (dist - o.LinkDistance) * alpha * o.LinkStrength / dist
		fx, fy := dx*force, dy*force
		a.VX += fx
		a.VY += fy
		b.VX -= fx
		b.VY -= fy
	}

	// collision
	minDist := o.CollisionRadius * 2
	for i := range s.nodes {
		for j := i + 1; j < len(s.nodes); j++ {
			a, b := &s.nodes[i], &s.nodes[j]
			dx, dy, dist := pairDistance(a, b)
			if dist >= minDist {
				continue
			}
			force := (minDist - dist) / dist * 0.5
			fx, fy := dx*force, dy*force
			a.VX -= fx
			a.VY -= fy
			b.VX += fx
			b.VY += fy
		}
	}
}

// Tick advances the live phase by one frame.
func (s *Simulation) Tick() {
	o := s.opts
	s.time++
	for i := range s.nodes {
		if i == s.dragged {
			continue
		}
		n := &s.nodes[i]
		if math.Abs(n.VX) > o.MinSpeed || math.Abs(n.VY) > o.MinSpeed {
			n.X += n.VX
			n.Y += n.VY
			n.VX *= o.Friction
			n.VY *= o.Friction
		}
		dx, dy := o.Drift.Offset(s.time, n.Phase)
		n.X += dx * o.AmbientForce
		n.Y += dy * o.AmbientForce
		s.constrain(n)
	}
}

// Radius is the base draw radius of node i.
func (s *Simulation) Radius(i int) float64 {
	if s.nodes[i].IsCurrent {
		return s.opts.CurrentNodeRadius
	}
	return s.opts.NodeRadius
}

// Margin is the minimum distance node i keeps from every edge.
func (s *Simulation) Margin(i int) float64 {
	return s.Radius(i) + s.opts.NodeMargin
}

func (s *Simulation) constrain(n *SimNode) {
	r := s.opts.NodeRadius
	if n.IsCurrent {
		r = s.opts.CurrentNodeRadius
	}
	m := r + s.opts.NodeMargin
	n.X = math.Max(m, math.Min(s.width-m, n.X))
	n.Y = math.Max(m, math.Min(s.height-m, n.Y))
}

// NodeAt returns the node nearest to (x, y) whose distance is within its
// radius × radiusScale × tolerance, or -1.
func (s *Simulation) NodeAt(x, y, tolerance, radiusScale float64) int {
	best, bestDist := -1, math.Inf(1)
	for i := range s.nodes {
		dx, dy := x-s.nodes[i].X, y-s.nodes[i].Y
		dist := math.Sqrt(dx*dx + dy*dy)
		if dist <= s.Radius(i)*radiusScale*tolerance && dist < bestDist {
			best, bestDist = i, dist
		}
	}
	return best
}

// BeginDrag holds node i in place of the simulation's own motion.
func (s *Simulation) BeginDrag(i int) bool {
	if i < 0 || i >= len(s.nodes) {
		return false
	}
	s.dragged = i
	return true
}

// DragTo moves the held node, zeroes its velocity and clamps it.
func (s *Simulation) DragTo(x, y float64) {
	if s.dragged < 0 {
		return
	}
	n := &s.nodes[s.dragged]
	n.X, n.Y = x, y
	n.VX, n.VY = 0, 0
	s.constrain(n)
}

// EndDrag releases the held node.
func (s *Simulation) EndDrag() {
	s.dragged = -1
}

// Dragged returns the held node or -1.
func (s *Simulation) Dragged() int {
	return s.dragged
}

// Scatter adds a random impulse to every node except the held one. The
// intensity is clamped to [0, MaxScatter].
func (s *Simulation) Scatter(intensity float64) {
	intensity = math.Max(0, math.Min(s.opts.MaxScatter, intensity))
	k := intensity * s.opts.ScatterFactor
	for i := range s.nodes {
		if i == s.dragged {
			continue
		}
		s.nodes[i].VX += (s.rng.Float64() - 0.5) * k
		s.nodes[i].VY += (s.rng.Float64() - 0.5) * k
	}
}

// Resize changes the bounds and clamps every node into them.
func (s *Simulation) Resize(width, height float64) {
	s.width, s.height = width, height
	for i := range s.nodes {
		s.constrain(&s.nodes[i])
	}
}

// Size returns the simulation bounds.
func (s *Simulation) Size() (width, height float64) {
	return s.width, s.height
}

// Len returns the number of nodes.
func (s *Simulation) Len() int {
	return len(s.nodes)
}

// Node returns node i.
func (s *Simulation) Node(i int) SimNode {
	return s.nodes[i]
}

// Nodes returns a copy of every node.
func (s *Simulation) Nodes() []SimNode {
	out := make([]SimNode, len(s.nodes))
	copy(out, s.nodes)
	return out
}

// Index returns the position of the node with the given id, or -1.
func (s *Simulation) Index(id string) int {
	for i := range s.nodes {
		if s.nodes[i].ID == id {
			return i
		}
	}
	return -1
}

// Options returns the resolved options.
func (s *Simulation) Options() Options {
	return s.opts
}
