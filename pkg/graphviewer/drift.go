package graphviewer

import (
	"math"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// Drift produces the ambient motion of a node. Offset returns a direction in
// [-1, 1] on each axis for frame t and the node's phase; the simulation
// scales it by AmbientForce.
type Drift interface {
	Offset(t, phase float64) (dx, dy float64)
}

// SineDrift combines sines and cosines with different frequency multipliers
// per axis so nodes never move in lockstep.
type SineDrift struct {
	Frequency float64
}

// Offset implements Drift.
func (d SineDrift) Offset(t, phase float64) (float64, float64) {
	f := d.Frequency
	x := math.Sin(t*f+phase) * math.Cos(t*f*0.7+phase*1.3)
	y := math.Cos(t*f*0.8+phase*0.9) * math.Sin(t*f*1.1+phase)
	return x, y
}

// NoiseDrift samples OpenSimplex noise along time, one slice per axis.
type NoiseDrift struct {
	Frequency float64
	noise     opensimplex.Noise
}

// NewNoiseDrift creates a noise drift with a fixed seed.
func NewNoiseDrift(seed int64, frequency float64) *NoiseDrift {
	return &NoiseDrift{Frequency: frequency, noise: opensimplex.New(seed)}
}

// Offset implements Drift.
func (d *NoiseDrift) Offset(t, phase float64) (float64, float64) {
	s := t * d.Frequency
	x := d.noise.Eval3(s, phase, 0)
	y := d.noise.Eval3(s, phase, 100)
	return clampUnit(x), clampUnit(y)
}

func clampUnit(v float64) float64 {
	return math.Max(-1, math.Min(1, v))
}
