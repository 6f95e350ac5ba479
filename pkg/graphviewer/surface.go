package graphviewer

// Cursor is a pointer style hint.
type Cursor string

const (
	CursorDefault  Cursor = "default"
	CursorPointer  Cursor = "pointer"
	CursorGrab     Cursor = "grab"
	CursorGrabbing Cursor = "grabbing"
)

// Line is an edge segment in surface coordinates, shaded from one color to
// the other.
type Line struct {
	X1, Y1, X2, Y2 float64
	From, To       string
	Width          float64
	Opacity        float64
}

// Stroke outlines a disk.
type Stroke struct {
	Color string
	Width float64
}

// Disk is a filled node circle in surface coordinates.
type Disk struct {
	X, Y, R float64
	Fill    string
	Stroke  *Stroke
}

// Label is a text tag anchored at its bottom center.
type Label struct {
	X, Y       float64
	Text       string
	FontSize   float64
	FontFamily string
	Padding    float64
	Radius     float64
	Background string
	Color      string
}

// Surface is a drawing target. Coordinates are in the surface's own units;
// the view maps simulation coordinates through a Viewport before drawing.
type Surface interface {
	Size() (width, height float64)
	Clear()
	DrawLine(l Line)
	DrawDisk(d Disk)
	DrawLabel(l Label)
	SetCursor(c Cursor)
}

// Viewport maps simulation coordinates onto a surface.
type Viewport struct {
	Width, Height    float64
	Scale            float64
	OffsetX, OffsetY float64
}

// FitViewport scales a world of worldW×worldH to fit a surface, multiplies
// the scale by factor and centers the result.
func FitViewport(surfaceW, surfaceH, worldW, worldH, factor float64) Viewport {
	scale := 1.0
	if worldW > 0 && worldH > 0 {
		scale = min(surfaceW/worldW, surfaceH/worldH)
	}
	if factor > 0 {
		scale *= factor
	}
	if scale <= 0 {
		scale = 1
	}
	return Viewport{
		Width:   surfaceW,
		Height:  surfaceH,
		Scale:   scale,
		OffsetX: (surfaceW - worldW*scale) / 2,
		OffsetY: (surfaceH - worldH*scale) / 2,
	}
}

// ToScreen maps a simulation point onto the surface.
func (v Viewport) ToScreen(x, y float64) (float64, float64) {
	return x*v.Scale + v.OffsetX, y*v.Scale + v.OffsetY
}

// ToWorld maps a surface point back into the simulation.
func (v Viewport) ToWorld(x, y float64) (float64, float64) {
	return (x - v.OffsetX) / v.Scale, (y - v.OffsetY) / v.Scale
}

// layer is one surface of a view with its own transform and hover state.
type layer struct {
	surface   Surface
	viewport  Viewport
	nodeScale float64
	tolerance float64
	opacity   float64
	hovered   int
	cursor    Cursor
	lightbox  bool
	closing   bool
}

func newLayer(s Surface, sim *Simulation, lightbox bool) *layer {
	l := &layer{surface: s, hovered: -1, lightbox: lightbox}
	l.nodeScale, l.tolerance, l.opacity = 1, 1.8, 1
	if lightbox {
		l.nodeScale, l.tolerance, l.opacity = 1.5, 1.5, 1.5
	}
	l.fit(sim)
	return l
}

func (l *layer) fit(sim *Simulation) {
	w, h := l.surface.Size()
	ww, wh := sim.Size()
	factor := 1.0
	if l.lightbox {
		factor = 0.85
	}
	l.viewport = FitViewport(w, h, ww, wh, factor)
}

// HitTest returns the node under surface point (x, y), or -1.
func (l *layer) HitTest(sim *Simulation, x, y float64) int {
	wx, wy := l.viewport.ToWorld(x, y)
	return sim.NodeAt(wx, wy, l.tolerance, l.nodeScale)
}

func (l *layer) setCursor(c Cursor) {
	if l.cursor == c {
		return
	}
	l.cursor = c
	l.surface.SetCursor(c)
}

// labelPolicy decides which nodes get a label on a layer.
type labelPolicy func(i int, n *SimNode) bool

// render draws one frame of sim onto l.
func render(sim *Simulation, l *layer, hovered int, labels labelPolicy) {
	o := &sim.opts
	vp := l.viewport
	s := l.surface
	s.Clear()

	for _, link := range sim.links {
		a, b := &sim.nodes[link.source], &sim.nodes[link.target]
		x1, y1 := vp.ToScreen(a.X, a.Y)
		x2, y2 := vp.ToScreen(b.X, b.Y)
		s.DrawLine(Line{
			X1: x1, Y1: y1, X2: x2, Y2: y2,
			From: a.Color, To: b.Color,
			Width:   o.LinkWidth,
			Opacity: o.LinkOpacity * l.opacity,
		})
	}

	for i := range sim.nodes {
		n := &sim.nodes[i]
		r := o.NodeRadius
		switch {
		case n.IsCurrent:
			r = o.CurrentNodeRadius
		case i == hovered:
			r = o.NodeRadius * o.HoverScale
		}
		x, y := vp.ToScreen(n.X, n.Y)
		d := Disk{X: x, Y: y, R: r * l.nodeScale * vp.Scale, Fill: n.Color}
		if n.IsCurrent {
			d.Stroke = &Stroke{Color: "rgba(255, 255, 255, 0.6)", Width: o.NodeStrokeWidth * vp.Scale}
		}
		s.DrawDisk(d)
	}

	for i := range sim.nodes {
		n := &sim.nodes[i]
		if labels == nil || !labels(i, n) {
			continue
		}
		r := sim.Radius(i) * l.nodeScale
		x, y := vp.ToScreen(n.X, n.Y-r-6)
		s.DrawLabel(Label{
			X: x, Y: y,
			Text:       n.Title,
			FontSize:   o.FontSize * vp.Scale,
			FontFamily: o.FontFamily,
			Padding:    4 * vp.Scale,
			Radius:     4 * vp.Scale,
			Background: "rgba(0, 0, 0, 0.8)",
			Color:      "#ffffff",
		})
	}
}
