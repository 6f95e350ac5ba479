// Package graphviewer lays out a page neighborhood with a small force
// simulation and draws it interactively onto one or two surfaces: an inline
// surface that lives as long as the view, and an optional lightbox.
package graphviewer

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/recera/linkgraph/pkg/linkindex"
	"github.com/recera/linkgraph/pkg/scheduler"
)

// ErrEmptyGraph is returned by NewView when there is nothing to draw.
var ErrEmptyGraph = errors.New("graph has no nodes")

// LightboxCloseDelay is how long a dismissed lightbox stays mounted for its
// exit transition.
const LightboxCloseDelay = 200 * time.Millisecond

// dragThreshold is how far the pointer must travel during a press for the
// following click to count as the end of a drag.
const dragThreshold = 3.0

// Target names the surface an input event happened on.
type Target int

const (
	Inline Target = iota
	Lightbox
)

func (t Target) String() string {
	if t == Lightbox {
		return "lightbox"
	}
	return "inline"
}

// Host is the platform around a view. A view calls its host while holding
// its own lock, so host methods must not call back into the view.
type Host interface {
	// Navigate opens the page with the given id.
	Navigate(id string)
	// OpenLightbox creates and shows the lightbox surface.
	OpenLightbox() (Surface, error)
	// DismissLightbox starts the lightbox exit transition.
	DismissLightbox(s Surface)
	// RemoveLightbox tears the lightbox surface down.
	RemoveLightbox(s Surface)
	// Detach removes everything the host attached for this view.
	Detach()
}

// View drives a simulation and its surfaces from input events and frames.
// All methods are safe to call from any goroutine and become no-ops after
// Destroy.
type View struct {
	mu        sync.Mutex
	sim       *Simulation
	sched     scheduler.Scheduler
	host      Host
	logger    *slog.Logger
	current   string
	inline    *layer
	lightbox  *layer
	frame     scheduler.Handle
	closeT    scheduler.Handle
	running   bool
	destroyed bool

	pressed    bool
	pressOn    Target
	pressX     float64
	pressY     float64
	dragMoved  bool
	suppressed bool // click that ends a drag
}

// ViewOption configures a View.
type ViewOption func(*View)

// WithLogger sets the view's logger.
func WithLogger(l *slog.Logger) ViewOption {
	return func(v *View) { v.logger = l }
}

// NewView lays out embed on the inline surface. The simulation bounds match
// the inline surface's size. An embed without nodes yields ErrEmptyGraph.
func NewView(inline Surface, host Host, sched scheduler.Scheduler, embed linkindex.Embed, opts *Options, vopts ...ViewOption) (*View, error) {
	if len(embed.Graph.Nodes) == 0 {
		return nil, ErrEmptyGraph
	}
	if inline == nil || host == nil || sched == nil {
		return nil, fmt.Errorf("graphviewer: surface, host and scheduler are required")
	}
	w, h := inline.Size()
	v := &View{
		sim:     NewSimulation(embed.Graph, embed.Current, w, h, opts),
		sched:   sched,
		host:    host,
		logger:  slog.Default(),
		current: embed.Current,
	}
	for _, opt := range vopts {
		opt(v)
	}
	v.inline = newLayer(inline, v.sim, false)
	render(v.sim, v.inline, -1, nil)
	return v, nil
}

// Start begins the animation loop.
func (v *View) Start() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.destroyed || v.running {
		return
	}
	v.running = true
	v.frame = v.sched.ScheduleFrame(v.onFrame)
}

func (v *View) onFrame() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.destroyed || !v.running {
		return
	}
	v.sim.Tick()
	v.drawLocked()
	v.frame = v.sched.ScheduleFrame(v.onFrame)
}

// Draw renders the current state without advancing the simulation.
func (v *View) Draw() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.destroyed {
		return
	}
	v.drawLocked()
}

func (v *View) drawLocked() {
	hovered := v.inline.hovered
	if v.lightbox != nil {
		hovered = -1
	}
	render(v.sim, v.inline, hovered, func(i int, _ *SimNode) bool { return i == hovered })

	if lb := v.lightbox; lb != nil {
		render(v.sim, lb, lb.hovered, func(i int, n *SimNode) bool {
			return i == lb.hovered || n.IsCurrent
		})
	}
}

// layerFor returns the live layer an event targets, or nil when the target
// is gone, closing or the view is destroyed.
func (v *View) layerFor(t Target) *layer {
	if v.destroyed {
		return nil
	}
	if t == Lightbox {
		if v.lightbox == nil || v.lightbox.closing {
			return nil
		}
		return v.lightbox
	}
	return v.inline
}

// PointerMove updates hover state, or moves the held node during a drag.
func (v *View) PointerMove(t Target, x, y float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	l := v.layerFor(t)
	if l == nil {
		return
	}

	if v.pressed && v.pressOn == t && v.sim.Dragged() >= 0 {
		if math.Hypot(x-v.pressX, y-v.pressY) >= dragThreshold {
			v.dragMoved = true
		}
		wx, wy := l.viewport.ToWorld(x, y)
		v.sim.DragTo(wx, wy)
		return
	}

	l.hovered = l.HitTest(v.sim, x, y)
	if l.hovered >= 0 {
		l.setCursor(CursorGrab)
	} else {
		l.setCursor(CursorDefault)
	}
}

// PointerDown starts dragging the node under the pointer, if any.
func (v *View) PointerDown(t Target, x, y float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	l := v.layerFor(t)
	if l == nil {
		return
	}
	v.pressed, v.pressOn, v.pressX, v.pressY = true, t, x, y
	v.dragMoved = false
	v.suppressed = false

	i := l.HitTest(v.sim, x, y)
	if i < 0 {
		return
	}
	l.hovered = i
	v.sim.BeginDrag(i)
	l.setCursor(CursorGrabbing)
}

// PointerUp releases a held node.
func (v *View) PointerUp(t Target, x, y float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	l := v.layerFor(t)
	if l == nil {
		return
	}
	v.endPressLocked()
	if l.hovered >= 0 {
		if t == Lightbox {
			l.setCursor(CursorGrab)
		} else {
			l.setCursor(CursorPointer)
		}
	} else {
		l.setCursor(CursorDefault)
	}
}

func (v *View) endPressLocked() {
	if v.pressed && v.dragMoved {
		v.suppressed = true
	}
	v.pressed = false
	v.dragMoved = false
	v.sim.EndDrag()
}

// PointerLeave clears hover and abandons a drag.
func (v *View) PointerLeave(t Target) {
	v.mu.Lock()
	defer v.mu.Unlock()
	l := v.layerFor(t)
	if l == nil {
		return
	}
	l.hovered = -1
	if v.pressed && v.pressOn == t {
		v.pressed = false
		v.dragMoved = false
		v.sim.EndDrag()
	}
}

// Click navigates to a clicked node other than the current page. A click on
// empty inline space opens the lightbox. A click that ends a drag does
// nothing.
func (v *View) Click(t Target, x, y float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	l := v.layerFor(t)
	if l == nil {
		return
	}
	if v.suppressed {
		v.suppressed = false
		return
	}
	if v.pressed || v.sim.Dragged() >= 0 {
		return
	}

	i := l.HitTest(v.sim, x, y)
	switch {
	case i >= 0:
		if n := v.sim.nodes[i]; !n.IsCurrent {
			v.host.Navigate(n.ID)
		}
	case t == Inline:
		v.openLightboxLocked()
	}
}

// Wheel scatters the nodes with an intensity taken from the scroll delta.
func (v *View) Wheel(t Target, dx, dy float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.layerFor(t) == nil {
		return
	}
	v.sim.Scatter(math.Min(math.Abs(dx)+math.Abs(dy), 100) / 30)
}

// TouchMove scatters the nodes; swipes in the lightbox scatter harder.
func (v *View) TouchMove(t Target) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.layerFor(t) == nil {
		return
	}
	if t == Lightbox {
		v.sim.Scatter(3)
	} else {
		v.sim.Scatter(2)
	}
}

// Resize re-reads the surface sizes. The simulation follows the inline
// surface; the lightbox keeps fitting the simulation.
func (v *View) Resize() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.destroyed {
		return
	}
	w, h := v.inline.surface.Size()
	v.sim.Resize(w, h)
	v.inline.fit(v.sim)
	if v.lightbox != nil {
		v.lightbox.fit(v.sim)
	}
	v.drawLocked()
}

// KeyDown handles keyboard input; Escape closes the lightbox.
func (v *View) KeyDown(key string) {
	if key != "Escape" && key != "esc" {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.destroyed {
		return
	}
	v.closeLightboxLocked()
}

// ExpandClick opens the lightbox.
func (v *View) ExpandClick() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.destroyed {
		return
	}
	v.openLightboxLocked()
}

// BackdropClick closes the lightbox.
func (v *View) BackdropClick() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.destroyed {
		return
	}
	v.closeLightboxLocked()
}

// OpenLightbox opens the lightbox if it is not already open.
func (v *View) OpenLightbox() {
	v.ExpandClick()
}

// CloseLightbox starts closing the lightbox if it is open.
func (v *View) CloseLightbox() {
	v.BackdropClick()
}

func (v *View) openLightboxLocked() {
	if v.lightbox != nil {
		return
	}
	s, err := v.host.OpenLightbox()
	if err != nil {
		v.logger.Warn("failed to open lightbox", "err", err)
		return
	}
	if s == nil {
		return
	}
	v.lightbox = newLayer(s, v.sim, true)
	v.inline.hovered = -1
	v.drawLocked()
}

func (v *View) closeLightboxLocked() {
	lb := v.lightbox
	if lb == nil || lb.closing {
		return
	}
	lb.closing = true
	lb.hovered = -1
	if v.pressed && v.pressOn == Lightbox {
		v.pressed = false
		v.sim.EndDrag()
	}
	v.host.DismissLightbox(lb.surface)
	v.closeT = v.sched.After(LightboxCloseDelay, func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		if v.destroyed || v.lightbox != lb {
			return
		}
		v.lightbox = nil
		v.closeT = 0
		v.host.RemoveLightbox(lb.surface)
	})
}

// Destroy stops the animation loop, removes the lightbox and detaches the
// host. Calling it again does nothing.
func (v *View) Destroy() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.destroyed {
		return
	}
	v.destroyed = true
	v.running = false
	if v.frame != 0 {
		v.sched.Cancel(v.frame)
		v.frame = 0
	}
	if v.closeT != 0 {
		v.sched.Cancel(v.closeT)
		v.closeT = 0
	}
	if lb := v.lightbox; lb != nil {
		v.lightbox = nil
		v.host.RemoveLightbox(lb.surface)
	}
	v.sim.EndDrag()
	v.host.Detach()
}

// State is a snapshot of a view for inspection.
type State struct {
	Nodes           []SimNode
	InlineHovered   string
	LightboxHovered string
	LightboxOpen    bool
	LightboxClosing bool
	Dragged         string
	Destroyed       bool
}

// State returns a snapshot of the view.
func (v *View) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	st := State{Nodes: v.sim.Nodes(), Destroyed: v.destroyed}
	id := func(i int) string {
		if i < 0 || i >= v.sim.Len() {
			return ""
		}
		return v.sim.nodes[i].ID
	}
	st.InlineHovered = id(v.inline.hovered)
	st.Dragged = id(v.sim.Dragged())
	if lb := v.lightbox; lb != nil {
		st.LightboxOpen = true
		st.LightboxClosing = lb.closing
		st.LightboxHovered = id(lb.hovered)
	}
	return st
}

// ScreenPosition returns where node id is drawn on the target surface.
func (v *View) ScreenPosition(t Target, id string) (x, y float64, ok bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	var l *layer
	if t == Lightbox {
		l = v.lightbox
	} else {
		l = v.inline
	}
	i := v.sim.Index(id)
	if l == nil || i < 0 {
		return 0, 0, false
	}
	n := v.sim.nodes[i]
	x, y = l.viewport.ToScreen(n.X, n.Y)
	return x, y, true
}
