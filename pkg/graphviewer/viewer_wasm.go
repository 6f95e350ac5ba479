//go:build js && wasm
// +build js,wasm

package graphviewer

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"syscall/js"
	"time"

	"github.com/recera/linkgraph/pkg/linkindex"
	"github.com/recera/linkgraph/pkg/scheduler"
)

func alive(v js.Value) bool {
	return !v.IsUndefined() && !v.IsNull()
}

// canvasSurface draws onto a 2D canvas in CSS pixels.
type canvasSurface struct {
	canvas js.Value
	ctx    js.Value
	width  float64
	height float64
	dpr    float64
}

func newCanvasSurface(canvas js.Value, width, height float64) *canvasSurface {
	s := &canvasSurface{canvas: canvas}
	s.resize(width, height)
	return s
}

func (s *canvasSurface) resize(width, height float64) {
	s.dpr = 1
	if d := js.Global().Get("devicePixelRatio"); alive(d) && d.Float() > 0 {
		s.dpr = d.Float()
	}
	s.width, s.height = width, height
	s.canvas.Set("width", int(width*s.dpr))
	s.canvas.Set("height", int(height*s.dpr))
	style := s.canvas.Get("style")
	style.Set("width", fmt.Sprintf("%gpx", width))
	style.Set("height", fmt.Sprintf("%gpx", height))
	s.ctx = s.canvas.Call("getContext", "2d")
}

func (s *canvasSurface) ok() bool {
	return alive(s.canvas) && alive(s.ctx)
}

func (s *canvasSurface) Size() (float64, float64) { return s.width, s.height }

func (s *canvasSurface) Clear() {
	if !s.ok() {
		return
	}
	s.ctx.Call("setTransform", s.dpr, 0, 0, s.dpr, 0, 0)
	s.ctx.Call("clearRect", 0, 0, s.width, s.height)
}

func (s *canvasSurface) DrawLine(l Line) {
	if !s.ok() {
		return
	}
	c := s.ctx
	g := c.Call("createLinearGradient", l.X1, l.Y1, l.X2, l.Y2)
	g.Call("addColorStop", 0, l.From)
	g.Call("addColorStop", 1, l.To)
	c.Set("globalAlpha", l.Opacity)
	c.Set("lineWidth", l.Width)
	c.Set("strokeStyle", g)
	c.Call("beginPath")
	c.Call("moveTo", l.X1, l.Y1)
	c.Call("lineTo", l.X2, l.Y2)
	c.Call("stroke")
	c.Set("globalAlpha", 1)
}

func (s *canvasSurface) DrawDisk(d Disk) {
	if !s.ok() {
		return
	}
	c := s.ctx
	c.Call("beginPath")
	c.Call("arc", d.X, d.Y, d.R, 0, math.Pi*2)
	c.Set("fillStyle", d.Fill)
	c.Call("fill")
	if d.Stroke != nil {
		c.Set("lineWidth", d.Stroke.Width)
		c.Set("strokeStyle", d.Stroke.Color)
		c.Call("stroke")
	}
}

func (s *canvasSurface) DrawLabel(l Label) {
	if !s.ok() {
		return
	}
	c := s.ctx
	c.Set("font", fmt.Sprintf("%gpx %s", l.FontSize, l.FontFamily))
	c.Set("textAlign", "center")
	c.Set("textBaseline", "bottom")
	w := c.Call("measureText", l.Text).Get("width").Float()
	c.Set("fillStyle", l.Background)
	c.Call("beginPath")
	c.Call("roundRect", l.X-w/2-l.Padding, l.Y-l.FontSize-l.Padding+2, w+2*l.Padding, l.FontSize+2*l.Padding, l.Radius)
	c.Call("fill")
	c.Set("fillStyle", l.Color)
	c.Call("fillText", l.Text, l.X, l.Y)
}

func (s *canvasSurface) SetCursor(cur Cursor) {
	if alive(s.canvas) {
		s.canvas.Get("style").Set("cursor", string(cur))
	}
}

// rafScheduler backs scheduler.Scheduler with requestAnimationFrame and
// setTimeout.
type rafScheduler struct {
	mu     sync.Mutex
	nextID scheduler.Handle
	frames map[scheduler.Handle]js.Value
	timers map[scheduler.Handle]js.Value
	funcs  map[scheduler.Handle]js.Func
}

func newRAFScheduler() *rafScheduler {
	return &rafScheduler{
		nextID: 1,
		frames: make(map[scheduler.Handle]js.Value),
		timers: make(map[scheduler.Handle]js.Value),
		funcs:  make(map[scheduler.Handle]js.Func),
	}
}

func (r *rafScheduler) add(fn func(), start func(cb js.Func) js.Value, into map[scheduler.Handle]js.Value) scheduler.Handle {
	r.mu.Lock()
	h := r.nextID
	r.nextID++
	r.mu.Unlock()

	cb := js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		r.mu.Lock()
		_, live := into[h]
		delete(into, h)
		if f, ok := r.funcs[h]; ok {
			defer f.Release()
			delete(r.funcs, h)
		}
		r.mu.Unlock()
		if live {
			fn()
		}
		return nil
	})
	id := start(cb)
	r.mu.Lock()
	into[h] = id
	r.funcs[h] = cb
	r.mu.Unlock()
	return h
}

func (r *rafScheduler) ScheduleFrame(fn func()) scheduler.Handle {
	return r.add(fn, func(cb js.Func) js.Value {
		return js.Global().Call("requestAnimationFrame", cb)
	}, r.frames)
}

func (r *rafScheduler) After(d time.Duration, fn func()) scheduler.Handle {
	return r.add(fn, func(cb js.Func) js.Value {
		return js.Global().Call("setTimeout", cb, d.Milliseconds())
	}, r.timers)
}

func (r *rafScheduler) Cancel(h scheduler.Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.frames[h]; ok {
		js.Global().Call("cancelAnimationFrame", id)
		delete(r.frames, h)
	}
	if id, ok := r.timers[h]; ok {
		js.Global().Call("clearTimeout", id)
		delete(r.timers, h)
	}
	if f, ok := r.funcs[h]; ok {
		f.Release()
		delete(r.funcs, h)
	}
}

type listener struct {
	target js.Value
	event  string
	fn     js.Func
}

// domHost attaches a view to a container element and builds the lightbox.
type domHost struct {
	container js.Value
	view      *View
	expandBtn js.Value
	lightbox  js.Value
	lbSurface *canvasSurface
	listeners []listener
	lbListen  []listener
}

func (h *domHost) on(target js.Value, event string, passive bool, fn func(e js.Value), into *[]listener) {
	f := js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		if len(args) > 0 {
			fn(args[0])
		}
		return nil
	})
	opts := map[string]interface{}{"passive": passive}
	target.Call("addEventListener", event, f, opts)
	*into = append(*into, listener{target, event, f})
}

func release(ls []listener) {
	for _, l := range ls {
		if alive(l.target) {
			l.target.Call("removeEventListener", l.event, l.fn)
		}
		l.fn.Release()
	}
}

func offset(canvas, e js.Value) (float64, float64) {
	rect := canvas.Call("getBoundingClientRect")
	return e.Get("clientX").Float() - rect.Get("left").Float(), e.Get("clientY").Float() - rect.Get("top").Float()
}

func (h *domHost) Navigate(id string) {
	js.Global().Get("location").Set("href", id)
}

func (h *domHost) OpenLightbox() (Surface, error) {
	doc := js.Global().Get("document")
	if !alive(doc) {
		return nil, errors.New("no document")
	}
	box := doc.Call("createElement", "div")
	box.Set("className", "graph-lightbox")
	closeBtn := doc.Call("createElement", "button")
	closeBtn.Set("className", "graph-lightbox-close")
	closeBtn.Set("innerHTML", `<svg width="24" height="24" viewBox="0 0 24 24" fill="none" stroke="currentColor" stroke-width="2"><path d="M18 6L6 18M6 6l12 12"/></svg>`)
	canvas := doc.Call("createElement", "canvas")
	canvas.Set("className", "graph-lightbox-canvas")
	box.Call("appendChild", closeBtn)
	box.Call("appendChild", canvas)
	doc.Get("body").Call("appendChild", box)
	doc.Get("body").Get("style").Set("overflow", "hidden")

	w, ht := LightboxSize(js.Global().Get("innerWidth").Float(), js.Global().Get("innerHeight").Float())
	h.lightbox = box
	h.lbSurface = newCanvasSurface(canvas, w, ht)

	v := h.view
	h.on(closeBtn, "click", true, func(js.Value) { v.CloseLightbox() }, &h.lbListen)
	h.on(canvas, "mousemove", true, func(e js.Value) { x, y := offset(canvas, e); v.PointerMove(Lightbox, x, y) }, &h.lbListen)
	h.on(canvas, "mousedown", true, func(e js.Value) { x, y := offset(canvas, e); v.PointerDown(Lightbox, x, y) }, &h.lbListen)
	h.on(canvas, "mouseup", true, func(e js.Value) { x, y := offset(canvas, e); v.PointerUp(Lightbox, x, y) }, &h.lbListen)
	h.on(canvas, "mouseleave", true, func(js.Value) { v.PointerLeave(Lightbox) }, &h.lbListen)
	h.on(canvas, "click", true, func(e js.Value) {
		e.Call("stopPropagation")
		x, y := offset(canvas, e)
		v.Click(Lightbox, x, y)
	}, &h.lbListen)
	h.on(canvas, "wheel", false, func(e js.Value) {
		e.Call("preventDefault")
		v.Wheel(Lightbox, e.Get("deltaX").Float(), e.Get("deltaY").Float())
	}, &h.lbListen)
	h.on(canvas, "touchmove", false, func(e js.Value) {
		e.Call("preventDefault")
		v.TouchMove(Lightbox)
	}, &h.lbListen)
	h.on(box, "click", true, func(e js.Value) {
		if e.Get("target").Equal(box) {
			v.BackdropClick()
		}
	}, &h.lbListen)

	var activate js.Func
	activate = js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		if alive(box) {
			box.Get("classList").Call("add", "active")
		}
		activate.Release()
		return nil
	})
	js.Global().Call("requestAnimationFrame", activate)
	return h.lbSurface, nil
}

func (h *domHost) DismissLightbox(Surface) {
	if alive(h.lightbox) {
		h.lightbox.Get("classList").Call("remove", "active")
	}
}

func (h *domHost) RemoveLightbox(Surface) {
	release(h.lbListen)
	h.lbListen = nil
	if alive(h.lightbox) {
		h.lightbox.Call("remove")
	}
	h.lightbox = js.Null()
	h.lbSurface = nil
	js.Global().Get("document").Get("body").Get("style").Set("overflow", "")
}

func (h *domHost) Detach() {
	release(h.listeners)
	h.listeners = nil
	if alive(h.expandBtn) {
		h.expandBtn.Call("remove")
	}
	h.container.Set("_graph", js.Undefined())
}

// Mount reads data-current and data-graph from a container element, draws
// the neighborhood on the container's canvas and wires input. A container
// without usable graph data is left untouched and ErrEmptyGraph returned.
func Mount(container js.Value, opts *Options, vopts ...ViewOption) (*View, error) {
	if !alive(container) {
		return nil, errors.New("graphviewer: no container")
	}
	embed, ok := linkindex.ParseEmbed(container.Get("dataset").Get("graph").String())
	if !ok {
		return nil, ErrEmptyGraph
	}
	if cur := container.Get("dataset").Get("current"); alive(cur) {
		embed.Current = cur.String()
	}

	doc := js.Global().Get("document")
	canvas := container.Call("querySelector", "canvas")
	if !alive(canvas) {
		canvas = doc.Call("createElement", "canvas")
		container.Call("appendChild", canvas)
	}

	width := container.Call("getBoundingClientRect").Get("width").Float()
	surface := newCanvasSurface(canvas, width, InlineHeight(width))
	host := &domHost{container: container, lightbox: js.Null()}

	v, err := NewView(surface, host, newRAFScheduler(), embed, opts, vopts...)
	if err != nil {
		return nil, err
	}
	host.view = v

	h := host
	h.on(canvas, "mousemove", true, func(e js.Value) { x, y := offset(canvas, e); v.PointerMove(Inline, x, y) }, &h.listeners)
	h.on(canvas, "mousedown", true, func(e js.Value) { x, y := offset(canvas, e); v.PointerDown(Inline, x, y) }, &h.listeners)
	h.on(canvas, "mouseup", true, func(e js.Value) { x, y := offset(canvas, e); v.PointerUp(Inline, x, y) }, &h.listeners)
	h.on(canvas, "mouseleave", true, func(js.Value) { v.PointerLeave(Inline) }, &h.listeners)
	h.on(canvas, "click", true, func(e js.Value) { x, y := offset(canvas, e); v.Click(Inline, x, y) }, &h.listeners)
	h.on(canvas, "wheel", false, func(e js.Value) {
		e.Call("preventDefault")
		v.Wheel(Inline, e.Get("deltaX").Float(), e.Get("deltaY").Float())
	}, &h.listeners)
	h.on(canvas, "touchmove", false, func(e js.Value) {
		e.Call("preventDefault")
		v.TouchMove(Inline)
	}, &h.listeners)
	h.on(js.Global(), "resize", true, func(js.Value) {
		w := container.Call("getBoundingClientRect").Get("width").Float()
		surface.resize(w, InlineHeight(w))
		if h.lbSurface != nil {
			lw, lh := LightboxSize(js.Global().Get("innerWidth").Float(), js.Global().Get("innerHeight").Float())
			h.lbSurface.resize(lw, lh)
		}
		v.Resize()
	}, &h.listeners)
	h.on(doc, "keydown", true, func(e js.Value) { v.KeyDown(e.Get("key").String()) }, &h.listeners)

	btn := doc.Call("createElement", "button")
	btn.Set("className", "graph-expand-btn")
	btn.Set("title", "Expand graph")
	btn.Set("innerHTML", `<svg width="16" height="16" viewBox="0 0 24 24" fill="none" stroke="currentColor" stroke-width="2"><path d="M8 3H5a2 2 0 0 0-2 2v3m18 0V5a2 2 0 0 0-2-2h-3m0 18h3a2 2 0 0 0 2-2v-3M3 16v3a2 2 0 0 0 2 2h3"/></svg>`)
	h.on(btn, "click", true, func(e js.Value) {
		e.Call("stopPropagation")
		v.ExpandClick()
	}, &h.listeners)
	container.Call("appendChild", btn)
	host.expandBtn = btn

	v.Start()
	return v, nil
}
