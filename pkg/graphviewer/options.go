package graphviewer

// Palette maps collection names to node colors.
var Palette = map[string]string{
	"blog":      "#c084a8", // rose
	"notes":     "#9b8abf", // purple
	"talks":     "#7c9fc9", // blue
	"uses":      "#6faa96", // green
	"now":       "#c9a86c", // amber
	"changelog": "#8b8fc9", // indigo
	"about":     "#8a9299", // slate
	"homelab":   "#c98a8a", // red
}

// DefaultColor is used for collections missing from the palette.
const DefaultColor = "#8a9299"

// Options configures the simulation and its rendering. Zero fields take
// their defaults.
type Options struct {
	// Settling forces
	CenterForce     float64 // default 0.08
	ChargeStrength  float64 // default -80
	LinkDistance    float64 // default 50
	LinkStrength    float64 // default 0.1
	CollisionRadius float64 // default 18
	AlphaDecay      float64 // default 0.015
	VelocityDecay   float64 // default 0.5
	Iterations      int     // default 100

	// Live phase
	Friction         float64 // default 0.92
	MinSpeed         float64 // default 0.01
	AmbientForce     float64 // default 0.015
	AmbientFrequency float64 // default 0.0008
	ScatterFactor    float64 // default 3
	MaxScatter       float64 // default 100/30
	Drift            Drift   // default SineDrift at AmbientFrequency

	// Rendering
	NodeRadius        float64 // default 5
	CurrentNodeRadius float64 // default 8
	NodeStrokeWidth   float64 // default 1.5
	NodeMargin        float64 // default 10
	HoverScale        float64 // default 1.4
	LinkWidth         float64 // default 1
	LinkOpacity       float64 // default 0.25
	FontSize          float64 // default 10
	FontFamily        string  // default "SN Pro, system-ui, sans-serif"
	Colors            map[string]string

	// Seed drives initial placement, phase offsets and scatter impulses.
	// Zero seeds from the clock.
	Seed uint64
}

func (o *Options) withDefaults() Options {
	d := Options{
		CenterForce:       0.08,
		ChargeStrength:    -80,
		LinkDistance:      50,
		LinkStrength:      0.1,
		CollisionRadius:   18,
		AlphaDecay:        0.015,
		VelocityDecay:     0.5,
		Iterations:        100,
		Friction:          0.92,
		MinSpeed:          0.01,
		AmbientForce:      0.015,
		AmbientFrequency:  0.0008,
		ScatterFactor:     3,
		MaxScatter:        100.0 / 30.0,
		NodeRadius:        5,
		CurrentNodeRadius: 8,
		NodeStrokeWidth:   1.5,
		NodeMargin:        10,
		HoverScale:        1.4,
		LinkWidth:         1,
		LinkOpacity:       0.25,
		FontSize:          10,
		FontFamily:        "SN Pro, system-ui, sans-serif",
		Colors:            Palette,
	}
	if o == nil {
		d.Drift = SineDrift{Frequency: d.AmbientFrequency}
		return d
	}
	setF := func(dst *float64, v float64) {
		if v != 0 {
			*dst = v
		}
	}
	setF(&d.CenterForce, o.CenterForce)
	setF(&d.ChargeStrength, o.ChargeStrength)
	setF(&d.LinkDistance, o.LinkDistance)
	setF(&d.LinkStrength, o.LinkStrength)
	setF(&d.CollisionRadius, o.CollisionRadius)
	setF(&d.AlphaDecay, o.AlphaDecay)
	setF(&d.VelocityDecay, o.VelocityDecay)
	setF(&d.Friction, o.Friction)
	setF(&d.MinSpeed, o.MinSpeed)
	setF(&d.AmbientForce, o.AmbientForce)
	setF(&d.AmbientFrequency, o.AmbientFrequency)
	setF(&d.ScatterFactor, o.ScatterFactor)
	setF(&d.MaxScatter, o.MaxScatter)
	setF(&d.NodeRadius, o.NodeRadius)
	setF(&d.CurrentNodeRadius, o.CurrentNodeRadius)
	setF(&d.NodeStrokeWidth, o.NodeStrokeWidth)
	setF(&d.NodeMargin, o.NodeMargin)
	setF(&d.HoverScale, o.HoverScale)
	setF(&d.LinkWidth, o.LinkWidth)
	setF(&d.LinkOpacity, o.LinkOpacity)
	setF(&d.FontSize, o.FontSize)
	if o.Iterations != 0 {
		d.Iterations = o.Iterations
	}
	if o.FontFamily != "" {
		d.FontFamily = o.FontFamily
	}
	if o.Colors != nil {
		d.Colors = o.Colors
	}
	d.Seed = o.Seed
	d.Drift = o.Drift
	if d.Drift == nil {
		d.Drift = SineDrift{Frequency: d.AmbientFrequency}
	}
	return d
}

// ColorFor returns the node color of a collection.
func (o *Options) ColorFor(collection string) string {
	if c, ok := o.Colors[collection]; ok {
		return c
	}
	return DefaultColor
}

// InlineHeight is the inline surface height for a container of the given
// width: half the width, kept between 200 and 300.
func InlineHeight(width float64) float64 {
	h := width * 0.5
	if h < 200 {
		h = 200
	}
	if h > 300 {
		h = 300
	}
	return h
}

// LightboxSize is the lightbox surface size for a window: the window minus
// 60px padding per side, capped at 900x600.
func LightboxSize(windowW, windowH float64) (w, h float64) {
	const padding = 60
	w = windowW - 2*padding
	h = windowH - 2*padding
	if w > 900 {
		w = 900
	}
	if h > 600 {
		h = 600
	}
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	return w, h
}
