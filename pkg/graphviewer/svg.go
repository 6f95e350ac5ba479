package graphviewer

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"strconv"
	"unicode/utf8"

	"github.com/recera/linkgraph/pkg/linkindex"
)

// SVGSurface records drawing calls as an SVG document.
type SVGSurface struct {
	width, height float64
	Background    string
	defs          bytes.Buffer
	body          bytes.Buffer
	gradients     int
	cursor        Cursor
}

// NewSVGSurface creates an empty SVG surface.
func NewSVGSurface(width, height float64) *SVGSurface {
	return &SVGSurface{width: width, height: height}
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func round2(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}

// Size implements Surface.
func (s *SVGSurface) Size() (float64, float64) { return s.width, s.height }

// Clear implements Surface.
func (s *SVGSurface) Clear() {
	s.defs.Reset()
	s.body.Reset()
	s.gradients = 0
}

// DrawLine implements Surface.
func (s *SVGSurface) DrawLine(l Line) {
	s.gradients++
	id := fmt.Sprintf("edge%d", s.gradients)
	fmt.Fprintf(&s.defs,
		`<linearGradient id="%s" gradientUnits="userSpaceOnUse" x1="%s" y1="%s" x2="%s" y2="%s"><stop offset="0" stop-color="%s"/><stop offset="1" stop-color="%s"/></linearGradient>`+"\n",
		id, round2(l.X1), round2(l.Y1), round2(l.X2), round2(l.Y2), html.EscapeString(l.From), html.EscapeString(l.To))
	fmt.Fprintf(&s.body,
		`<line x1="%s" y1="%s" x2="%s" y2="%s" stroke="url(#%s)" stroke-width="%s" stroke-opacity="%s"/>`+"\n",
		round2(l.X1), round2(l.Y1), round2(l.X2), round2(l.Y2), id, num(l.Width), num(l.Opacity))
}

// DrawDisk implements Surface.
func (s *SVGSurface) DrawDisk(d Disk) {
	fmt.Fprintf(&s.body, `<circle cx="%s" cy="%s" r="%s" fill="%s"`,
		round2(d.X), round2(d.Y), round2(d.R), html.EscapeString(d.Fill))
	if d.Stroke != nil {
		fmt.Fprintf(&s.body, ` stroke="%s" stroke-width="%s"`, html.EscapeString(d.Stroke.Color), num(d.Stroke.Width))
	}
	s.body.WriteString("/>\n")
}

// DrawLabel implements Surface. Text width is estimated from the rune count.
func (s *SVGSurface) DrawLabel(l Label) {
	w := float64(utf8.RuneCountInString(l.Text)) * l.FontSize * 0.6
	fmt.Fprintf(&s.body,
		`<rect x="%s" y="%s" width="%s" height="%s" rx="%s" fill="%s"/>`+"\n",
		round2(l.X-w/2-l.Padding), round2(l.Y-l.FontSize-l.Padding+2),
		round2(w+2*l.Padding), round2(l.FontSize+2*l.Padding), num(l.Radius), html.EscapeString(l.Background))
	fmt.Fprintf(&s.body,
		`<text x="%s" y="%s" font-size="%s" font-family="%s" fill="%s" text-anchor="middle">%s</text>`+"\n",
		round2(l.X), round2(l.Y), num(l.FontSize), html.EscapeString(l.FontFamily), html.EscapeString(l.Color), html.EscapeString(l.Text))
}

// SetCursor implements Surface. SVG output has no pointer, so the hint is
// only recorded.
func (s *SVGSurface) SetCursor(c Cursor) { s.cursor = c }

// WriteTo writes the SVG document.
func (s *SVGSurface) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" width="%s" height="%s" viewBox="0 0 %s %s">`+"\n",
		num(s.width), num(s.height), num(s.width), num(s.height))
	if s.Background != "" {
		fmt.Fprintf(&buf, `<rect width="100%%" height="100%%" fill="%s"/>`+"\n", html.EscapeString(s.Background))
	}
	if s.defs.Len() > 0 {
		buf.WriteString("<defs>\n")
		buf.Write(s.defs.Bytes())
		buf.WriteString("</defs>\n")
	}
	buf.Write(s.body.Bytes())
	buf.WriteString("</svg>\n")
	return buf.WriteTo(w)
}

// Bytes returns the SVG document.
func (s *SVGSurface) Bytes() []byte {
	var buf bytes.Buffer
	_, _ = s.WriteTo(&buf)
	return buf.Bytes()
}

// Snapshot settles embed in a width×height area and renders it as SVG, with
// the current page labelled.
func Snapshot(embed linkindex.Embed, width, height float64, background string, opts *Options) ([]byte, error) {
	if len(embed.Graph.Nodes) == 0 {
		return nil, ErrEmptyGraph
	}
	sim := NewSimulation(embed.Graph, embed.Current, width, height, opts)
	surface := NewSVGSurface(width, height)
	surface.Background = background
	l := newLayer(surface, sim, false)
	render(sim, l, -1, func(_ int, n *SimNode) bool { return n.IsCurrent })
	return surface.Bytes(), nil
}
