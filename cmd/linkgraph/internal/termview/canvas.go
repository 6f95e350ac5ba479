package termview

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"

	"github.com/recera/linkgraph/pkg/graphviewer"
)

// A terminal cell stands for a CellWidth×CellHeight block of surface units,
// roughly the aspect ratio of a monospace glyph.
const (
	CellWidth  = 6.0
	CellHeight = 12.0
)

const (
	edgeGlyph    = '·'
	nodeGlyph    = '●'
	currentGlyph = '◉'
	labelBG      = "#1f2329"
)

type cell struct {
	ch rune
	fg string
	bg string
}

// Canvas is a graphviewer.Surface drawn with terminal cells.
type Canvas struct {
	cols, rows int
	cells      []cell
	cursor     graphviewer.Cursor
	dim        bool
}

// NewCanvas creates a blank canvas of cols×rows cells.
func NewCanvas(cols, rows int) *Canvas {
	c := &Canvas{}
	c.Resize(cols, rows)
	return c
}

// Resize changes the canvas dimensions and clears it.
func (c *Canvas) Resize(cols, rows int) {
	c.cols, c.rows = max(cols, 1), max(rows, 1)
	c.cells = make([]cell, c.cols*c.rows)
	c.Clear()
}

// Cells returns the canvas dimensions in cells.
func (c *Canvas) Cells() (cols, rows int) { return c.cols, c.rows }

// Cursor returns the last cursor hint the view set.
func (c *Canvas) Cursor() graphviewer.Cursor { return c.cursor }

// Size implements graphviewer.Surface.
func (c *Canvas) Size() (float64, float64) {
	return float64(c.cols) * CellWidth, float64(c.rows) * CellHeight
}

// Clear implements graphviewer.Surface.
func (c *Canvas) Clear() {
	for i := range c.cells {
		c.cells[i] = cell{ch: ' '}
	}
}

// ToCell maps surface units to the cell containing them.
func ToCell(x, y float64) (col, row int) {
	return int(math.Floor(x / CellWidth)), int(math.Floor(y / CellHeight))
}

// FromCell maps a cell to the surface point at its center.
func FromCell(col, row int) (x, y float64) {
	return (float64(col) + 0.5) * CellWidth, (float64(row) + 0.5) * CellHeight
}

func (c *Canvas) set(col, row int, ch rune, fg, bg string) {
	if col < 0 || row < 0 || col >= c.cols || row >= c.rows {
		return
	}
	c.cells[row*c.cols+col] = cell{ch: ch, fg: fg, bg: bg}
}

func (c *Canvas) at(col, row int) cell {
	if col < 0 || row < 0 || col >= c.cols || row >= c.rows {
		return cell{}
	}
	return c.cells[row*c.cols+col]
}

// DrawLine implements graphviewer.Surface with a Bresenham walk between the
// endpoint cells. The first half takes the source color, the rest the
// target color.
func (c *Canvas) DrawLine(l graphviewer.Line) {
	x0, y0 := ToCell(l.X1, l.Y1)
	x1, y1 := ToCell(l.X2, l.Y2)

	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	steps := max(dx, -dy)
	err := dx + dy
	for i := 0; ; i++ {
		fg := l.From
		if 2*i > steps {
			fg = l.To
		}
		if c.at(x0, y0).ch == ' ' {
			c.set(x0, y0, edgeGlyph, fg, "")
		}
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

// DrawDisk implements graphviewer.Surface. The center cell always gets a
// glyph; larger disks also fill the cells they mostly cover.
func (c *Canvas) DrawDisk(d graphviewer.Disk) {
	glyph := nodeGlyph
	if d.Stroke != nil {
		glyph = currentGlyph
	}
	col, row := ToCell(d.X, d.Y)
	c.set(col, row, glyph, d.Fill, "")

	c0, r0 := ToCell(d.X-d.R, d.Y-d.R)
	c1, r1 := ToCell(d.X+d.R, d.Y+d.R)
	for r := r0; r <= r1; r++ {
		for k := c0; k <= c1; k++ {
			if k == col && r == row {
				continue
			}
			x, y := FromCell(k, r)
			if math.Hypot(x-d.X, y-d.Y) <= d.R-CellWidth/2 {
				c.set(k, r, glyph, d.Fill, "")
			}
		}
	}
}

// DrawLabel implements graphviewer.Surface. The text sits on the row above
// the anchor, centered and shifted to stay on the canvas.
func (c *Canvas) DrawLabel(l graphviewer.Label) {
	text := " " + l.Text + " "
	n := utf8.RuneCountInString(text)
	if n > c.cols {
		text = string([]rune(text)[:c.cols])
		n = c.cols
	}
	col, row := ToCell(l.X, l.Y-1)
	start := col - n/2
	start = max(0, min(start, c.cols-n))
	row = max(0, min(row, c.rows-1))

	fg := hexOr(l.Color, "#ffffff")
	for i, r := range []rune(text) {
		c.set(start+i, row, r, fg, labelBG)
	}
}

// SetCursor implements graphviewer.Surface.
func (c *Canvas) SetCursor(cur graphviewer.Cursor) { c.cursor = cur }

// Plain returns the canvas as text without styling.
func (c *Canvas) Plain() string {
	var b strings.Builder
	for r := 0; r < c.rows; r++ {
		for k := 0; k < c.cols; k++ {
			b.WriteRune(c.cells[r*c.cols+k].ch)
		}
		if r < c.rows-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// Render returns the canvas as styled terminal text. Runs of cells with the
// same colors share one style.
func (c *Canvas) Render() string {
	var b strings.Builder
	for r := 0; r < c.rows; r++ {
		row := c.cells[r*c.cols : (r+1)*c.cols]
		for k := 0; k < len(row); {
			j := k
			var run strings.Builder
			for j < len(row) && row[j].fg == row[k].fg && row[j].bg == row[k].bg {
				run.WriteRune(row[j].ch)
				j++
			}
			b.WriteString(c.style(row[k]).Render(run.String()))
			k = j
		}
		if r < c.rows-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func (c *Canvas) style(cl cell) lipgloss.Style {
	s := lipgloss.NewStyle()
	if fg := hexOr(cl.fg, ""); fg != "" {
		s = s.Foreground(lipgloss.Color(fg))
	}
	if cl.bg != "" {
		s = s.Background(lipgloss.Color(cl.bg))
	}
	if c.dim {
		s = s.Faint(true)
	}
	return s
}

// hexOr returns css when it is a hex color. Terminals have no alpha, so any
// other notation falls back.
func hexOr(css, fallback string) string {
	if strings.HasPrefix(css, "#") {
		return css
	}
	return fallback
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
