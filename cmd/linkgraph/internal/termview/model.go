// Package termview is an interactive terminal rendition of the page graph.
package termview

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/recera/linkgraph/pkg/graphviewer"
	"github.com/recera/linkgraph/pkg/linkindex"
	"github.com/recera/linkgraph/pkg/scheduler"
)

// Style definitions
var (
	primaryColor = lipgloss.Color("#9b8abf")
	mutedColor   = lipgloss.Color("#8a9299")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	mutedStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor)
)

// wheelDelta is the scroll delta reported per wheel notch.
const wheelDelta = 60

type frameMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(scheduler.DefaultFrameInterval, func(t time.Time) tea.Msg { return frameMsg(t) })
}

// rect is a canvas placement in terminal cells.
type rect struct {
	col, row   int
	cols, rows int
}

func (r rect) contains(col, row int) bool {
	return col >= r.col && row >= r.row && col < r.col+r.cols && row < r.row+r.rows
}

// Model is the bubbletea model of the viewer.
type Model struct {
	artifact *linkindex.Artifact
	depth    int
	opts     graphviewer.Options

	keys  KeyMap
	help  help.Model
	sched *scheduler.Manual
	host  *host

	view    *graphviewer.View
	inline  *Canvas
	current string
	history []string

	width, height int
	inlineRect    rect
	lightboxRect  rect

	pressed  bool
	pressOn  graphviewer.Target
	inside   bool
	selected int
	status   string
	quitting bool
}

// host adapts the terminal to graphviewer.Host. Navigation is deferred
// until the view has returned.
type host struct {
	m        *Model
	navigate string
	lightbox *Canvas
}

func (h *host) Navigate(id string) { h.navigate = id }

func (h *host) OpenLightbox() (graphviewer.Surface, error) {
	r := h.m.lightboxRect
	h.lightbox = NewCanvas(r.cols, r.rows)
	return h.lightbox, nil
}

func (h *host) DismissLightbox(s graphviewer.Surface) {
	if c, ok := s.(*Canvas); ok {
		c.dim = true
	}
}

func (h *host) RemoveLightbox(s graphviewer.Surface) {
	if h.lightbox == s {
		h.lightbox = nil
	}
}

func (h *host) Detach() {}

// New creates a viewer showing the neighborhood of start.
func New(artifact *linkindex.Artifact, start string, depth int, opts graphviewer.Options) (*Model, error) {
	m := &Model{
		artifact: artifact,
		depth:    depth,
		opts:     opts,
		keys:     DefaultKeyMap,
		help:     help.New(),
		sched:    scheduler.NewManual(),
		width:    80,
		height:   24,
		selected: -1,
	}
	m.host = &host{m: m}
	m.layout()
	if err := m.open(start); err != nil {
		return nil, err
	}
	return m, nil
}

// Current returns the id of the page being viewed.
func (m *Model) Current() string { return m.current }

// State returns the view's state.
func (m *Model) State() graphviewer.State { return m.view.State() }

func (m *Model) open(id string) error {
	g := m.artifact.Neighborhood(id, m.depth)
	if len(g.Nodes) == 0 {
		return fmt.Errorf("page %q is not in the link index", id)
	}
	inline := NewCanvas(m.inlineRect.cols, m.inlineRect.rows)
	opts := m.opts
	view, err := graphviewer.NewView(inline, m.host, m.sched, linkindex.Embed{Current: id, Graph: g}, &opts)
	if err != nil {
		return err
	}
	if m.view != nil {
		m.view.Destroy()
	}
	m.host.navigate = ""
	m.view, m.inline, m.current = view, inline, id
	m.pressed, m.inside, m.selected = false, false, -1
	m.view.Start()
	return nil
}

func (m *Model) navigate(id string) {
	prev := m.current
	if err := m.open(id); err != nil {
		m.status = err.Error()
		return
	}
	m.history = append(m.history, prev)
	m.status = ""
}

func (m *Model) back() {
	if len(m.history) == 0 {
		return
	}
	prev := m.history[len(m.history)-1]
	if err := m.open(prev); err != nil {
		m.status = err.Error()
		return
	}
	m.history = m.history[:len(m.history)-1]
	m.status = ""
}

// followNavigation applies a navigation the view requested.
func (m *Model) followNavigation() {
	if id := m.host.navigate; id != "" {
		m.host.navigate = ""
		m.navigate(id)
	}
}

func (m *Model) chromeRows() (header, footer int) {
	return 1, lipgloss.Height(m.help.View(m.keys))
}

func (m *Model) layout() {
	header, footer := m.chromeRows()
	body := max(m.height-header-footer, 3)

	cols := max(m.width-2, 1)
	rows := int(graphviewer.InlineHeight(float64(cols)*CellWidth) / CellHeight)
	rows = max(1, min(rows, body-2))
	m.inlineRect = rect{col: 1, row: header + 1, cols: cols, rows: rows}

	w, h := graphviewer.LightboxSize(float64(m.width)*CellWidth, float64(body)*CellHeight)
	lcols := max(int(w/CellWidth)-2, 1)
	lrows := max(int(h/CellHeight)-2, 1)
	left := max((m.width-lcols-2)/2, 0)
	top := header + max((body-lrows-2)/2, 0)
	m.lightboxRect = rect{col: left + 1, row: top + 1, cols: lcols, rows: lrows}
}

func (m *Model) resize() {
	m.layout()
	m.inline.Resize(m.inlineRect.cols, m.inlineRect.rows)
	if lb := m.host.lightbox; lb != nil {
		lb.Resize(m.lightboxRect.cols, m.lightboxRect.rows)
	}
	m.view.Resize()
}

// Init starts the frame clock.
func (m *Model) Init() tea.Cmd {
	return tick()
}

// Update handles messages and updates the model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.resize()
		return m, nil

	case frameMsg:
		m.sched.Step()
		m.sched.Advance(scheduler.DefaultFrameInterval)
		if m.quitting {
			return m, nil
		}
		return m, tick()

	case tea.KeyMsg:
		return m, m.handleKey(msg)

	case tea.MouseMsg:
		m.handleMouse(msg)
		m.followNavigation()
		return m, nil
	}
	return m, nil
}

func (m *Model) lightboxOpen() bool {
	lb := m.host.lightbox
	return lb != nil && !lb.dim
}

func (m *Model) target() graphviewer.Target {
	if m.lightboxOpen() {
		return graphviewer.Lightbox
	}
	return graphviewer.Inline
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		m.view.Destroy()
		return tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.resize()

	case key.Matches(msg, m.keys.Expand):
		m.view.ExpandClick()

	case key.Matches(msg, m.keys.Collapse):
		m.view.KeyDown("esc")

	case key.Matches(msg, m.keys.Scatter):
		m.view.Wheel(m.target(), 0, 100)

	case key.Matches(msg, m.keys.Next):
		m.selectNode(1)

	case key.Matches(msg, m.keys.Prev):
		m.selectNode(-1)

	case key.Matches(msg, m.keys.Open):
		if x, y, ok := m.selectedPosition(); ok {
			m.view.Click(m.target(), x, y)
			m.followNavigation()
		}

	case key.Matches(msg, m.keys.Back):
		m.back()
	}
	return nil
}

// selectNode moves a virtual pointer onto the next or previous node so the
// view hovers it.
func (m *Model) selectNode(step int) {
	n := len(m.view.State().Nodes)
	if n == 0 {
		return
	}
	if m.selected < 0 {
		if step > 0 {
			m.selected = 0
		} else {
			m.selected = n - 1
		}
	} else {
		m.selected = ((m.selected+step)%n + n) % n
	}
	if x, y, ok := m.selectedPosition(); ok {
		m.view.PointerMove(m.target(), x, y)
	}
}

func (m *Model) selectedPosition() (float64, float64, bool) {
	nodes := m.view.State().Nodes
	if m.selected < 0 || m.selected >= len(nodes) {
		return 0, 0, false
	}
	return m.view.ScreenPosition(m.target(), nodes[m.selected].ID)
}

func (m *Model) handleMouse(msg tea.MouseMsg) {
	t := m.target()
	r := m.inlineRect
	if t == graphviewer.Lightbox {
		r = m.lightboxRect
	}
	inside := r.contains(msg.X, msg.Y)
	x, y := FromCell(msg.X-r.col, msg.Y-r.row)

	if m.host.lightbox != nil && t == graphviewer.Inline {
		// closing lightbox still covers the inline graph
		return
	}

	switch {
	case msg.Button == tea.MouseButtonWheelUp || msg.Button == tea.MouseButtonWheelDown:
		if inside {
			m.view.Wheel(t, 0, wheelDelta)
		}

	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		if !inside {
			if t == graphviewer.Lightbox {
				m.view.BackdropClick()
			}
			return
		}
		m.pressed, m.pressOn = true, t
		m.view.PointerDown(t, x, y)

	case msg.Action == tea.MouseActionRelease:
		if !m.pressed {
			return
		}
		m.pressed = false
		m.view.PointerUp(m.pressOn, x, y)
		if inside && m.pressOn == t {
			m.view.Click(t, x, y)
		}

	case msg.Action == tea.MouseActionMotion:
		if !inside && !m.pressed {
			if m.inside {
				m.view.PointerLeave(t)
			}
			m.inside = false
			return
		}
		m.inside = inside
		m.view.PointerMove(t, x, y)
	}
}

// View renders the UI
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.header())
	b.WriteByte('\n')

	header, footer := m.chromeRows()
	body := max(m.height-header-footer, 3)
	var lines []string
	if lb := m.host.lightbox; lb != nil {
		box := strings.Split(boxStyle.Render(lb.Render()), "\n")
		pad := strings.Repeat(" ", m.lightboxRect.col-1)
		for i := header; i < m.lightboxRect.row-1; i++ {
			lines = append(lines, "")
		}
		for _, l := range box {
			lines = append(lines, pad+l)
		}
	} else {
		lines = strings.Split(boxStyle.Render(m.inline.Render()), "\n")
	}
	for len(lines) < body {
		lines = append(lines, "")
	}
	b.WriteString(strings.Join(lines[:min(len(lines), body)], "\n"))
	b.WriteByte('\n')
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *Model) header() string {
	title := m.current
	for _, n := range m.view.State().Nodes {
		if n.ID == m.current && n.Title != "" {
			title = n.Title
			break
		}
	}
	info := fmt.Sprintf(" %s · %d backlinks", m.current, len(m.artifact.BacklinksFor(m.current)))
	if m.status != "" {
		info += " · " + m.status
	}
	return titleStyle.Render(title) + mutedStyle.Render(info)
}

// Run starts the viewer in the alternate screen with mouse tracking.
func Run(artifact *linkindex.Artifact, start string, depth int, opts graphviewer.Options) error {
	m, err := New(artifact, start, depth, opts)
	if err != nil {
		return err
	}
	_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseAllMotion()).Run()
	return err
}
