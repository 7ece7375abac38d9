package viz

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/grapple/internal/dynamo"
	"github.com/san-kum/grapple/internal/grab"
	"github.com/san-kum/grapple/internal/physics"
	"github.com/san-kum/grapple/internal/sim"
	"github.com/san-kum/grapple/internal/slot"
	"github.com/san-kum/grapple/internal/world"
)

const (
	width           = 64
	height          = 22
	historyCapacity = 600
)

type TickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(time.Second/60, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// BuildFunc returns a fresh simulator for the live view. Reset calls it again.
type BuildFunc func() (*sim.Simulator, error)

// Model steps a simulator once per frame and draws it.
type Model struct {
	name  string
	build BuildFunc

	sim     *sim.Simulator
	err     error
	running bool

	canvas *Canvas
	camera *Camera
	theme  Theme
	styles Styles

	channel int
	history map[string][]float64
	stats   sim.TickStats

	showHelp bool
}

func NewModel(name string, build BuildFunc) (Model, error) {
	m := Model{
		name:    name,
		build:   build,
		canvas:  NewCanvas(width, height),
		camera:  NewCamera(),
		theme:   Themes[0],
		styles:  NewStyles(Themes[0]),
		running: true,
	}
	if err := m.reset(); err != nil {
		return Model{}, err
	}
	return m, nil
}

func (m Model) Init() tea.Cmd { return tick() }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "n":
			if !m.running {
				m.step()
			}
		case "r":
			if err := m.reset(); err != nil {
				m.err = err
			}
		case "tab":
			if probes := m.sim.Probes(); len(probes) > 0 {
				m.channel = (m.channel + 1) % len(probes)
			}
		case "x":
			m.camera.Orbit(0.1, 0)
		case "X":
			m.camera.Orbit(-0.1, 0)
		case "y":
			m.camera.Orbit(0, 0.1)
		case "Y":
			m.camera.Orbit(0, -0.1)
		case "+", "=":
			m.camera.ZoomIn()
		case "-", "_":
			m.camera.ZoomOut()
		case "t":
			m.theme = NextTheme(m.theme)
			m.styles = NewStyles(m.theme)
		case "?":
			m.showHelp = !m.showHelp
		}
	case TickMsg:
		if m.running {
			m.step()
		}
		return m, tick()
	}
	return m, nil
}

func (m *Model) reset() error {
	s, err := m.build()
	if err != nil {
		return err
	}
	m.sim, m.err = s, nil
	m.stats = sim.TickStats{}
	m.history = make(map[string][]float64)
	for _, metric := range s.Metrics() {
		metric.Reset()
	}
	m.camera.Target = SceneCenter(s.World)
	return nil
}

// step advances one tick and records probes. A failed tick stops the view
// until reset.
func (m *Model) step() {
	if m.err != nil {
		return
	}
	stats, err := m.sim.Step()
	if err != nil {
		m.err = err
		m.running = false
		return
	}
	m.stats = stats

	f := m.sim.Frame(stats)
	for _, metric := range m.sim.Metrics() {
		metric.Observe(f)
	}
	for _, p := range m.sim.Probes() {
		h := append(m.history[p.Name], p.Fn(f))
		if len(h) > historyCapacity {
			h = h[1:]
		}
		m.history[p.Name] = h
	}
}

// SceneCenter is the mean position of every entity with a transform.
func SceneCenter(w *world.World) mgl64.Vec3 {
	var sum mgl64.Vec3
	n := 0
	for _, e := range w.Entities() {
		if g, ok := w.GlobalTransform(e); ok {
			sum = sum.Add(g.Translation)
			n++
		}
	}
	if n == 0 {
		return sum
	}
	return sum.Mul(1 / float64(n))
}

func (m *Model) draw() { Render(m.canvas, m.sim, m.camera) }

// Render clears c and draws the scene of s through cam: bodies as circles,
// bodiless entities as dots and joints as lines between the anchors they
// pin together.
func Render(c *Canvas, s *sim.Simulator, cam *Camera) {
	c.Clear()
	w, eng := s.World, s.Engine
	dw, dh := c.Dots()

	for _, e := range w.Entities() {
		g, ok := w.GlobalTransform(e)
		if !ok {
			continue
		}
		x, y, scale, visible := cam.Project(g.Translation, dw, dh)
		if !visible {
			continue
		}
		if b, ok := eng.Body(e); ok {
			c.DrawCircle(x, y, b.Radius*scale)
		} else {
			c.Set(x, y)
		}
	}

	for _, j := range eng.Joints() {
		local1, local2 := physics.Anchors(j.Kind)
		a, ok1 := anchorPoint(w, j.Child, local1)
		b, ok2 := anchorPoint(w, j.Parent, local2)
		if !ok1 || !ok2 {
			continue
		}
		x0, y0, _, v0 := cam.Project(a, dw, dh)
		x1, y1, _, v1 := cam.Project(b, dw, dh)
		if v0 || v1 {
			c.DrawLine(x0, y0, x1, y1)
		}
	}
}

func anchorPoint(w *world.World, e dynamo.Entity, local mgl64.Vec3) (mgl64.Vec3, bool) {
	g, ok := w.GlobalTransform(e)
	if !ok {
		return mgl64.Vec3{}, false
	}
	return g.TransformPoint(local), true
}

func (m Model) View() string {
	m.draw()
	canvasView := lipgloss.NewStyle().Padding(1, 2).Render(m.canvas.String())

	st := m.styles
	var s strings.Builder
	s.WriteString(st.Header.Render(strings.ToUpper(m.name)) + "\n")

	switch {
	case m.err != nil:
		s.WriteString(st.Failed.Render("FAILED") + "\n" + st.Subtle.Render(m.err.Error()) + "\n\n")
	case m.running:
		s.WriteString(st.Running.Render("RUNNING") + "\n\n")
	default:
		s.WriteString(st.Paused.Render("PAUSED") + "\n\n")
	}

	row := func(label, value string) {
		s.WriteString(st.Label.Render(label) + st.Value.Render(value) + "\n")
	}
	row("Time", fmt.Sprintf("%.2fs", m.sim.Time()))
	row("Tick", fmt.Sprintf("%d", m.sim.Tick()))
	row("Joints", fmt.Sprintf("%d (+%d -%d)", len(m.sim.Engine.Joints()), m.stats.Inserted, m.stats.Removed))
	row("Slots", fmt.Sprintf("%d filled", slot.Occupancy(m.sim.World)))
	row("Holding", fmt.Sprintf("%d hands", holding(m.sim.World)))
	for _, metric := range m.sim.Metrics() {
		row(metric.Name(), fmt.Sprintf("%.3f", metric.Value()))
	}

	if probes := m.sim.Probes(); len(probes) > 0 {
		name := probes[m.channel%len(probes)].Name
		if data := m.history[name]; len(data) > 1 {
			chart := asciigraph.Plot(data, asciigraph.Height(5), asciigraph.Width(30), asciigraph.Caption(name))
			s.WriteString("\n" + st.Graph.Render(chart) + "\n")
			s.WriteString(st.Sparkline(data, 30) + "\n")
		}
	}

	s.WriteString("\n" + st.Separator(30) + "\n")
	s.WriteString(st.KeyHint.Render("SP:Pause N:Step R:Reset Q:Quit\nTab:Channel T:Theme ?:Help"))
	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, st.Panel.Render(s.String()))

	if m.showHelp {
		return st.Panel.Render(helpText) + "\n\n" + mainView
	}
	return mainView
}

const helpText = `KEYBOARD SHORTCUTS
  Space    Pause/Resume
  N        Single step while paused
  R        Rebuild the scenario
  Tab      Cycle the plotted channel
  x/X y/Y  Orbit the camera
  +/-      Zoom
  T        Cycle themes
  Q        Quit
  ?        Toggle this help`

func holding(w *world.World) int {
	n := 0
	store := world.GetStore[grab.Grabbing](w)
	for _, e := range store.Entities() {
		if g, _ := store.Get(e); g.State() == grab.StateHolding {
			n++
		}
	}
	return n
}

// Run starts the live view full screen.
func Run(m Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
