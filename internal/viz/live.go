package viz

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/mdsim/internal/engine"
	"github.com/san-kum/mdsim/internal/metrics"
	"github.com/san-kum/mdsim/internal/sim"
)

const (
	width           = 60
	height          = 20
	historyCapacity = 600
)

// frameMsg carries the outcome of one driver frame back to the UI.
type frameMsg struct {
	frame     int
	sample    metrics.Sample
	positions []r3.Vec
	phase     sim.Phase
	err       error
}

// Latest is a sim.Observer that keeps the most recent sample.
type Latest struct {
	sample metrics.Sample
}

func (l *Latest) OnFrame(s metrics.Sample) { l.sample = s }
func (l *Latest) Sample() metrics.Sample   { return l.sample }

// Model steps a driver one frame per update. At most one frame is in flight
// and the driver is only touched from the command that runs it.
type Model struct {
	driver    *sim.Driver
	latest    *Latest
	name      string
	frames    int
	frame     int
	canvas    *Canvas
	camera    *Camera
	theme     Theme
	positions []r3.Vec
	extent    float64
	kinetic   []float64
	potential []float64
	current   metrics.Sample
	stepping  bool
	running   bool
	finished  bool
	showHelp  bool
	err       error
}

// NewModel wraps a driver in the Running phase. latest must be registered
// with the driver through sim.WithObserver.
func NewModel(d *sim.Driver, latest *Latest, name string) Model {
	m := Model{
		driver:    d,
		latest:    latest,
		name:      name,
		frames:    d.Config().FrameCount,
		frame:     d.Frame(),
		canvas:    NewCanvas(width, height),
		camera:    NewCamera(),
		theme:     Themes[0],
		kinetic:   make([]float64, 0, historyCapacity),
		potential: make([]float64, 0, historyCapacity),
		stepping:  true,
		running:   true,
	}
	if state, err := d.Context().GetState(engine.Positions); err == nil {
		m.positions, _ = state.Positions()
	}
	m.extent = Extent(m.positions)
	return m
}

// Init starts the first frame; NewModel already marked it in flight.
func (m Model) Init() tea.Cmd {
	return m.stepCmd()
}

// next schedules one frame if the view is running and idle.
func (m *Model) next() tea.Cmd {
	if !m.running || m.stepping || m.finished || m.err != nil {
		return nil
	}
	m.stepping = true
	return m.stepCmd()
}

func (m Model) stepCmd() tea.Cmd {
	d, latest := m.driver, m.latest
	return func() tea.Msg {
		err := d.Step()
		msg := frameMsg{frame: d.Frame(), sample: latest.Sample(), phase: d.Phase(), err: err}
		if err != nil {
			return msg
		}
		state, err := d.Context().GetState(engine.Positions)
		if err != nil {
			msg.err = err
			return msg
		}
		msg.positions, msg.err = state.Positions()
		return msg
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
			return m, m.next()
		case "?":
			m.showHelp = !m.showHelp
		case "t":
			m.theme = m.theme.Next()
		case "x":
			m.camera.RotateX(0.1)
		case "X":
			m.camera.RotateX(-0.1)
		case "y":
			m.camera.RotateY(0.1)
		case "Y":
			m.camera.RotateY(-0.1)
		case "z":
			m.camera.RotateZ(0.1)
		case "Z":
			m.camera.RotateZ(-0.1)
		case "+", "=":
			m.camera.ZoomIn()
		case "-", "_":
			m.camera.ZoomOut()
		}
	case frameMsg:
		m.stepping = false
		m.record(msg)
		return m, m.next()
	}
	return m, nil
}

func (m *Model) record(msg frameMsg) {
	if msg.err != nil {
		m.err = msg.err
		return
	}
	m.frame = msg.frame
	m.current = msg.sample
	m.positions = msg.positions
	if m.extent == 0 {
		m.extent = Extent(m.positions)
	}
	m.finished = msg.phase == sim.Finished

	m.kinetic = appendCapped(m.kinetic, msg.sample.Kinetic)
	m.potential = appendCapped(m.potential, msg.sample.Potential)
}

func appendCapped(series []float64, v float64) []float64 {
	series = append(series, v)
	if len(series) > historyCapacity {
		series = series[1:]
	}
	return series
}

// Err returns the failure that stopped stepping, if any.
func (m Model) Err() error { return m.err }

func (m Model) status() string {
	switch {
	case m.err != nil:
		return "FAILED"
	case m.finished:
		return "FINISHED"
	case !m.running:
		return "PAUSED"
	}
	return "RUNNING"
}

func (m Model) View() string {
	st := m.theme.styles()

	m.canvas.Clear()
	m.camera.Plot(m.canvas, m.positions, m.extent)
	canvasView := st.canvas.Render(m.canvas.String())

	var s strings.Builder
	s.WriteString(st.header.Render(strings.ToUpper(m.name)) + "\n")
	s.WriteString(st.status.Render(m.status()) + "\n\n")

	s.WriteString(st.label.Render("Frame") + st.value.Render(fmt.Sprintf("%d / %d", m.frame, m.frames)) + "\n")
	s.WriteString(st.label.Render("Time") + st.value.Render(fmt.Sprintf("%s ps", metrics.Format(m.current.Time))) + "\n")
	s.WriteString(st.label.Render("KE/N/kT") + st.value.Render(metrics.Format(m.current.Kinetic)) + "\n")
	s.WriteString(st.label.Render("PE/N/kT") + st.value.Render(metrics.Format(m.current.Potential)) + "\n")
	s.WriteString(st.label.Render("Particles") + st.value.Render(fmt.Sprintf("%d", len(m.positions))) + "\n")

	if len(m.kinetic) > 1 {
		chart := asciigraph.PlotMany([][]float64{m.kinetic, m.potential},
			asciigraph.Height(6), asciigraph.Width(36), asciigraph.Caption("KE/N/kT, PE/N/kT"))
		s.WriteString(st.graph.Render(chart) + "\n")
	}
	if m.err != nil {
		s.WriteString(st.err.Render(m.err.Error()) + "\n")
	}
	s.WriteString(st.help.Render("SP:Pause Q:Quit T:Theme ?:Help\nXYZ:Rotate +-:Zoom"))

	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, st.stats.Render(s.String()))
	if m.showHelp {
		return helpText + "\n" + mainView
	}
	return mainView
}

const helpText = `
╔══════════════════════════════════════╗
║          KEYBOARD SHORTCUTS          ║
╠══════════════════════════════════════╣
║  Space    - Pause/Resume stepping    ║
║  X/Y/Z    - Rotate camera            ║
║  Shift    - Reverse rotation         ║
║  +/-      - Zoom                     ║
║  T        - Cycle themes             ║
║  ?        - Toggle this help         ║
║  Q        - Quit                     ║
╚══════════════════════════════════════╝`

// Run builds and starts the driver if needed and shows it until the user
// quits. The driver's own monitor and exporter still run.
func Run(d *sim.Driver, latest *Latest, name string, theme Theme) error {
	if d.Phase() == sim.Unbuilt {
		if err := d.Build(); err != nil {
			return err
		}
	}
	if d.Phase() == sim.Built {
		if err := d.Start(); err != nil {
			return err
		}
	}

	m := NewModel(d, latest, name)
	m.theme = theme

	final, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	if err != nil {
		return err
	}
	if m, ok := final.(Model); ok {
		return m.Err()
	}
	return nil
}
