// Package viz renders a live terminal view of the stepping engine. The
// bubbletea frame ticks are the render loop: each tick's real wall-clock
// delta is handed to the stepper, so the view exhibits exactly the
// fixed-step/interpolated behavior a renderer would see.
package viz

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/stepsim/internal/scene"
	"github.com/san-kum/stepsim/internal/stepper"
)

const (
	canvasWidth     = 80
	canvasHeight    = 24
	historyCapacity = 240
	targetFPS       = 60
)

// TickMsg carries the wall-clock time of a render tick.
type TickMsg time.Time

// Factory rebuilds the stepper and scene from scratch, used at start
// and on reset so a reset is a genuinely fresh run.
type Factory func() (*stepper.Stepper, scene.Scene)

// Model is the bubbletea model driving the live view.
type Model struct {
	factory Factory
	st      *stepper.Stepper
	sc      scene.Scene

	canvas       *Canvas
	lastTick     time.Time
	haveTick     bool
	running      bool
	showHelp     bool
	frameSeconds float64
	alphaHistory []float64
	stepHistory  []float64
	prevSteps    uint64
}

// NewModel builds the live view around a fresh stepper from the factory.
func NewModel(factory Factory) Model {
	st, sc := factory()
	return Model{
		factory:      factory,
		st:           st,
		sc:           sc,
		canvas:       NewCanvas(canvasWidth, canvasHeight),
		running:      true,
		alphaHistory: make([]float64, 0, historyCapacity),
		stepHistory:  make([]float64, 0, historyCapacity),
	}
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(time.Second/targetFPS, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// Update handles input and feeds real frame deltas to the stepper.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "r":
			m.st, m.sc = m.factory()
			m.haveTick = false
			m.alphaHistory = m.alphaHistory[:0]
			m.stepHistory = m.stepHistory[:0]
			m.prevSteps = 0
		case "+", "=":
			m.st.SetTimeScale(m.st.TimeScale() * 1.25)
		case "-", "_":
			m.st.SetTimeScale(m.st.TimeScale() * 0.8)
		case "v":
			m.st.SetTimeScale(-m.st.TimeScale())
		case "?":
			m.showHelp = !m.showHelp
		}
	case TickMsg:
		now := time.Time(msg)
		if m.haveTick {
			m.frameSeconds = now.Sub(m.lastTick).Seconds()
			if m.running {
				m.st.Simulate(m.frameSeconds)
				m.recordFrame()
			}
		}
		m.lastTick = now
		m.haveTick = true
		m.draw()
		return m, tick()
	}
	return m, nil
}

func (m *Model) recordFrame() {
	m.alphaHistory = append(m.alphaHistory, m.st.Alpha())
	if len(m.alphaHistory) > historyCapacity {
		m.alphaHistory = m.alphaHistory[1:]
	}
	m.stepHistory = append(m.stepHistory, float64(m.st.StepsTaken()-m.prevSteps))
	if len(m.stepHistory) > historyCapacity {
		m.stepHistory = m.stepHistory[1:]
	}
	m.prevSteps = m.st.StepsTaken()
}

// draw renders all bodies at their blended poses.
func (m *Model) draw() {
	m.canvas.Clear()

	cw, ch := canvasWidth*2, canvasHeight*4
	cx, groundY := cw/2, ch-8
	scalePx := 16.0

	// Ground reference line.
	m.canvas.DrawLine(0, groundY, cw-1, groundY)

	for _, b := range m.st.Bodies() {
		pose := b.Rendered()
		px := cx + int(pose.Position.X()*scalePx)
		py := groundY - int(pose.Position.Y()*scalePx)

		m.canvas.FillCircle(px, py, 2)

		// Orientation tick: where the body's local +X points now.
		dir := pose.Orientation.Rotate(mgl64.Vec3{1, 0, 0})
		tx := px + int(dir.X()*6)
		ty := py - int(dir.Y()*6)
		m.canvas.DrawLine(px, py, tx, ty)
	}
}

// View renders the canvas beside a stats panel.
func (m Model) View() string {
	canvasView := canvasStyle.Render(m.canvas.String())

	var s strings.Builder
	s.WriteString(headerStyle.Render(strings.ToUpper(m.sc.Name())) + "\n")

	status := "RUNNING"
	if !m.running {
		status = "PAUSED"
	}
	if m.st.TimeScale() < 0 {
		status += " (REVERSE)"
	}
	s.WriteString(status + "\n\n")

	if len(m.stepHistory) > 1 {
		chart := asciigraph.Plot(m.stepHistory,
			asciigraph.Height(4),
			asciigraph.Width(30),
			asciigraph.Caption("steps per frame"),
		)
		s.WriteString(graphStyle.Render(chart) + "\n\n")
	}
	if len(m.alphaHistory) > 1 {
		chart := asciigraph.Plot(m.alphaHistory,
			asciigraph.Height(4),
			asciigraph.Width(30),
			asciigraph.Caption("blend alpha"),
		)
		s.WriteString(graphStyle.Render(chart) + "\n\n")
	}

	frameMs := m.frameSeconds * 1000
	fps := 0.0
	if m.frameSeconds > 0 {
		fps = 1 / m.frameSeconds
	}

	s.WriteString(labelStyle.Render("Sim time") + valueStyle.Render(fmt.Sprintf("%.2fs", m.st.SimulatedTime())) + "\n")
	s.WriteString(labelStyle.Render("Steps") + valueStyle.Render(fmt.Sprintf("%d", m.st.StepsTaken())) + "\n")
	s.WriteString(labelStyle.Render("Alpha") + valueStyle.Render(fmt.Sprintf("%+.3f", m.st.Alpha())) + "\n")
	s.WriteString(labelStyle.Render("Time scale") + valueStyle.Render(fmt.Sprintf("%+.2fx", m.st.TimeScale())) + "\n")
	s.WriteString(labelStyle.Render("Bodies") + valueStyle.Render(fmt.Sprintf("%d", len(m.st.Bodies()))) + "\n")
	s.WriteString(labelStyle.Render("Frame") + valueStyle.Render(fmt.Sprintf("%.1fms (%.0f fps)", frameMs, math.Min(fps, 999))) + "\n")

	s.WriteString(helpStyle.Render("\n─────────────────────\nSP:Pause R:Reset Q:Quit\n+/-:Time scale V:Reverse ?:Help"))

	statsView := statsStyle.Render(s.String())
	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsView)

	if m.showHelp {
		return `
╔══════════════════════════════════════╗
║          KEYBOARD SHORTCUTS          ║
╠══════════════════════════════════════╣
║  Space    - Pause/Resume             ║
║  R        - Reset scene              ║
║  +        - Speed up time (+25%)     ║
║  -        - Slow down time (-20%)    ║
║  V        - Reverse time             ║
║  Q        - Quit                     ║
║  ?        - Toggle this help         ║
╚══════════════════════════════════════╝
` + "\n\n" + mainView
	}
	return mainView
}
