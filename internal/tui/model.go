package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/cwbudde/spheredist/internal/anim"
	"github.com/cwbudde/spheredist/internal/coord"
	"github.com/cwbudde/spheredist/internal/sphere"
	"github.com/cwbudde/spheredist/internal/ui"
	"github.com/guptarohit/asciigraph"
)

const (
	defaultWidth    = 60
	defaultHeight   = 24
	historyCapacity = 120
	orbitRate       = 0.15 // radians per second
)

var (
	canvasStyle   = lipgloss.NewStyle().Padding(1, 2)
	statsStyle    = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(lipgloss.Color("240")).Padding(1, 2).Width(42)
	headerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	labelStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(12)
	valueStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	degradedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	graphStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
	outlineStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
)

// TickMsg advances the animation by one frame
type TickMsg time.Time

// StatsSource reports coordinator counters. *coord.Coordinator implements it.
type StatsSource interface {
	Stats() coord.Stats
}

// Model is the bubbletea model of the live sphere view
type Model struct {
	driver   *anim.Driver
	stats    StatsSource
	interval time.Duration

	canvas   *Canvas
	view     ui.View
	rotating bool
	showHelp bool

	points        sphere.PointSet
	frame         anim.Frame
	lastTick      time.Time
	lastResult    uint64
	energyHistory []float64
	notice        string
}

// NewModel creates a model ticking at interval. stats may be nil.
func NewModel(driver *anim.Driver, stats StatsSource, interval time.Duration) Model {
	if interval <= 0 {
		interval = time.Second / 60
	}
	return Model{
		driver:        driver,
		stats:         stats,
		interval:      interval,
		canvas:        NewCanvas(defaultWidth, defaultHeight),
		view:          ui.DefaultView(),
		rotating:      true,
		points:        driver.Points(),
		frame:         driver.Snapshot(),
		energyHistory: make([]float64, 0, historyCapacity),
	}
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return m.tick()
}

// Update handles input events and advances the animation
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "ctrl+c":
			return m, tea.Quit
		case "q", "a", "+", "=":
			t := m.driver.AddPoint()
			m.notice = fmt.Sprintf("requested %d points (#%d)", t.Points(), t.ID())
		case "d", "-", "w":
			if t := m.driver.RemovePoint(); t != nil {
				m.notice = fmt.Sprintf("requested %d points (#%d)", t.Points(), t.ID())
			} else {
				m.notice = "at least one point must remain"
			}
		case " ":
			m.rotating = !m.rotating
		case "left", "h":
			m.view = m.view.Orbit(-0.1)
		case "right", "l":
			m.view = m.view.Orbit(0.1)
		case "?":
			m.showHelp = !m.showHelp
		}
	case tea.WindowSizeMsg:
		w := msg.Width - 50
		h := msg.Height - 4
		if w >= 20 && h >= 10 {
			m.canvas = NewCanvas(w, h)
		}
	case TickMsg:
		m.step(time.Time(msg))
		return m, m.tick()
	}
	return m, nil
}

// step runs one animation frame at time now
func (m *Model) step(now time.Time) {
	var dt time.Duration
	if !m.lastTick.IsZero() {
		dt = now.Sub(m.lastTick)
	}
	m.lastTick = now

	m.points = m.driver.Frame(dt)
	m.frame = m.driver.Snapshot()
	if m.rotating {
		m.view = m.view.Orbit(orbitRate * dt.Seconds())
	}

	if m.frame.ResultID != 0 && m.frame.ResultID != m.lastResult {
		m.lastResult = m.frame.ResultID
		m.energyHistory = append(m.energyHistory, m.frame.Energy)
		if len(m.energyHistory) > historyCapacity {
			m.energyHistory = m.energyHistory[1:]
		}
	}
}

// View renders the sphere next to a stats panel
func (m Model) View() string {
	m.canvas.Clear()
	m.canvas.DrawOutline()
	m.canvas.DrawPoints(m.points, m.view)
	canvasView := canvasStyle.Render(m.canvas.Render())

	var s strings.Builder
	s.WriteString(headerStyle.Render("POINTS ON A SPHERE") + "\n")

	row := func(label, value string) {
		s.WriteString(labelStyle.Render(label) + valueStyle.Render(value) + "\n")
	}
	row("Points", fmt.Sprintf("%d / %d", m.frame.Count, m.frame.Target))
	row("Energy", fmt.Sprintf("%.4f", m.frame.Energy))
	status := string(m.frame.Status)
	if status == "" {
		status = "-"
	}
	row("Status", status)
	row("Request", fmt.Sprintf("%d / %d", m.frame.ResultID, m.frame.LatestID))
	row("Max error", fmt.Sprintf("%.4f rad", m.frame.MaxError))
	if m.frame.Health.Degraded {
		s.WriteString(labelStyle.Render("Health") + degradedStyle.Render("degraded") + "\n")
		s.WriteString(valueStyle.Render(m.frame.Health.LastError) + "\n")
	} else {
		row("Health", "ok")
	}
	if m.stats != nil {
		st := m.stats.Stats()
		row("Solved", fmt.Sprintf("%d of %d", st.Solved, st.Issued))
		row("Skipped", fmt.Sprintf("%d (+%d dropped)", st.Skipped, st.Dropped))
	}

	if len(m.energyHistory) > 1 {
		chart := asciigraph.Plot(m.energyHistory, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("Energy"))
		s.WriteString(graphStyle.Render(chart) + "\n")
	}
	if m.notice != "" {
		s.WriteString("\n" + valueStyle.Render(m.notice) + "\n")
	}

	if m.showHelp {
		s.WriteString(helpStyle.Render("Q/A/+ add point   W/D/- remove point\nSpace pause rotation   ←/→ orbit\nEsc/Ctrl+C quit   ? hide help"))
	} else {
		s.WriteString(helpStyle.Render("Q/A:Add W/D:Remove Esc:Quit ?:Help"))
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsStyle.Render(s.String()))
}
