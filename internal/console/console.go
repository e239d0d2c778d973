// Package console is the on-terminal operator station: key bindings emit
// maneuver commands into the flight loop and a live view tracks the
// estimate, mode and motor outputs. The console only ever talks to the
// loop through its command methods; it holds no reference to estimator,
// controller or mixer state.
package console

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/quadfc/internal/flight"
	"github.com/san-kum/quadfc/internal/mixer"
)

const (
	historyCapacity = 120
	setpointStep    = 0.25
	manualStep      = 25
)

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(14)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	stopStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	holdStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Bold(true)
	graphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
)

// Console bridges the flight loop and the bubbletea program. It is an
// Observer on the loop; snapshots are dropped rather than block a tick.
type Console struct {
	loop     *flight.Loop
	statusCh chan flight.Status
}

func New(loop *flight.Loop) *Console {
	return &Console{
		loop:     loop,
		statusCh: make(chan flight.Status, 16),
	}
}

func (c *Console) OnTick(s flight.Status) {
	select {
	case c.statusCh <- s:
	default:
	}
}

// Run blocks until the operator quits.
func (c *Console) Run() error {
	m := model{
		loop:     c.loop,
		statusCh: c.statusCh,
		manual:   [4]int{mixer.MinThrottle, mixer.MinThrottle, mixer.MinThrottle, mixer.MinThrottle},
	}
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

func clampPulse(v int) int {
	if v < mixer.MinThrottle {
		return mixer.MinThrottle
	}
	if v > mixer.MaxThrottle {
		return mixer.MaxThrottle
	}
	return v
}

type statusMsg flight.Status

type model struct {
	loop     *flight.Loop
	statusCh chan flight.Status

	status   flight.Status
	altitude []float64
	setpoint float64
	hold     bool
	selected int
	manual   [4]int
	started  bool
}

func (m model) Init() tea.Cmd {
	return waitForStatus(m.statusCh)
}

func waitForStatus(ch chan flight.Status) tea.Cmd {
	return func() tea.Msg {
		return statusMsg(<-ch)
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case statusMsg:
		m.status = flight.Status(msg)
		if !m.started {
			m.setpoint = m.status.Setpoint
			m.hold = m.status.AltitudeHold
			m.started = true
		}
		m.altitude = append(m.altitude, m.status.State[1])
		if len(m.altitude) > historyCapacity {
			m.altitude = m.altitude[1:]
		}
		return m, waitForStatus(m.statusCh)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case " ":
		m.loop.Apply(mixer.Command{Maneuver: mixer.EmergencyStop})
	case "h":
		m.loop.Apply(mixer.Command{Maneuver: mixer.Hover})
	case "w":
		m.loop.Apply(mixer.Command{Maneuver: mixer.Forward})
	case "s":
		m.loop.Apply(mixer.Command{Maneuver: mixer.Backward})
	case "a":
		m.loop.Apply(mixer.Command{Maneuver: mixer.Left})
	case "d":
		m.loop.Apply(mixer.Command{Maneuver: mixer.Right})
	case "t":
		m.hold = !m.hold
		m.loop.SetAltitudeHold(m.hold)
	case "+", "=":
		m.setpoint += setpointStep
		m.loop.SetSetpoint(m.setpoint)
	case "-":
		if m.setpoint >= setpointStep {
			m.setpoint -= setpointStep
		}
		m.loop.SetSetpoint(m.setpoint)
	case "1", "2", "3", "4":
		m.selected = int(msg.String()[0] - '1')
	case "[":
		m.manual[m.selected] = clampPulse(m.manual[m.selected] - manualStep)
		m.loop.Apply(mixer.Command{Maneuver: mixer.ManualSet, Motor: m.selected, PulseWidth: m.manual[m.selected]})
	case "]":
		m.manual[m.selected] = clampPulse(m.manual[m.selected] + manualStep)
		m.loop.Apply(mixer.Command{Maneuver: mixer.ManualSet, Motor: m.selected, PulseWidth: m.manual[m.selected]})
	}
	return m, nil
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("quadfc operator console"))
	b.WriteString("\n")

	mode := valueStyle.Render(m.status.Mode)
	if m.status.Mode == "emergency_stop" {
		mode = stopStyle.Render("EMERGENCY STOP")
	}
	b.WriteString(labelStyle.Render("mode") + mode + "\n")

	holdText := "off"
	if m.status.AltitudeHold {
		holdText = holdStyle.Render(fmt.Sprintf("on → %.2f m", m.status.Setpoint))
	}
	b.WriteString(labelStyle.Render("altitude hold") + valueStyle.Render(holdText) + "\n")

	s := m.status.State
	b.WriteString(labelStyle.Render("estimate") +
		valueStyle.Render(fmt.Sprintf("x=%+.2f y=%+.2f vx=%+.2f vy=%+.2f", s[0], s[1], s[2], s[3])) + "\n")

	motors := make([]string, len(m.status.Motors))
	for i, pw := range m.status.Motors {
		cell := fmt.Sprintf("m%d:%4d", i, pw)
		if i == m.selected {
			cell = holdStyle.Render(cell)
		}
		motors[i] = cell
	}
	b.WriteString(labelStyle.Render("motors") + valueStyle.Render(strings.Join(motors, "  ")) + "\n")

	if !m.status.MeasurementOK && m.status.AltitudeHold {
		b.WriteString(labelStyle.Render("sensor") + stopStyle.Render("no measurement") + "\n")
	}

	if len(m.altitude) > 1 {
		graph := asciigraph.Plot(m.altitude,
			asciigraph.Height(8),
			asciigraph.Width(60),
			asciigraph.Caption("estimated altitude (m)"))
		b.WriteString(graphStyle.Render(graph))
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render(
		"h hover · w/s/a/d maneuver · space STOP · t hold · +/- setpoint\n" +
			"1-4 select motor · [ ] manual pulse · q quit"))
	return b.String()
}
