// Package viz renders live run monitors and terminal plots.
package viz

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/geomech/internal/sim"
)

const historyCapacity = 600

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(16)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	graphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	doneStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
)

type TickMsg time.Time

// ChanObserver forwards per-step stats to the monitor without ever
// blocking the physics loop; under backpressure it drops samples.
type ChanObserver struct {
	Ch chan sim.Stats
}

func NewChanObserver() *ChanObserver {
	return &ChanObserver{Ch: make(chan sim.Stats, 256)}
}

func (o *ChanObserver) OnStep(s sim.Stats) {
	select {
	case o.Ch <- s:
	default:
	}
}

// Model is the live run monitor.
type Model struct {
	scene string
	steps int

	stats    sim.Stats
	energy   []float64
	contacts []float64

	ch       <-chan sim.Stats
	done     <-chan error
	finished bool
	runErr   error
}

func NewModel(scene string, steps int, ch <-chan sim.Stats, done <-chan error) Model {
	return Model{
		scene:    scene,
		steps:    steps,
		ch:       ch,
		done:     done,
		energy:   make([]float64, 0, historyCapacity),
		contacts: make([]float64, 0, historyCapacity),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Tick(time.Second/30, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
	case TickMsg:
		m.drain()
		if m.finished {
			return m, tea.Tick(time.Second/30, func(t time.Time) tea.Msg { return TickMsg(t) })
		}
		select {
		case err := <-m.done:
			m.drain()
			m.finished = true
			m.runErr = err
		default:
		}
		return m, tea.Tick(time.Second/30, func(t time.Time) tea.Msg { return TickMsg(t) })
	}
	return m, nil
}

func (m *Model) drain() {
	for {
		select {
		case s := <-m.ch:
			m.stats = s
			m.energy = push(m.energy, s.KineticEnergy)
			m.contacts = push(m.contacts, float64(s.Contacts))
		default:
			return
		}
	}
}

func push(hist []float64, v float64) []float64 {
	if len(hist) >= historyCapacity {
		hist = hist[1:]
	}
	return append(hist, v)
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render(fmt.Sprintf("geomech  %s", m.scene)))
	b.WriteString("\n")

	rows := []struct {
		label string
		value string
	}{
		{"step", fmt.Sprintf("%d / %d", m.stats.Step+1, m.steps)},
		{"time", fmt.Sprintf("%.5f s", m.stats.Time)},
		{"kinetic energy", fmt.Sprintf("%.4e J", m.stats.KineticEnergy)},
		{"momentum", fmt.Sprintf("%.3e kg m/s", m.stats.Momentum.Norm())},
		{"contacts", fmt.Sprintf("%d", m.stats.Contacts)},
		{"fallbacks", fmt.Sprintf("%d", m.stats.Fallbacks)},
	}
	for _, r := range rows {
		b.WriteString(labelStyle.Render(r.label))
		b.WriteString(valueStyle.Render(r.value))
		b.WriteString("\n")
	}

	if len(m.energy) > 1 {
		graph := asciigraph.Plot(m.energy,
			asciigraph.Height(8), asciigraph.Width(64),
			asciigraph.Caption("kinetic energy"))
		b.WriteString(graphStyle.Render(graph))
		b.WriteString("\n")
	}

	if m.finished {
		if m.runErr != nil {
			b.WriteString(doneStyle.Render(fmt.Sprintf("run failed: %v", m.runErr)))
		} else {
			b.WriteString(doneStyle.Render("run complete"))
		}
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render("q: quit"))
	return b.String()
}
