// SPDX-License-Identifier: MIT
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"audiolink/internal/analysis"
	"audiolink/internal/audio"
	"audiolink/internal/fft"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5"))

	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E0475B"))
)

// Controller is the part of the pipeline the monitor drives.
type Controller interface {
	Connect(ctx context.Context) error
	Disconnect() error
	StartRecording() error
	StopRecording() (string, error)
	StartTuning(mode audio.TuningMode) error
	StopTuning()
	SetMinFrequency(hz float64) analysis.Range
	SetMaxFrequency(hz float64) analysis.Range
	ResetWindow() analysis.Range
	Snapshot() audio.Snapshot
}

type tickMsg time.Time

// actionMsg reports the outcome of a control action.
type actionMsg struct {
	note string
	err  error
}

// MonitorModel is the Bubble Tea model showing the live pipeline state.
type MonitorModel struct {
	ctrl    Controller
	refresh time.Duration
	keys    keyMap
	help    help.Model

	snap  audio.Snapshot
	note  string
	err   error
	width int
}

// NewMonitorModel creates a monitor polling ctrl every refresh.
func NewMonitorModel(ctrl Controller, refresh time.Duration) MonitorModel {
	if refresh <= 0 {
		refresh = 100 * time.Millisecond
	}
	return MonitorModel{
		ctrl:    ctrl,
		refresh: refresh,
		keys:    newKeyMap(),
		help:    help.New(),
		snap:    ctrl.Snapshot(),
		width:   64,
	}
}

func (m MonitorModel) tick() tea.Cmd {
	return tea.Tick(m.refresh, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Init starts the refresh ticker.
func (m MonitorModel) Init() tea.Cmd {
	return m.tick()
}

// Update handles input and refreshes the snapshot.
func (m MonitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = max(msg.Width-4, 16)
		m.help.Width = msg.Width

	case tickMsg:
		m.snap = m.ctrl.Snapshot()
		return m, m.tick()

	case actionMsg:
		m.note, m.err = msg.note, msg.err
		m.snap = m.ctrl.Snapshot()

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Help) {
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		}
		return m, m.handleKey(msg)
	}
	return m, nil
}

func (m MonitorModel) handleKey(msg tea.KeyMsg) tea.Cmd {
	flags := m.snap.Flags
	ctrl := m.ctrl

	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit

	case key.Matches(msg, m.keys.Connect):
		if flags.Connected {
			return action("disconnected", ctrl.Disconnect)
		}
		return func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return actionMsg{note: "connected", err: ctrl.Connect(ctx)}
		}

	case key.Matches(msg, m.keys.Record):
		if flags.Recording {
			return func() tea.Msg {
				path, err := ctrl.StopRecording()
				return actionMsg{note: "saved " + path, err: err}
			}
		}
		return action("recording", ctrl.StartRecording)

	case key.Matches(msg, m.keys.Peak), key.Matches(msg, m.keys.Spectrogram):
		mode := audio.ModePeak
		if key.Matches(msg, m.keys.Spectrogram) {
			mode = audio.ModeSpectrogram
		}
		if flags.Tuning && m.snap.Mode == mode.String() {
			return action("tuning stopped", func() error { ctrl.StopTuning(); return nil })
		}
		return action("tuning "+mode.String(), func() error { return ctrl.StartTuning(mode) })

	case key.Matches(msg, m.keys.MinDown), key.Matches(msg, m.keys.MinUp),
		key.Matches(msg, m.keys.MaxDown), key.Matches(msg, m.keys.MaxUp):
		return m.moveEdge(msg)

	case key.Matches(msg, m.keys.Reset):
		return action("window reset", func() error { ctrl.ResetWindow(); return nil })
	}
	return nil
}

// moveEdge shifts one window edge by a tenth of the full range.
func (m MonitorModel) moveEdge(msg tea.KeyMsg) tea.Cmd {
	full := m.snap.MaxHz
	if r := m.snap.Latest; r != nil {
		full = float64(len(r.Spectrum)-1) * r.Resolution
	}
	delta := full / 10
	minHz, maxHz := m.snap.MinHz, m.snap.MaxHz
	ctrl := m.ctrl

	switch {
	case key.Matches(msg, m.keys.MinDown):
		return edge(func() analysis.Range { return ctrl.SetMinFrequency(max(minHz-delta, 0)) })
	case key.Matches(msg, m.keys.MinUp):
		return edge(func() analysis.Range { return ctrl.SetMinFrequency(minHz + delta) })
	case key.Matches(msg, m.keys.MaxDown):
		return edge(func() analysis.Range { return ctrl.SetMaxFrequency(max(maxHz-delta, 0)) })
	default:
		return edge(func() analysis.Range { return ctrl.SetMaxFrequency(maxHz + delta) })
	}
}

func action(note string, fn func() error) tea.Cmd {
	return func() tea.Msg { return actionMsg{note: note, err: fn()} }
}

func edge(fn func() analysis.Range) tea.Cmd {
	return func() tea.Msg {
		r := fn()
		return actionMsg{note: fmt.Sprintf("window bins %d-%d", r.Min, r.Max)}
	}
}

// View renders the UI.
func (m MonitorModel) View() string {
	var sb strings.Builder
	snap := m.snap

	sb.WriteString(titleStyle.Render("Audio Link Monitor"))
	sb.WriteString("  ")
	sb.WriteString(infoStyle.Render("session " + snap.Session))
	sb.WriteString("\n\n")

	fmt.Fprintf(&sb, "State:    %s\n", highlightStyle.Render(snap.State))
	fmt.Fprintf(&sb, "Flags:    %s %s %s\n",
		flag("connected", snap.Flags.Connected),
		flag("recording", snap.Flags.Recording),
		flag("tuning", snap.Flags.Tuning))
	fmt.Fprintf(&sb, "Mode:     %s\n", snap.Mode)
	fmt.Fprintf(&sb, "Window:   %s - %s Hz\n", snap.MinLabel, snap.MaxLabel)
	fmt.Fprintf(&sb, "Recorded: %d bytes   Dropped: %d\n", snap.Recorded, snap.Dropped)

	if r := snap.Latest; r != nil {
		fmt.Fprintf(&sb, "Peak:     %s Hz (window %s Hz)\n\n",
			highlightStyle.Render(analysis.FormatHz(r.PeakHz)), analysis.FormatHz(r.WindowPeakHz))
		sb.WriteString(Sparkline(r.Slice, m.width))
		sb.WriteString("\n")
	} else {
		sb.WriteString("Peak:     -\n\n")
	}

	sb.WriteString("\n")
	switch {
	case m.err != nil:
		sb.WriteString(errorStyle.Render("Error: " + m.err.Error()))
	case m.note != "":
		sb.WriteString(infoStyle.Render(m.note))
	}
	sb.WriteString("\n\n")
	sb.WriteString(m.help.View(m.keys))
	return sb.String()
}

func flag(name string, on bool) string {
	if on {
		return highlightStyle.Render("[" + name + "]")
	}
	return infoStyle.Render(" " + name + " ")
}

var bars = []rune("▁▂▃▄▅▆▇█")

// Sparkline renders s as one row of width block characters scaled to the
// largest magnitude. Each column shows the maximum of the bins it covers.
func Sparkline(s fft.Spectrum, width int) string {
	if len(s) == 0 || width <= 0 {
		return ""
	}
	width = min(width, len(s))

	cols := make([]float64, width)
	var peak float64
	for i, v := range s {
		c := i * width / len(s)
		cols[c] = max(cols[c], v)
		peak = max(peak, v)
	}

	out := make([]rune, width)
	for i, v := range cols {
		level := 0
		if peak > 0 {
			level = int(v / peak * float64(len(bars)-1))
		}
		out[i] = bars[level]
	}
	return string(out)
}

// Run shows the monitor until the user quits or ctx is cancelled.
func Run(ctx context.Context, ctrl Controller, refresh time.Duration) error {
	p := tea.NewProgram(
		NewMonitorModel(ctrl, refresh),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	_, err := p.Run()
	if ctx.Err() != nil {
		return nil
	}
	return err
}
