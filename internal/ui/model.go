// ABOUTME: Bubbletea model for the chunk player TUI
// ABOUTME: Defines display state, key handling and rendering
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/Resonate-Protocol/pcmchunk-go/pkg/chunkplayer"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginBottom(1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250"))

	gateOnStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("220"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	helpStyle = lipgloss.NewStyle().Faint(true)
)

// Model represents the TUI state
type Model struct {
	// Source
	title string
	total int64 // expected PCM bytes, 0 when unknown

	// Session
	sessionID string
	state     chunkplayer.State
	gating    bool

	// Stats
	stats chunkplayer.SchedulerStats

	lastErr  string
	started  time.Time
	quitting bool

	control *Control

	// Dimensions
	width  int
	height int
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case StatusMsg:
		m.applyStatus(msg)
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	if m.quitting {
		return "Stopping playback...\n"
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("PCM Chunk Player"))
	b.WriteString("\n\n")

	field(&b, "Source: ", m.title)
	field(&b, "Session: ", shortID(m.sessionID))
	field(&b, "State: ", m.state.String())

	b.WriteString(headerStyle.Render("Gating: "))
	if m.gating {
		b.WriteString(gateOnStyle.Render("on"))
	} else {
		b.WriteString(valueStyle.Render("off"))
	}
	b.WriteString("\n\n")

	b.WriteString(m.renderProgress())
	b.WriteString("\n")

	field(&b, "Chunks: ", fmt.Sprintf("%d received  %d accepted  %d gated",
		m.stats.Received, m.stats.Accepted, m.stats.Gated))
	field(&b, "Bytes: ", fmt.Sprintf("%d processed  %d written",
		m.stats.BytesProcessed, m.stats.BytesWritten))

	if !m.started.IsZero() {
		field(&b, "Elapsed: ", time.Since(m.started).Round(time.Second).String())
	}

	if m.lastErr != "" {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render("Error: " + m.lastErr))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("v:Toggle gating  q:Quit"))

	return b.String()
}

func field(b *strings.Builder, name, value string) {
	b.WriteString(headerStyle.Render(name))
	b.WriteString(valueStyle.Render(value))
	b.WriteString("\n")
}

// renderProgress renders processed bytes against the expected total
func (m Model) renderProgress() string {
	if m.total <= 0 {
		return headerStyle.Render("Progress: ") + valueStyle.Render(fmt.Sprintf("%d bytes", m.stats.BytesProcessed)) + "\n"
	}

	pct := int(m.stats.BytesProcessed * 100 / m.total)
	if pct > 100 {
		pct = 100
	}
	return headerStyle.Render("Progress: ") +
		valueStyle.Render(fmt.Sprintf("[%s] %d%%", renderBar(pct, 100, 30), pct)) + "\n"
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		if m.control != nil {
			select {
			case m.control.Quit <- struct{}{}:
			default:
			}
		}
		return m, tea.Quit
	case "v":
		m.gating = !m.gating
		if m.control != nil {
			select {
			case m.control.Gate <- m.gating:
			default:
			}
		}
	}

	return m, nil
}

// applyStatus updates model from status message
func (m *Model) applyStatus(msg StatusMsg) {
	if msg.Title != "" {
		m.title = msg.Title
	}
	if msg.Total != 0 {
		m.total = msg.Total
	}
	if msg.SessionID != "" && msg.SessionID != m.sessionID {
		m.sessionID = msg.SessionID
		m.started = time.Now()
	}
	if msg.State != nil {
		m.state = *msg.State
	}
	if msg.Gating != nil {
		m.gating = *msg.Gating
	}
	if msg.Stats != nil {
		m.stats = *msg.Stats
	}
	if msg.Err != "" {
		m.lastErr = msg.Err
	}
}

// StatusMsg updates TUI state. Zero and nil fields leave the current value.
type StatusMsg struct {
	Title     string
	Total     int64
	SessionID string
	State     *chunkplayer.State
	Gating    *bool
	Stats     *chunkplayer.SchedulerStats
	Err       string
}

// Utility functions
func renderBar(value, max, width int) string {
	if max <= 0 {
		return strings.Repeat("░", width)
	}
	filled := (value * width) / max
	if filled > width {
		filled = width
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func shortID(id string) string {
	if id == "" {
		return "-"
	}
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
