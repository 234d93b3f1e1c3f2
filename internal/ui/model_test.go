// ABOUTME: Tests for TUI model and state management
// ABOUTME: Tests status updates, key handling, and rendering helpers
package ui

import (
	"strings"
	"testing"

	"github.com/Resonate-Protocol/pcmchunk-go/pkg/chunkplayer"
	tea "github.com/charmbracelet/bubbletea"
)

func TestNewModel(t *testing.T) {
	model := NewModel("tone", true, nil) // Control is optional for testing

	if model.title != "tone" {
		t.Errorf("expected title 'tone', got '%s'", model.title)
	}
	if !model.gating {
		t.Error("expected gating to start enabled")
	}
	if model.state != chunkplayer.StateUninitialized {
		t.Errorf("expected uninitialized state, got %v", model.state)
	}
}

func TestStatusMsgSession(t *testing.T) {
	model := NewModel("", false, nil)

	state := chunkplayer.StatePlaying
	model.applyStatus(StatusMsg{SessionID: "0123456789abcdef", State: &state})

	if model.sessionID != "0123456789abcdef" {
		t.Errorf("expected session id to be set, got '%s'", model.sessionID)
	}
	if model.state != chunkplayer.StatePlaying {
		t.Errorf("expected playing, got %v", model.state)
	}
	if model.started.IsZero() {
		t.Error("expected a new session to reset the start time")
	}
}

func TestStatusMsgStats(t *testing.T) {
	model := NewModel("", false, nil)

	stats := chunkplayer.SchedulerStats{Received: 10, Accepted: 7, Gated: 3, BytesProcessed: 6400}
	model.applyStatus(StatusMsg{Stats: &stats, Total: 12800})

	if model.stats != stats {
		t.Errorf("expected stats %+v, got %+v", stats, model.stats)
	}
	if !strings.Contains(model.renderProgress(), "50%") {
		t.Errorf("expected 50%% progress, got %q", model.renderProgress())
	}
}

func TestStatusMsgZeroValues(t *testing.T) {
	model := NewModel("file.wav", true, nil)

	state := chunkplayer.StateDraining
	model.applyStatus(StatusMsg{State: &state, Err: "sink failed"})
	model.applyStatus(StatusMsg{})

	if model.title != "file.wav" {
		t.Errorf("empty update must keep title, got '%s'", model.title)
	}
	if model.state != chunkplayer.StateDraining {
		t.Errorf("empty update must keep state, got %v", model.state)
	}
	if !model.gating {
		t.Error("empty update must keep gating")
	}
	if model.lastErr != "sink failed" {
		t.Errorf("empty update must keep error, got '%s'", model.lastErr)
	}
}

func TestGatingKeySendsControl(t *testing.T) {
	ctrl := NewControl()
	model := NewModel("", false, ctrl)

	updated, _ := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'v'}})
	m := updated.(Model)

	if !m.gating {
		t.Error("expected gating on after v")
	}
	select {
	case enabled := <-ctrl.Gate:
		if !enabled {
			t.Error("expected gate control to carry true")
		}
	default:
		t.Error("expected a gate control message")
	}

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'v'}})
	if updated.(Model).gating {
		t.Error("expected gating off after second v")
	}
}

func TestQuitKey(t *testing.T) {
	tests := []struct {
		name string
		key  tea.KeyMsg
	}{
		{"q", tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}}},
		{"ctrl+c", tea.KeyMsg{Type: tea.KeyCtrlC}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := NewControl()
			updated, cmd := NewModel("", false, ctrl).Update(tt.key)

			if cmd == nil {
				t.Fatal("expected quit command")
			}
			if !updated.(Model).quitting {
				t.Error("expected quitting to be set")
			}
			select {
			case <-ctrl.Quit:
			default:
				t.Error("expected a quit control message")
			}
		})
	}
}

func TestViewShowsState(t *testing.T) {
	model := NewModel("tone", true, nil)
	state := chunkplayer.StateStopped
	model.applyStatus(StatusMsg{State: &state})

	view := model.View()
	for _, want := range []string{"tone", "stopped", "on", "v:Toggle gating"} {
		if !strings.Contains(view, want) {
			t.Errorf("expected view to contain %q", want)
		}
	}
}

func TestRenderBar(t *testing.T) {
	tests := []struct {
		value int
		want  string
	}{
		{0, "░░░░"},
		{50, "██░░"},
		{100, "████"},
		{150, "████"},
	}

	for _, tt := range tests {
		if got := renderBar(tt.value, 100, 4); got != tt.want {
			t.Errorf("renderBar(%d) = %q, want %q", tt.value, got, tt.want)
		}
	}
}

func TestShortID(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", "-"},
		{"abc", "abc"},
		{"0123456789abcdef", "01234567"},
	}

	for _, tt := range tests {
		if got := shortID(tt.input); got != tt.expected {
			t.Errorf("shortID(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}
