// ABOUTME: TUI initialization and control
// ABOUTME: Wraps the bubbletea program and its control channels
package ui

import (
	"sync"

	"github.com/Resonate-Protocol/pcmchunk-go/pkg/chunkplayer"
	tea "github.com/charmbracelet/bubbletea"
)

// Control carries user actions out of the TUI
type Control struct {
	Gate chan bool
	Quit chan struct{}
}

// NewControl creates a new control handler
func NewControl() *Control {
	return &Control{
		Gate: make(chan bool, 10),
		Quit: make(chan struct{}, 1),
	}
}

// NewModel creates a new TUI model
func NewModel(title string, gating bool, ctrl *Control) Model {
	return Model{
		title:   title,
		state:   chunkplayer.StateUninitialized,
		gating:  gating,
		control: ctrl,
	}
}

// TUI runs the player display
type TUI struct {
	program *tea.Program
	updates chan StatusMsg
	done    chan struct{}
	once    sync.Once
}

// New creates a TUI for the given source title
func New(title string, gating bool, ctrl *Control) *TUI {
	return &TUI{
		program: tea.NewProgram(NewModel(title, gating, ctrl), tea.WithAltScreen()),
		updates: make(chan StatusMsg, 32),
		done:    make(chan struct{}),
	}
}

// Run blocks until the user quits or Stop is called
func (t *TUI) Run() error {
	go func() {
		for {
			select {
			case msg := <-t.updates:
				t.program.Send(msg)
			case <-t.done:
				return
			}
		}
	}()

	_, err := t.program.Run()
	t.once.Do(func() { close(t.done) })
	return err
}

// Update sends a status update to the TUI
func (t *TUI) Update(msg StatusMsg) {
	select {
	case t.updates <- msg:
	default:
		// Don't block if channel is full
	}
}

// Stop quits the TUI
func (t *TUI) Stop() {
	t.once.Do(func() { close(t.done) })
	t.program.Quit()
}
