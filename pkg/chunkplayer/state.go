// ABOUTME: Player session lifecycle states
// ABOUTME: Uninitialized, Ready, Playing, Draining, Stopped
package chunkplayer

// State is the lifecycle state of a Player session
type State int

const (
	// StateUninitialized means no session: before ConfigureSession and after Teardown
	StateUninitialized State = iota
	// StateReady means a sink is open and the scheduler is idle
	StateReady
	// StatePlaying means at least one chunk has been submitted
	StatePlaying
	// StateDraining means FinishGracefully was called and the queue is emptying
	StateDraining
	// StateStopped means the queue drained and OnFinish fired
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StatePlaying:
		return "playing"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Active reports whether a scheduler may still be consuming chunks
func (s State) Active() bool {
	return s == StateReady || s == StatePlaying || s == StateDraining
}
