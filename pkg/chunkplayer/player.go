// ABOUTME: Player session controller
// ABOUTME: Owns the audio sink and scheduler and drives the session lifecycle
package chunkplayer

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/Resonate-Protocol/pcmchunk-go/pkg/audio"
	"github.com/Resonate-Protocol/pcmchunk-go/pkg/audio/analyze"
	"github.com/Resonate-Protocol/pcmchunk-go/pkg/audio/output"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// Config holds player configuration
type Config struct {
	// Format is the sink format (default: 16kHz mono 16-bit)
	Format audio.Format

	// NewSink creates a fresh sink for every session (default: oto)
	NewSink func() (output.Sink, error)

	// Analyzer scores chunks for gating (default: FrequencyScanner)
	Analyzer analyze.Analyzer

	// Logger receives lifecycle warnings and errors (default: log.Default())
	Logger *log.Logger

	// OnStateChange is called after every state transition, outside the player lock
	OnStateChange func(State)
}

// Player plays one session at a time. All methods are safe for concurrent use.
type Player struct {
	config Config
	gating atomic.Bool

	mu        sync.Mutex
	state     State
	scheduler *Scheduler
	sink      output.Sink
	sessionID string
	last      SchedulerStats
}

// NewPlayer creates an idle player
func NewPlayer(config Config) *Player {
	if config.Format.SampleRate == 0 {
		config.Format = audio.PlaybackFormat
	}
	if config.NewSink == nil {
		config.NewSink = func() (output.Sink, error) {
			return output.NewOto(), nil
		}
	}
	if config.Analyzer == nil {
		config.Analyzer = analyze.NewFrequencyScanner()
	}
	if config.Logger == nil {
		config.Logger = log.Default()
	}

	return &Player{config: config}
}

// ConfigureSession tears down any previous session and starts a new one with a
// fresh sink. It fails only when the sink cannot be opened or started.
func (p *Player) ConfigureSession(gating bool, listener Listener) error {
	p.Teardown()

	sink, err := p.config.NewSink()
	if err != nil {
		return fmt.Errorf("failed to create sink: %w", err)
	}
	if err := sink.Open(p.config.Format); err != nil {
		sink.Release()
		return fmt.Errorf("failed to open sink: %w", err)
	}
	if err := sink.Start(); err != nil {
		sink.Release()
		return fmt.Errorf("failed to start sink: %w", err)
	}

	p.gating.Store(gating)

	var sched *Scheduler
	sched = NewScheduler(SchedulerConfig{
		Sink:     sink,
		Listener: listener,
		Gating:   gating,
		Logger:   p.config.Logger,
		OnFatal: func(err error) {
			p.abort(sched, err)
		},
	})

	p.mu.Lock()
	oldSched, oldSink := p.detachLocked()
	p.scheduler = sched
	p.sink = sink
	p.sessionID = uuid.NewString()
	p.last = SchedulerStats{}
	id := p.sessionID
	notify := p.setStateLocked(StateReady)
	sched.Start()
	p.mu.Unlock()

	// Another ConfigureSession may have slipped in between Teardown and the lock
	p.release(oldSched, oldSink)

	p.config.Logger.Info("Session configured", "session", id, "gating", gating,
		"rate", p.config.Format.SampleRate, "channels", p.config.Format.Channels)
	notify()

	go p.watch(sched)
	return nil
}

// SubmitChunk copies size bytes of data into a chunk and queues it for playback.
// Without a live session it logs a warning and does nothing.
func (p *Player) SubmitChunk(data []byte, size int) {
	p.mu.Lock()
	sched := p.scheduler
	state := p.state
	p.mu.Unlock()

	if sched == nil {
		p.config.Logger.Warn("Chunk submitted without a session, dropping", "bytes", size)
		return
	}
	if state == StateDraining || state == StateStopped {
		p.config.Logger.Warn("Chunk submitted after finish, dropping", "state", state, "bytes", size)
		return
	}

	// Scoring runs outside the lock
	chunk := NewChunk(data, size, p.config.Analyzer)

	p.mu.Lock()
	if p.scheduler != sched {
		p.mu.Unlock()
		p.config.Logger.Warn("Session ended while submitting chunk, dropping", "bytes", size)
		return
	}
	notify := func() {}
	if p.state == StateReady {
		notify = p.setStateLocked(StatePlaying)
	}
	sched.Enqueue(chunk)
	p.mu.Unlock()

	notify()
}

// FinishGracefully plays everything already queued, then fires OnFinish once.
// Without a live session it logs a warning and does nothing.
func (p *Player) FinishGracefully() {
	p.mu.Lock()
	sched := p.scheduler
	if sched == nil {
		p.mu.Unlock()
		p.config.Logger.Warn("Finish requested without a session")
		return
	}

	notify := func() {}
	if p.state == StateReady || p.state == StatePlaying {
		notify = p.setStateLocked(StateDraining)
	}
	sched.RequestGracefulStop()
	p.mu.Unlock()

	notify()
}

// Teardown stops playback after the chunk in flight and releases the sink.
// Queued chunks are discarded and OnFinish does not fire. Safe to call repeatedly.
func (p *Player) Teardown() {
	p.mu.Lock()
	sched, sink := p.detachLocked()
	if sched == nil {
		p.mu.Unlock()
		return
	}
	id := p.sessionID
	p.sessionID = ""
	notify := p.setStateLocked(StateUninitialized)
	p.mu.Unlock()

	p.release(sched, sink)
	p.config.Logger.Info("Session torn down", "session", id)
	notify()
}

// SetGatingEnabled toggles voice-activity gating. It applies to the current
// session from the next chunk on and to nothing queued later than Teardown.
func (p *Player) SetGatingEnabled(enabled bool) {
	p.gating.Store(enabled)

	p.mu.Lock()
	sched := p.scheduler
	p.mu.Unlock()

	if sched != nil {
		sched.SetGatingEnabled(enabled)
	}
}

// GatingEnabled reports the last gating value set
func (p *Player) GatingEnabled() bool {
	return p.gating.Load()
}

// State returns the current lifecycle state
func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// SessionID returns the current session id, or "" without a session
func (p *Player) SessionID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sessionID
}

// Stats returns the current session's scheduler statistics, or the final
// statistics of the last session after Teardown
func (p *Player) Stats() SchedulerStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.scheduler != nil {
		return p.scheduler.Stats()
	}
	return p.last
}

// Done returns a channel closed when the current session's scheduler exits.
// Without a session the channel is already closed.
func (p *Player) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.scheduler != nil {
		return p.scheduler.Done()
	}
	closed := make(chan struct{})
	close(closed)
	return closed
}

// watch moves a drained session to StateStopped
func (p *Player) watch(sched *Scheduler) {
	<-sched.Done()
	if !sched.Finished() {
		return
	}

	p.mu.Lock()
	if p.scheduler != sched {
		p.mu.Unlock()
		return
	}
	notify := p.setStateLocked(StateStopped)
	p.mu.Unlock()

	p.config.Logger.Info("Session finished", "bytes", sched.Stats().BytesProcessed)
	notify()
}

// abort tears down the session owning sched after a fatal sink error
func (p *Player) abort(sched *Scheduler, err error) {
	p.mu.Lock()
	if p.scheduler != sched {
		p.mu.Unlock()
		return
	}
	_, sink := p.detachLocked()
	id := p.sessionID
	p.sessionID = ""
	notify := p.setStateLocked(StateUninitialized)
	p.mu.Unlock()

	p.release(nil, sink)
	p.config.Logger.Warn("Session aborted after sink failure", "session", id, "err", err)
	notify()
}

// detachLocked clears the session references and returns them for release
func (p *Player) detachLocked() (*Scheduler, output.Sink) {
	sched, sink := p.scheduler, p.sink
	if sched != nil {
		p.last = sched.Stats()
	}
	p.scheduler = nil
	p.sink = nil
	return sched, sink
}

// release stops a detached scheduler without waiting for it and frees its sink
func (p *Player) release(sched *Scheduler, sink output.Sink) {
	if sched != nil {
		sched.RequestImmediateStop()
	}
	if sink == nil {
		return
	}
	if err := sink.Stop(); err != nil {
		p.config.Logger.Warn("Failed to stop sink", "err", err)
	}
	if err := sink.Release(); err != nil {
		p.config.Logger.Warn("Failed to release sink", "err", err)
	}
}

// setStateLocked records a transition and returns the notification to run after unlocking
func (p *Player) setStateLocked(s State) func() {
	if p.state == s {
		return func() {}
	}
	p.state = s

	cb := p.config.OnStateChange
	if cb == nil {
		return func() {}
	}
	return func() { cb(s) }
}
