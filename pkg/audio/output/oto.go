// ABOUTME: Oto-based audio sink implementation
// ABOUTME: Streams PCM bytes through a pipe into a persistent oto player
package output

import (
	"fmt"
	"io"
	"sync"

	"github.com/Resonate-Protocol/pcmchunk-go/pkg/audio"
	"github.com/charmbracelet/log"
	"github.com/ebitengine/oto/v3"
)

// oto allows a single context per process, so sessions share it
var (
	otoMu     sync.Mutex
	otoCtx    *oto.Context
	otoFormat audio.Format
)

// sharedOtoContext returns the process-wide context, creating it on first use
func sharedOtoContext(format audio.Format) (*oto.Context, error) {
	otoMu.Lock()
	defer otoMu.Unlock()

	if otoCtx != nil {
		if otoFormat != format {
			log.Warn("oto doesn't support reinitialization, continuing with existing context",
				"have", fmt.Sprintf("%dHz/%dch", otoFormat.SampleRate, otoFormat.Channels),
				"want", fmt.Sprintf("%dHz/%dch", format.SampleRate, format.Channels))
		}
		return otoCtx, nil
	}

	op := &oto.NewContextOptions{
		SampleRate:   format.SampleRate,
		ChannelCount: format.Channels,
		Format:       oto.FormatSignedInt16LE,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}
	<-readyChan

	otoCtx = ctx
	otoFormat = format
	return ctx, nil
}

// Oto sink implementation using the oto library
type Oto struct {
	mu         sync.Mutex
	player     *oto.Player
	pipeReader *io.PipeReader
	pipeWriter *io.PipeWriter
	released   bool
}

// NewOto creates a new Oto sink
func NewOto() Sink {
	return &Oto{}
}

// Open initializes the shared context and a per-session player
func (o *Oto) Open(format audio.Format) error {
	if format.BitDepth != 16 {
		return fmt.Errorf("oto only supports 16-bit output, got %d", format.BitDepth)
	}

	ctx, err := sharedOtoContext(format)
	if err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	// Create pipe for continuous streaming
	o.pipeReader, o.pipeWriter = io.Pipe()
	o.player = ctx.NewPlayer(o.pipeReader)

	log.Info("Audio output initialized", "backend", BackendOto,
		"rate", format.SampleRate, "channels", format.Channels)
	return nil
}

// Start starts the persistent player
func (o *Oto) Start() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.player == nil {
		return fmt.Errorf("output not initialized")
	}
	o.player.Play()
	return nil
}

// Write feeds bytes to the player (blocks until the player consumes them)
func (o *Oto) Write(p []byte) (int, error) {
	o.mu.Lock()
	if o.released {
		o.mu.Unlock()
		return 0, ErrReleased
	}
	w := o.pipeWriter
	o.mu.Unlock()

	if w == nil {
		return 0, fmt.Errorf("output not initialized")
	}

	// Not holding mu: Release must be able to unblock this write
	n, err := w.Write(p)
	if err == io.ErrClosedPipe {
		return n, ErrReleased
	}
	if err != nil {
		return n, fmt.Errorf("pipe write failed: %w", err)
	}
	return n, nil
}

// Stop pauses the player
func (o *Oto) Stop() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.player != nil {
		o.player.Pause()
	}
	return nil
}

// Release closes the per-session player; the shared context stays alive
func (o *Oto) Release() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.released {
		return nil
	}
	o.released = true

	var firstErr error
	if o.pipeReader != nil {
		o.pipeReader.Close()
		o.pipeReader = nil
	}
	if o.player != nil {
		if err := o.player.Close(); err != nil {
			firstErr = fmt.Errorf("failed to close oto player: %w", err)
		}
		o.player = nil
	}
	if o.pipeWriter != nil {
		o.pipeWriter.Close()
		o.pipeWriter = nil
	}
	return firstErr
}
