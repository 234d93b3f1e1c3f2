// ABOUTME: Local playback orchestration
// ABOUTME: Feeds a source through a chunk player session and reports progress
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/Resonate-Protocol/pcmchunk-go/internal/source"
	"github.com/Resonate-Protocol/pcmchunk-go/internal/ui"
	"github.com/Resonate-Protocol/pcmchunk-go/pkg/audio"
	"github.com/Resonate-Protocol/pcmchunk-go/pkg/audio/analyze"
	"github.com/Resonate-Protocol/pcmchunk-go/pkg/audio/output"
	"github.com/Resonate-Protocol/pcmchunk-go/pkg/chunkplayer"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

// Config holds playback configuration
type Config struct {
	Input         string // file path, empty for the test tone
	VAD           bool
	ChunkDuration time.Duration

	NewSink  func() (output.Sink, error)
	Analyzer analyze.Analyzer
	Logger   *log.Logger

	// MaxAhead bounds how much audio may be queued beyond what was played (default 2s)
	MaxAhead time.Duration

	// Control receives TUI actions (optional)
	Control *ui.Control

	// OnStatus receives display updates (optional)
	OnStatus func(ui.StatusMsg)
}

// Player plays one source through one session
type Player struct {
	config Config
	logger *log.Logger
	player *chunkplayer.Player
}

// New creates a new player
func New(config Config) *Player {
	if config.ChunkDuration <= 0 {
		config.ChunkDuration = source.DefaultChunkDuration
	}
	if config.MaxAhead <= 0 {
		config.MaxAhead = 2 * time.Second
	}
	if config.Logger == nil {
		config.Logger = log.Default()
	}

	p := &Player{
		config: config,
		logger: config.Logger,
	}
	p.player = chunkplayer.NewPlayer(chunkplayer.Config{
		NewSink:  config.NewSink,
		Analyzer: config.Analyzer,
		Logger:   config.Logger,
		OnStateChange: func(s chunkplayer.State) {
			p.status(ui.StatusMsg{State: &s})
		},
	})
	return p
}

// Run plays the source until it drains, ctx is cancelled or the user quits
func (p *Player) Run(ctx context.Context) error {
	src, err := source.Open(p.config.Input)
	if err != nil {
		return fmt.Errorf("failed to open source: %w", err)
	}
	defer src.Close()

	chunker := source.NewChunker(src, p.config.ChunkDuration)

	var total int64
	if tone, ok := src.(*source.ToneSource); ok && tone.Duration() > 0 {
		total = int64(tone.Duration()/time.Millisecond) * int64(audio.PlaybackFormat.BytesPerMs())
	}
	gating := p.config.VAD
	p.status(ui.StatusMsg{Title: source.Title(p.config.Input), Total: total, Gating: &gating})

	playErr := make(chan error, 1)
	listener := chunkplayer.ListenerFuncs{
		Finish: func() {
			p.logger.Info("Playback finished")
		},
		Error: func(err error) {
			select {
			case playErr <- err:
			default:
			}
		},
	}

	if err := p.player.ConfigureSession(p.config.VAD, listener); err != nil {
		return fmt.Errorf("failed to configure session: %w", err)
	}
	defer p.player.Teardown()

	done := p.player.Done()
	p.status(ui.StatusMsg{SessionID: p.player.SessionID()})
	p.logger.Info("Playing", "source", source.Title(p.config.Input), "vad", p.config.VAD,
		"chunk", p.config.ChunkDuration)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return p.feed(gctx, chunker)
	})
	g.Go(func() error {
		p.report(gctx)
		return nil
	})
	if p.config.Control != nil {
		g.Go(func() error {
			p.handleControl(gctx, cancel)
			return nil
		})
	}
	g.Go(func() error {
		select {
		case <-done:
			cancel()
		case <-gctx.Done():
		}
		return nil
	})

	err = g.Wait()

	stats := p.player.Stats()
	p.status(ui.StatusMsg{Stats: &stats})
	p.logger.Info("Session stats", "accepted", stats.Accepted, "gated", stats.Gated,
		"processed", stats.BytesProcessed, "written", stats.BytesWritten)

	select {
	case perr := <-playErr:
		p.status(ui.StatusMsg{Err: perr.Error()})
		return fmt.Errorf("playback failed: %w", perr)
	default:
	}
	return err
}

// Stats returns the session statistics
func (p *Player) Stats() chunkplayer.SchedulerStats {
	return p.player.Stats()
}

// feed submits chunks, staying at most MaxAhead in front of playback
func (p *Player) feed(ctx context.Context, chunker *source.Chunker) error {
	ahead := int64(p.config.MaxAhead/time.Millisecond) * int64(audio.PlaybackFormat.BytesPerMs())
	var submitted int64

	for {
		chunk, err := chunker.Next()
		if errors.Is(err, io.EOF) {
			p.player.FinishGracefully()
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read source: %w", err)
		}

		for submitted-p.player.Stats().BytesProcessed > ahead {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(10 * time.Millisecond):
			}
		}

		select {
		case <-ctx.Done():
			return nil
		default:
		}

		p.player.SubmitChunk(chunk, len(chunk))
		submitted += int64(len(chunk))
	}
}

// report periodically publishes session statistics
func (p *Player) report(ctx context.Context) {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			stats := p.player.Stats()
			p.status(ui.StatusMsg{Stats: &stats})
		case <-ctx.Done():
			return
		}
	}
}

// handleControl applies TUI actions to the session
func (p *Player) handleControl(ctx context.Context, stop context.CancelFunc) {
	for {
		select {
		case enabled := <-p.config.Control.Gate:
			p.logger.Info("Gating changed", "enabled", enabled)
			p.player.SetGatingEnabled(enabled)
			p.status(ui.StatusMsg{Gating: &enabled})
		case <-p.config.Control.Quit:
			p.logger.Info("Received quit signal from TUI")
			stop()
			return
		case <-ctx.Done():
			return
		}
	}
}

func (p *Player) status(msg ui.StatusMsg) {
	if p.config.OnStatus != nil {
		p.config.OnStatus(msg)
	}
}
