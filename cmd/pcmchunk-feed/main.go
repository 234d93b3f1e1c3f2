// ABOUTME: Entry point for the chunk feeder
// ABOUTME: Encodes a file or test tone and streams it to an ingest server
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Resonate-Protocol/pcmchunk-go/internal/client"
	"github.com/Resonate-Protocol/pcmchunk-go/internal/discovery"
	"github.com/Resonate-Protocol/pcmchunk-go/internal/source"
	"github.com/Resonate-Protocol/pcmchunk-go/pkg/audio"
	"github.com/Resonate-Protocol/pcmchunk-go/pkg/audio/encode"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

var (
	serverAddr = flag.String("server", "", "Ingest server host:port (default: discover over mDNS)")
	input      = flag.String("input", "", "Audio file to send (default: test tone bursts)")
	codec      = flag.String("codec", encode.CodecPCM, "Wire codec: pcm or opus")
	vad        = flag.Bool("vad", true, "Ask the server to skip near-silent chunks")
	chunkMs    = flag.Int("chunk-ms", 20, "Chunk duration in milliseconds (opus always uses 20)")
	realtime   = flag.Bool("realtime", true, "Send chunks at playback speed")
	debug      = flag.Bool("debug", false, "Enable debug logging")
)

func main() {
	flag.Parse()

	logger := log.NewWithOptions(os.Stdout, log.Options{ReportTimestamp: true, TimeFormat: time.TimeOnly})
	if *debug {
		logger.SetLevel(log.DebugLevel)
	}
	log.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger); err != nil {
		logger.Error("Feed failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *log.Logger) error {
	addr, path := *serverAddr, ""
	if addr == "" {
		logger.Info("Discovering ingest server...")
		lookupCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		server, err := discovery.Lookup(lookupCtx)
		cancel()
		if err != nil {
			return err
		}
		addr, path = server.Addr(), server.Path
		logger.Info("Discovered server", "name", server.Name, "addr", addr)
	}

	chunkDuration := time.Duration(*chunkMs) * time.Millisecond
	if *codec == encode.CodecOpus {
		chunkDuration = 20 * time.Millisecond
	}

	enc, err := encode.New(*codec, audio.PlaybackFormat)
	if err != nil {
		return err
	}
	defer enc.Close()

	src, err := source.Open(*input)
	if err != nil {
		return fmt.Errorf("failed to open source: %w", err)
	}
	defer src.Close()
	chunker := source.NewChunker(src, chunkDuration)

	c := client.NewClient(client.Config{ServerAddr: addr, Path: path, Logger: logger})
	if err := c.Connect(); err != nil {
		return err
	}
	defer c.Close()

	id, err := c.Start(ctx, *vad, *codec)
	if err != nil {
		return err
	}
	logger.Info("Session started", "session", id, "codec", *codec, "vad", *vad)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return send(gctx, c, chunker, enc, chunkDuration)
	})
	g.Go(func() error {
		return waitFinish(gctx, c)
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		logger.Info("Interrupted, stopping session")
		_ = c.Stop()
		return nil
	}
	return err
}

// send encodes and uploads every chunk, then ends the session
func send(ctx context.Context, c *client.Client, chunker *source.Chunker, enc encode.Encoder, d time.Duration) error {
	ticker := time.NewTicker(d)
	defer ticker.Stop()

	frame := chunker.ChunkBytes() / audio.PlaybackFormat.BytesPerSample()
	var sent int

	for {
		chunk, err := chunker.Next()
		if errors.Is(err, io.EOF) {
			fmt.Printf("\nSent %d chunks, waiting for playback to finish\n", sent)
			return c.End()
		}
		if err != nil {
			return fmt.Errorf("failed to read source: %w", err)
		}

		samples := audio.BytesToInt16(chunk)
		if _, ok := enc.(*encode.OpusEncoder); ok && len(samples) < frame {
			// Opus only takes whole frames
			samples = append(samples, make([]int16, frame-len(samples))...)
		}

		payload, err := enc.Encode(samples)
		if err != nil {
			return fmt.Errorf("failed to encode chunk: %w", err)
		}
		if err := c.SendChunk(payload); err != nil {
			return fmt.Errorf("failed to send chunk: %w", err)
		}
		sent++

		if *realtime {
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// waitFinish prints play progress until the server reports the end of the session
func waitFinish(ctx context.Context, c *client.Client) error {
	for {
		select {
		case total := <-c.Sizes:
			fmt.Printf("\rPlayed %d bytes (%s)", total, audio.PlaybackFormat.Duration(total).Round(10*time.Millisecond))
		case <-c.Finished:
			fmt.Println("\nPlayback finished")
			return nil
		case msg := <-c.Errors:
			return fmt.Errorf("server error: %s", msg)
		case <-c.Done():
			return errors.New("connection closed before playback finished")
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
