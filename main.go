// ABOUTME: Entry point for the PCM chunk player
// ABOUTME: Plays a file or test tone through a session, or serves remote producers
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

	"github.com/Resonate-Protocol/pcmchunk-go/internal/app"
	"github.com/Resonate-Protocol/pcmchunk-go/internal/config"
	"github.com/Resonate-Protocol/pcmchunk-go/internal/ingest"
	"github.com/Resonate-Protocol/pcmchunk-go/internal/source"
	"github.com/Resonate-Protocol/pcmchunk-go/internal/ui"
	"github.com/Resonate-Protocol/pcmchunk-go/internal/version"
	"github.com/Resonate-Protocol/pcmchunk-go/pkg/audio/output"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

var (
	configPath  = flag.String("config", "", "YAML config file")
	envFile     = flag.String("env-file", ".env", "Env file with PCMCHUNK_* overrides")
	input       = flag.String("input", "", "Audio file to play (default: test tone bursts)")
	vad         = flag.Bool("vad", true, "Skip near-silent chunks")
	chunkMs     = flag.Int("chunk-ms", 20, "Chunk duration in milliseconds")
	backend     = flag.String("output", output.BackendOto, "Audio output: oto, malgo, portaudio or null")
	logFile     = flag.String("log-file", "pcmchunk.log", "Log file path")
	logLevel    = flag.String("log-level", "info", "Log level: debug, info, warn, error")
	noTUI       = flag.Bool("no-tui", false, "Disable TUI, use streaming logs instead")
	serve       = flag.Bool("serve", false, "Run the WebSocket ingest server instead of playing a file")
	listen      = flag.String("listen", ":8927", "Ingest server listen address")
	noMDNS      = flag.Bool("no-mdns", false, "Disable mDNS advertisement")
	name        = flag.String("name", "", "mDNS instance name (default: hostname-pcmchunk)")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "pcmchunk: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	// The ingest server has no display of its own
	useTUI := !*noTUI && !*serve

	// Set up logging
	var f *os.File
	if cfg.Log.File != "" {
		f, err = os.OpenFile(cfg.Log.File, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666)
		if err != nil {
			return fmt.Errorf("error opening log file: %w", err)
		}
		defer func() { _ = f.Close() }()
	}

	var w io.Writer = os.Stdout
	switch {
	case useTUI && f != nil:
		// TUI mode: log only to file
		w = f
	case useTUI:
		w = io.Discard
	case f != nil:
		// Streaming logs mode: log to both stdout and file
		w = io.MultiWriter(os.Stdout, f)
	}

	logger := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
		Level:           cfg.LogLevel(),
	})
	log.SetDefault(logger)

	newSink, err := output.Factory(cfg.Playback.Backend)
	if err != nil {
		return err
	}

	if *serve {
		return serveIngest(ctx, cfg, newSink, logger)
	}
	return playLocal(ctx, cfg, newSink, logger, useTUI)
}

// loadConfig layers defaults, the config file, the env file, PCMCHUNK_* variables
// and explicitly set flags, then validates the result
func loadConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, err
	}
	if err := config.LoadEnvFile(*envFile, nil); err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(ctx); err != nil {
		return nil, err
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "input":
			cfg.Playback.Input = *input
		case "vad":
			cfg.Playback.VAD = *vad
		case "chunk-ms":
			cfg.Playback.ChunkMs = *chunkMs
		case "output":
			cfg.Playback.Backend = *backend
		case "log-file":
			cfg.Log.File = *logFile
		case "log-level":
			cfg.Log.Level = *logLevel
		case "listen":
			cfg.Ingest.Listen = *listen
		case "no-mdns":
			cfg.Ingest.MDNS = !*noMDNS
		case "name":
			cfg.Ingest.Name = *name
		}
	})

	if cfg.Ingest.Name == "" || cfg.Ingest.Name == config.Default().Ingest.Name {
		if hostname, err := os.Hostname(); err == nil {
			cfg.Ingest.Name = fmt.Sprintf("%s-pcmchunk", hostname)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func serveIngest(ctx context.Context, cfg *config.Config, newSink func() (output.Sink, error), logger *log.Logger) error {
	logger.Info("Starting ingest server", "version", version.Version, "name", cfg.Ingest.Name)

	srv := ingest.New(ingest.Config{
		Addr:       cfg.Ingest.Listen,
		Name:       cfg.Ingest.Name,
		EnableMDNS: cfg.Ingest.MDNS,
		NewSink:    newSink,
		Logger:     logger,
	})
	return srv.Run(ctx)
}

func playLocal(ctx context.Context, cfg *config.Config, newSink func() (output.Sink, error), logger *log.Logger, useTUI bool) error {
	var tui *ui.TUI
	var ctrl *ui.Control
	if useTUI {
		ctrl = ui.NewControl()
		tui = ui.New(source.Title(cfg.Playback.Input), cfg.Playback.VAD, ctrl)
	} else {
		logger.Info("Starting PCM chunk player", "version", version.Version)
		logger.Info("TUI disabled - streaming logs")
	}

	player := app.New(app.Config{
		Input:         cfg.Playback.Input,
		VAD:           cfg.Playback.VAD,
		ChunkDuration: time.Duration(cfg.Playback.ChunkMs) * time.Millisecond,
		NewSink:       newSink,
		Logger:        logger,
		Control:       ctrl,
		OnStatus: func(msg ui.StatusMsg) {
			if tui != nil {
				tui.Update(msg)
			}
		},
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := player.Run(gctx)
		if tui == nil {
			return err
		}
		// Leave the final state on screen until the user quits
		if err != nil {
			logger.Error("Playback failed", "err", err)
		}
		return nil
	})

	if tui != nil {
		g.Go(func() error {
			go func() {
				<-gctx.Done()
				tui.Stop()
			}()
			err := tui.Run()
			cancel()
			return err
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("Player stopped")
	return nil
}
