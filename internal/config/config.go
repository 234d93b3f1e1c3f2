// ABOUTME: Layered configuration for the player and ingest server
// ABOUTME: Defaults, then YAML file, then .env and PCMCHUNK_* variables, then validation
package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"os"

	"github.com/Resonate-Protocol/pcmchunk-go/pkg/audio/output"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
	"gopkg.in/yaml.v3"
)

// Config is the complete runtime configuration
type Config struct {
	Playback PlaybackConfig `yaml:"playback"`
	Ingest   IngestConfig   `yaml:"ingest"`
	Log      LogConfig      `yaml:"log"`
}

// PlaybackConfig controls local sessions
type PlaybackConfig struct {
	Input   string `yaml:"input" env:"PCMCHUNK_INPUT, overwrite"`
	VAD     bool   `yaml:"vad" env:"PCMCHUNK_VAD, overwrite"`
	ChunkMs int    `yaml:"chunk_ms" env:"PCMCHUNK_CHUNK_MS, overwrite"`
	Backend string `yaml:"backend" env:"PCMCHUNK_OUTPUT, overwrite"`
}

// IngestConfig controls the WebSocket ingest server
type IngestConfig struct {
	Listen string `yaml:"listen" env:"PCMCHUNK_LISTEN, overwrite"`
	MDNS   bool   `yaml:"mdns" env:"PCMCHUNK_MDNS, overwrite"`
	Name   string `yaml:"name" env:"PCMCHUNK_NAME, overwrite"`
}

// LogConfig controls logging
type LogConfig struct {
	Level string `yaml:"level" env:"PCMCHUNK_LOG_LEVEL, overwrite"`
	File  string `yaml:"file" env:"PCMCHUNK_LOG_FILE, overwrite"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Playback: PlaybackConfig{
			VAD:     true,
			ChunkMs: 20,
			Backend: output.BackendOto,
		},
		Ingest: IngestConfig{
			Listen: ":8927",
			MDNS:   true,
			Name:   "pcmchunk",
		},
		Log: LogConfig{
			Level: "info",
			File:  "pcmchunk.log",
		},
	}
}

// Load reads the YAML file at path over the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes YAML from r over the defaults. Unknown keys are errors.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	return cfg, nil
}

// LoadEnvFile loads variables from a .env file into the process environment.
// A missing file is not an error.
func LoadEnvFile(path string, logger *log.Logger) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if logger != nil {
				logger.Debug("No env file", "path", path)
			}
			return nil
		}
		return fmt.Errorf("config: load %q: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides fields from PCMCHUNK_* environment variables
func (c *Config) ApplyEnv(ctx context.Context) error {
	return c.ApplyEnvFrom(ctx, envconfig.OsLookuper())
}

// ApplyEnvFrom overrides fields from the variables l resolves
func (c *Config) ApplyEnvFrom(ctx context.Context, l envconfig.Lookuper) error {
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   c,
		Lookuper: l,
	}); err != nil {
		return fmt.Errorf("config: environment: %w", err)
	}
	return nil
}

// Validate reports every invalid field at once
func (c *Config) Validate() error {
	var errs []error

	if c.Playback.ChunkMs < 5 || c.Playback.ChunkMs > 1000 {
		errs = append(errs, fmt.Errorf("playback.chunk_ms %d is out of range [5, 1000]", c.Playback.ChunkMs))
	}
	if _, err := output.Factory(c.Playback.Backend); err != nil {
		errs = append(errs, fmt.Errorf("playback.backend: %w", err))
	}

	if _, _, err := net.SplitHostPort(c.Ingest.Listen); err != nil {
		errs = append(errs, fmt.Errorf("ingest.listen %q: %w", c.Ingest.Listen, err))
	}
	if c.Ingest.MDNS && c.Ingest.Name == "" {
		errs = append(errs, errors.New("ingest.name is required when mdns is enabled"))
	}

	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level %q is invalid; valid values: debug, info, warn, error", c.Log.Level))
	}

	return errors.Join(errs...)
}

// LogLevel returns the parsed log level, info when invalid
func (c *Config) LogLevel() log.Level {
	level, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return log.InfoLevel
	}
	return level
}
