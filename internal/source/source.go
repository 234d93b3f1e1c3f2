// ABOUTME: Audio source abstraction for file playback and test tones
// ABOUTME: Opens MP3, FLAC, Opus, WAV and raw PCM files by extension
package source

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsupported is returned by Open for unknown file extensions
var ErrUnsupported = errors.New("unsupported audio format")

// Source provides interleaved 16-bit PCM samples
type Source interface {
	// Read fills samples and returns how many were written.
	// It returns io.EOF once the source is exhausted.
	Read(samples []int16) (int, error)
	// SampleRate returns the sample rate of the audio
	SampleRate() int
	// Channels returns the number of channels
	Channels() int
	// Close closes the audio source
	Close() error
}

// Open creates a source from a file path. An empty path yields the default
// tone source.
func Open(path string) (Source, error) {
	if path == "" {
		return NewToneSource(DefaultToneConfig()), nil
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("audio file not found: %s", path)
		}
		return nil, fmt.Errorf("failed to stat audio file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".mp3":
		return NewMP3Source(path)
	case ".flac":
		return NewFLACSource(path)
	case ".opus", ".ogg":
		return NewOggOpusSource(path)
	case ".opf":
		return NewOpusFrameSource(path)
	case ".wav":
		return NewWAVSource(path)
	case ".pcm", ".raw":
		return NewPCMSource(path)
	default:
		return nil, fmt.Errorf("%w: %s (supported: .mp3, .flac, .opus, .ogg, .opf, .wav, .pcm, .raw)", ErrUnsupported, ext)
	}
}

// Title derives a display name from a file path
func Title(path string) string {
	if path == "" {
		return "tone"
	}
	filename := filepath.Base(path)
	return strings.TrimSuffix(filename, filepath.Ext(filename))
}
