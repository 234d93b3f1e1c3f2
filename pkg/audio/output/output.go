// ABOUTME: Audio sink interface definition
// ABOUTME: Common interface for audio playback backends
package output

import (
	"errors"
	"fmt"

	"github.com/Resonate-Protocol/pcmchunk-go/pkg/audio"
)

// ErrReleased is returned by Write after the sink has been released
var ErrReleased = errors.New("output: sink released")

// Sink represents an audio output device fed with raw PCM bytes
type Sink interface {
	// Open prepares the device for the given format
	Open(format audio.Format) error

	// Start begins playback; writes before Start may block
	Start() error

	// Write queues PCM bytes, blocking until the device accepts them
	Write(p []byte) (int, error)

	// Stop pauses playback
	Stop() error

	// Release frees the device. A Write racing Release returns ErrReleased.
	Release() error
}

// Backend names accepted by New
const (
	BackendOto       = "oto"
	BackendMalgo     = "malgo"
	BackendPortAudio = "portaudio"
	BackendNull      = "null"
)

// New creates an unopened sink for the named backend
func New(backend string) (Sink, error) {
	switch backend {
	case "", BackendOto:
		return NewOto(), nil
	case BackendMalgo:
		return NewMalgo(), nil
	case BackendPortAudio:
		return NewPortAudio(), nil
	case BackendNull:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown output backend: %s", backend)
	}
}

// Factory returns a constructor for the named backend, validating the name once
func Factory(backend string) (func() (Sink, error), error) {
	if _, err := New(backend); err != nil {
		return nil, err
	}
	return func() (Sink, error) {
		return New(backend)
	}, nil
}
