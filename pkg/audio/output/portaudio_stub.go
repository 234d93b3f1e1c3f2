//go:build !portaudio

// ABOUTME: PortAudio stub when library not available
// ABOUTME: Provides compile-time placeholder when PortAudio not installed
package output

import (
	"fmt"

	"github.com/Resonate-Protocol/pcmchunk-go/pkg/audio"
)

var errPortAudioDisabled = fmt.Errorf("PortAudio support not enabled (build with -tags portaudio)")

// PortAudio sink implementation (stub)
type PortAudio struct{}

// NewPortAudio creates a new PortAudio sink
func NewPortAudio() Sink {
	return &PortAudio{}
}

// Open always fails without the portaudio build tag
func (p *PortAudio) Open(format audio.Format) error { return errPortAudioDisabled }

// Start always fails without the portaudio build tag
func (p *PortAudio) Start() error { return errPortAudioDisabled }

// Write always fails without the portaudio build tag
func (p *PortAudio) Write(data []byte) (int, error) { return 0, errPortAudioDisabled }

// Stop is a no-op
func (p *PortAudio) Stop() error { return nil }

// Release is a no-op
func (p *PortAudio) Release() error { return nil }
