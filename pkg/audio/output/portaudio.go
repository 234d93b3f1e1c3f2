//go:build portaudio

// ABOUTME: PortAudio sink implementation
// ABOUTME: Cross-platform blocking audio output using PortAudio
package output

import (
	"fmt"
	"sync"

	"github.com/Resonate-Protocol/pcmchunk-go/pkg/audio"
	"github.com/gordonklaus/portaudio"
)

// framesPerBuffer is the blocking write granularity (20ms at 16kHz)
const framesPerBuffer = 320

// PortAudio sink implementation
type PortAudio struct {
	mu       sync.Mutex
	stream   *portaudio.Stream
	buffer   []int16
	pending  []int16
	released bool
}

// NewPortAudio creates a new PortAudio sink
func NewPortAudio() Sink {
	return &PortAudio{}
}

// Open initializes PortAudio and a blocking output stream
func (p *PortAudio) Open(format audio.Format) error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	p.buffer = make([]int16, framesPerBuffer*format.Channels)
	stream, err := portaudio.OpenDefaultStream(0, format.Channels, float64(format.SampleRate), framesPerBuffer, p.buffer)
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("failed to open stream: %w", err)
	}

	p.stream = stream
	return nil
}

// Start starts the stream
func (p *PortAudio) Start() error {
	if p.stream == nil {
		return fmt.Errorf("output not opened")
	}
	return p.stream.Start()
}

// Write converts bytes to samples and writes whole buffers to the stream
func (p *PortAudio) Write(data []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.released {
		return 0, ErrReleased
	}
	if p.stream == nil {
		return 0, fmt.Errorf("output not opened")
	}

	p.pending = append(p.pending, audio.BytesToInt16(data)...)
	for len(p.pending) >= len(p.buffer) {
		copy(p.buffer, p.pending)
		p.pending = p.pending[len(p.buffer):]
		if err := p.stream.Write(); err != nil {
			return 0, fmt.Errorf("portaudio write failed: %w", err)
		}
	}
	return len(data), nil
}

// Stop stops the stream
func (p *PortAudio) Stop() error {
	if p.stream == nil {
		return nil
	}
	return p.stream.Stop()
}

// Release closes the stream and terminates PortAudio
func (p *PortAudio) Release() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.released {
		return nil
	}
	p.released = true

	if p.stream != nil {
		if err := p.stream.Close(); err != nil {
			return err
		}
		p.stream = nil
	}
	return portaudio.Terminate()
}
