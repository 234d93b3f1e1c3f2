// ABOUTME: Opus audio encoder
// ABOUTME: Encodes one 20ms frame of int16 samples per packet
package encode

import (
	"fmt"

	"github.com/Resonate-Protocol/pcmchunk-go/pkg/audio"
	"gopkg.in/hraban/opus.v2"
)

// maxOpusPacket bounds a single encoded packet
const maxOpusPacket = 4000

// OpusEncoder encodes Opus audio
type OpusEncoder struct {
	encoder   *opus.Encoder
	channels  int
	frameSize int
}

// NewOpus creates a new Opus encoder tuned for speech
func NewOpus(format audio.Format) (*OpusEncoder, error) {
	if format.BitDepth != 16 {
		return nil, fmt.Errorf("unsupported bit depth for opus: %d", format.BitDepth)
	}

	encoder, err := opus.NewEncoder(format.SampleRate, format.Channels, opus.AppVoIP)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus encoder: %w", err)
	}

	return &OpusEncoder{
		encoder:   encoder,
		channels:  format.Channels,
		frameSize: format.SampleRate / 50, // 20ms frame
	}, nil
}

// FrameSize returns the samples per channel in one frame
func (e *OpusEncoder) FrameSize() int {
	return e.frameSize
}

// Encode converts exactly one frame of interleaved samples to an Opus packet
func (e *OpusEncoder) Encode(samples []int16) ([]byte, error) {
	if want := e.frameSize * e.channels; len(samples) != want {
		return nil, fmt.Errorf("opus frame must hold %d samples, got %d", want, len(samples))
	}

	data := make([]byte, maxOpusPacket)
	n, err := e.encoder.Encode(samples, data)
	if err != nil {
		return nil, fmt.Errorf("opus encode error: %w", err)
	}

	return data[:n], nil
}

// Close releases resources
func (e *OpusEncoder) Close() error {
	return nil
}
