// ABOUTME: Encoder interface definition
// ABOUTME: Common interface for chunk payload encoders
package encode

import (
	"fmt"

	"github.com/Resonate-Protocol/pcmchunk-go/pkg/audio"
)

// Codec names accepted by New
const (
	CodecPCM  = "pcm"
	CodecOpus = "opus"
)

// Encoder encodes interleaved 16-bit samples to a wire payload
type Encoder interface {
	// Encode converts PCM samples to encoded audio data
	Encode(samples []int16) ([]byte, error)

	// Close releases encoder resources
	Close() error
}

// New creates an encoder for the named codec reading the given format
func New(codec string, format audio.Format) (Encoder, error) {
	switch codec {
	case "", CodecPCM:
		return NewPCM(format)
	case CodecOpus:
		enc, err := NewOpus(format)
		if err != nil {
			return nil, err
		}
		return enc, nil
	default:
		return nil, fmt.Errorf("unsupported codec: %s", codec)
	}
}
