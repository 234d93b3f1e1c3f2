// ABOUTME: Decoder interface definition
// ABOUTME: Common interface for chunk payload decoders
package decode

import (
	"fmt"

	"github.com/Resonate-Protocol/pcmchunk-go/pkg/audio"
)

// Codec names accepted by New
const (
	CodecPCM  = "pcm"
	CodecOpus = "opus"
)

// Decoder decodes one encoded payload to interleaved 16-bit samples
type Decoder interface {
	// Decode converts encoded audio data to PCM samples
	Decode(data []byte) ([]int16, error)

	// Close releases decoder resources
	Close() error
}

// New creates a decoder for the named codec producing the given format
func New(codec string, format audio.Format) (Decoder, error) {
	switch codec {
	case "", CodecPCM:
		return NewPCM(format)
	case CodecOpus:
		return NewOpus(format)
	default:
		return nil, fmt.Errorf("unsupported codec: %s", codec)
	}
}
