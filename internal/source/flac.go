// ABOUTME: FLAC file source
// ABOUTME: Decodes FLAC frames with mewkiz/flac and scales samples to 16 bits
package source

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/mewkiz/flac"
)

// FLACSource reads from a FLAC file
type FLACSource struct {
	file       *os.File
	stream     *flac.Stream
	sampleRate int
	channels   int
	bitDepth   int

	// interleaved samples of the last parsed frame not yet returned
	pending []int16
}

// NewFLACSource creates a new FLAC audio source
func NewFLACSource(path string) (*FLACSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open FLAC file: %w", err)
	}

	stream, err := flac.New(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode FLAC: %w", err)
	}

	info := stream.Info
	s := &FLACSource{
		file:       f,
		stream:     stream,
		sampleRate: int(info.SampleRate),
		channels:   int(info.NChannels),
		bitDepth:   int(info.BitsPerSample),
	}

	log.Info("Loaded FLAC", "title", Title(path), "rate", s.sampleRate,
		"channels", s.channels, "bits", s.bitDepth)

	return s, nil
}

func (s *FLACSource) Read(samples []int16) (int, error) {
	read := 0
	for read < len(samples) {
		if len(s.pending) == 0 {
			if err := s.parseFrame(); err != nil {
				if errors.Is(err, io.EOF) && read > 0 {
					return read, nil
				}
				return read, err
			}
		}

		n := copy(samples[read:], s.pending)
		s.pending = s.pending[n:]
		read += n
	}
	return read, nil
}

// parseFrame decodes the next frame into pending
func (s *FLACSource) parseFrame() error {
	frame, err := s.stream.ParseNext()
	if err != nil {
		return err
	}

	shift := s.bitDepth - 16
	blockSize := int(frame.BlockSize)
	out := make([]int16, 0, blockSize*s.channels)

	for i := 0; i < blockSize; i++ {
		for ch := 0; ch < s.channels; ch++ {
			sample := frame.Subframes[ch].Samples[i]
			if shift > 0 {
				sample >>= shift
			} else if shift < 0 {
				sample <<= -shift
			}
			out = append(out, int16(sample))
		}
	}

	s.pending = out
	return nil
}

func (s *FLACSource) SampleRate() int { return s.sampleRate }
func (s *FLACSource) Channels() int   { return s.channels }
func (s *FLACSource) Close() error {
	return s.file.Close()
}
