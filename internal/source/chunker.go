// ABOUTME: Fixed-duration chunker
// ABOUTME: Downmixes and resamples any source into playback-format byte chunks
package source

import (
	"errors"
	"io"
	"time"

	"github.com/Resonate-Protocol/pcmchunk-go/pkg/audio"
	"github.com/Resonate-Protocol/pcmchunk-go/pkg/audio/resample"
)

// DefaultChunkDuration is the chunk length used when none is given
const DefaultChunkDuration = 20 * time.Millisecond

// Chunker cuts a source into chunks of audio.PlaybackFormat bytes
type Chunker struct {
	src       Source
	resampler *resample.Resampler
	chunkLen  int // samples per chunk at the playback rate
	readBuf   []int16
	pending   []int16
	eof       bool
}

// NewChunker creates a chunker emitting chunkDuration of audio per chunk
func NewChunker(src Source, chunkDuration time.Duration) *Chunker {
	if chunkDuration <= 0 {
		chunkDuration = DefaultChunkDuration
	}

	rate := audio.PlaybackFormat.SampleRate
	chunkLen := int(time.Duration(rate) * chunkDuration / time.Second)
	if chunkLen < 1 {
		chunkLen = 1
	}

	channels := src.Channels()
	if channels < 1 {
		channels = 1
	}

	return &Chunker{
		src:       src,
		resampler: resample.New(src.SampleRate(), rate, 1),
		chunkLen:  chunkLen,
		readBuf:   make([]int16, 1024*channels),
	}
}

// ChunkBytes returns the size of a full chunk
func (c *Chunker) ChunkBytes() int {
	return c.chunkLen * audio.PlaybackFormat.BytesPerSample()
}

// Next returns the next chunk. The final chunk may be short; after it Next
// returns io.EOF.
func (c *Chunker) Next() ([]byte, error) {
	for len(c.pending) < c.chunkLen && !c.eof {
		if err := c.fill(); err != nil {
			return nil, err
		}
	}

	if len(c.pending) == 0 {
		return nil, io.EOF
	}

	n := c.chunkLen
	if n > len(c.pending) {
		n = len(c.pending)
	}
	chunk := audio.Int16ToBytes(c.pending[:n])
	c.pending = c.pending[n:]
	return chunk, nil
}

// fill reads one buffer from the source into pending
func (c *Chunker) fill() error {
	channels := c.src.Channels()
	if channels < 1 {
		channels = 1
	}

	n, err := c.src.Read(c.readBuf)
	if n == 0 && err == nil {
		// A source that stops producing without an error is treated as ended
		c.eof = true
		return nil
	}
	if n > 0 {
		// Only whole frames are downmixed
		frames := n / channels
		mono := audio.Downmix(c.readBuf[:frames*channels], channels)
		c.pending = append(c.pending, c.resampler.Resample(mono)...)
	}

	if err != nil {
		if errors.Is(err, io.EOF) {
			c.eof = true
			return nil
		}
		return err
	}
	return nil
}
