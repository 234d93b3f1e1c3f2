// ABOUTME: Immutable PCM chunk value
// ABOUTME: Copies producer bytes and precomputes the voice-activity score
package chunkplayer

import (
	"github.com/Resonate-Protocol/pcmchunk-go/pkg/audio"
	"github.com/Resonate-Protocol/pcmchunk-go/pkg/audio/analyze"
)

// Chunk is one unit of PCM audio queued for playback. It never changes after NewChunk.
type Chunk struct {
	data  []byte
	size  int
	score float64
}

// NewChunk copies data and scores its first size bytes with analyzer.
// size is clamped to [0, len(data)]. A nil analyzer scores 0.
func NewChunk(data []byte, size int, analyzer analyze.Analyzer) *Chunk {
	if size < 0 {
		size = 0
	}
	if size > len(data) {
		size = len(data)
	}

	c := &Chunk{
		data: make([]byte, len(data)),
		size: size,
	}
	copy(c.data, data)

	if analyzer != nil {
		c.score = analyzer.Analyze(audio.BytesToInt16(c.data[:size]))
	}
	return c
}

// Size returns the number of valid bytes
func (c *Chunk) Size() int {
	return c.size
}

// Score returns the voice-activity score computed at construction
func (c *Chunk) Score() float64 {
	return c.score
}

// Bytes returns the valid bytes. Callers must not modify them.
func (c *Chunk) Bytes() []byte {
	return c.data[:c.size]
}
