// ABOUTME: Tests for chunk construction
// ABOUTME: Copy semantics, size clamping and scoring over valid bytes
package chunkplayer

import (
	"testing"

	"github.com/Resonate-Protocol/pcmchunk-go/pkg/audio/analyze"
)

func TestNewChunkCopiesData(t *testing.T) {
	data := pcm(100, 7, 8)
	c := NewChunk(data, len(data), nil)

	data[4] = 99
	if c.Bytes()[4] != 7 {
		t.Error("chunk must not alias producer bytes")
	}
}

func TestNewChunkClampsSize(t *testing.T) {
	tests := []struct {
		name string
		size int
		want int
	}{
		{"negative", -5, 0},
		{"zero", 0, 0},
		{"partial", 4, 4},
		{"full", 8, 8},
		{"oversized", 100, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChunk(make([]byte, 8), tt.size, nil)
			if c.Size() != tt.want {
				t.Errorf("expected size %d, got %d", tt.want, c.Size())
			}
			if len(c.Bytes()) != tt.want {
				t.Errorf("expected %d valid bytes, got %d", tt.want, len(c.Bytes()))
			}
		})
	}
}

func TestNewChunkScoresValidBytes(t *testing.T) {
	var seen int
	counter := analyze.AnalyzerFunc(func(samples []int16) float64 {
		seen = len(samples)
		return 42
	})

	c := NewChunk(make([]byte, 64), 10, counter)

	if seen != 5 {
		t.Errorf("expected 5 samples analyzed, got %d", seen)
	}
	if c.Score() != 42 {
		t.Errorf("expected score 42, got %f", c.Score())
	}
}

func TestNewChunkNilAnalyzer(t *testing.T) {
	c := NewChunk(pcm(1000, 0, 16), 16, nil)
	if c.Score() != 0 {
		t.Errorf("expected score 0, got %f", c.Score())
	}
}
