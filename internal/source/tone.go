// ABOUTME: Test tone generator
// ABOUTME: Alternates sine bursts with silence so gating has something to skip
package source

import (
	"io"
	"math"
	"sync"
	"time"
)

// ToneConfig shapes a ToneSource
type ToneConfig struct {
	SampleRate int
	Frequency  float64
	Amplitude  float64 // 0..1 of full scale
	Burst      time.Duration
	Gap        time.Duration
	Total      time.Duration // zero means endless
}

// DefaultToneConfig returns five seconds of 440Hz bursts at 16kHz
func DefaultToneConfig() ToneConfig {
	return ToneConfig{
		SampleRate: 16000,
		Frequency:  440.0, // A4 note
		Amplitude:  0.5,
		Burst:      400 * time.Millisecond,
		Gap:        300 * time.Millisecond,
		Total:      5 * time.Second,
	}
}

// ToneSource generates a mono test tone
type ToneSource struct {
	config ToneConfig

	mu          sync.Mutex
	sampleIndex uint64
	burst       uint64
	period      uint64
	total       uint64
}

// NewToneSource creates a new test tone generator
func NewToneSource(config ToneConfig) *ToneSource {
	if config.SampleRate <= 0 {
		config.SampleRate = 16000
	}

	samplesFor := func(d time.Duration) uint64 {
		return uint64(d * time.Duration(config.SampleRate) / time.Second)
	}

	return &ToneSource{
		config: config,
		burst:  samplesFor(config.Burst),
		period: samplesFor(config.Burst + config.Gap),
		total:  samplesFor(config.Total),
	}
}

func (s *ToneSource) Read(samples []int16) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(samples)
	if s.total > 0 {
		if s.sampleIndex >= s.total {
			return 0, io.EOF
		}
		if remaining := s.total - s.sampleIndex; uint64(n) > remaining {
			n = int(remaining)
		}
	}

	for i := 0; i < n; i++ {
		idx := s.sampleIndex + uint64(i)
		if !s.voiced(idx) {
			samples[i] = 0
			continue
		}
		t := float64(idx) / float64(s.config.SampleRate)
		sample := math.Sin(2 * math.Pi * s.config.Frequency * t)
		samples[i] = int16(sample * 32767.0 * s.config.Amplitude)
	}

	s.sampleIndex += uint64(n)
	return n, nil
}

// voiced reports whether sample idx falls inside a burst
func (s *ToneSource) voiced(idx uint64) bool {
	if s.period == 0 || s.burst >= s.period {
		return true
	}
	return idx%s.period < s.burst
}

// Duration returns the configured length, or zero for an endless tone
func (s *ToneSource) Duration() time.Duration {
	return s.config.Total
}

func (s *ToneSource) SampleRate() int { return s.config.SampleRate }
func (s *ToneSource) Channels() int   { return 1 }
func (s *ToneSource) Close() error    { return nil }
