// ABOUTME: FFT-based dominant energy scanner
// ABOUTME: Scores PCM chunks by their strongest non-DC spectral component
package analyze

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
)

// Analyzer computes a voice-activity score for a sequence of samples.
// Implementations must be pure and safe for concurrent use.
type Analyzer interface {
	Analyze(samples []int16) float64
}

// AnalyzerFunc adapts a plain function to the Analyzer interface
type AnalyzerFunc func(samples []int16) float64

// Analyze calls f(samples)
func (f AnalyzerFunc) Analyze(samples []int16) float64 {
	return f(samples)
}

// FrequencyScanner scores samples by the magnitude of their dominant frequency.
//
// The score is 20*log10(1 + |X_k|/N) where X_k is the strongest non-DC bin of the
// Hamming-windowed spectrum. Silence scores 0; a full-scale tone scores around 80.
type FrequencyScanner struct {
	mu    sync.Mutex
	plans map[int]*fourier.FFT
}

// NewFrequencyScanner creates a scanner with an empty FFT plan cache
func NewFrequencyScanner() *FrequencyScanner {
	return &FrequencyScanner{
		plans: make(map[int]*fourier.FFT),
	}
}

// Analyze returns the dominant energy score of samples
func (s *FrequencyScanner) Analyze(samples []int16) float64 {
	n := len(samples)
	if n < 2 {
		return 0
	}

	seq := make([]float64, n)
	for i, sample := range samples {
		seq[i] = float64(sample)
	}
	window.Hamming(seq)

	// FFT work buffers are not safe for concurrent use
	s.mu.Lock()
	fft, ok := s.plans[n]
	if !ok {
		fft = fourier.NewFFT(n)
		s.plans[n] = fft
	}
	coeffs := fft.Coefficients(nil, seq)
	s.mu.Unlock()

	var maxMag float64
	for k := 1; k < len(coeffs); k++ {
		re, im := real(coeffs[k]), imag(coeffs[k])
		if mag := math.Sqrt(re*re + im*im); mag > maxMag {
			maxMag = mag
		}
	}

	return 20 * math.Log10(1+maxMag/float64(n))
}
