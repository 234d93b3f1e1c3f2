// ABOUTME: Audio type definitions
// ABOUTME: Defines the PCM stream format and 16-bit sample conversions
package audio

import (
	"encoding/binary"
	"time"
)

const (
	// 16-bit audio range constants
	MaxInt16 = 32767
	MinInt16 = -32768
)

// Format describes a PCM stream format
type Format struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// PlaybackFormat is the fixed format chunks are played in: 16kHz, mono, 16-bit
var PlaybackFormat = Format{
	SampleRate: 16000,
	Channels:   1,
	BitDepth:   16,
}

// BytesPerSample returns the size of one sample of one channel
func (f Format) BytesPerSample() int {
	return f.BitDepth / 8
}

// BytesPerMs returns the number of bytes in one millisecond of audio
func (f Format) BytesPerMs() int {
	return f.SampleRate * f.Channels * f.BytesPerSample() / 1000
}

// Duration returns the playback duration of n bytes in this format
func (f Format) Duration(n int64) time.Duration {
	perSecond := int64(f.SampleRate * f.Channels * f.BytesPerSample())
	if perSecond == 0 {
		return 0
	}
	return time.Duration(n) * time.Second / time.Duration(perSecond)
}

// BytesToInt16 converts little-endian 16-bit PCM bytes to samples.
// A trailing odd byte is ignored.
func BytesToInt16(data []byte) []int16 {
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return samples
}

// Int16ToBytes converts samples to little-endian 16-bit PCM bytes
func Int16ToBytes(samples []int16) []byte {
	output := make([]byte, len(samples)*2)
	for i, sample := range samples {
		binary.LittleEndian.PutUint16(output[i*2:], uint16(sample))
	}
	return output
}

// Downmix averages interleaved frames down to a single channel
func Downmix(samples []int16, channels int) []int16 {
	if channels <= 1 {
		out := make([]int16, len(samples))
		copy(out, samples)
		return out
	}

	frames := len(samples) / channels
	out := make([]int16, frames)
	for i := 0; i < frames; i++ {
		var sum int32
		for ch := 0; ch < channels; ch++ {
			sum += int32(samples[i*channels+ch])
		}
		out[i] = int16(sum / int32(channels))
	}
	return out
}

// ClampInt16 saturates a wider sample to the 16-bit range
func ClampInt16(v int32) int16 {
	if v > MaxInt16 {
		return MaxInt16
	}
	if v < MinInt16 {
		return MinInt16
	}
	return int16(v)
}
