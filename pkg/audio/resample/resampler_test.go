// ABOUTME: Tests for the streaming resampler
// ABOUTME: Output lengths, interpolation and chunking invariance
package resample

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func ramp(n int) []int16 {
	out := make([]int16, n)
	for i := range out {
		out[i] = int16(i * 10)
	}
	return out
}

func TestResampleDownsampleLength(t *testing.T) {
	r := New(48000, 16000, 1)

	for i := 0; i < 5; i++ {
		out := r.Resample(make([]int16, 480))
		if len(out) != 160 {
			t.Fatalf("chunk %d: expected 160 samples, got %d", i, len(out))
		}
	}
}

func TestResamplePassThrough(t *testing.T) {
	r := New(16000, 16000, 1)
	in := ramp(320)

	out := r.Resample(in)
	if diff := cmp.Diff(in, out); diff != "" {
		t.Errorf("pass-through mismatch (-want +got):\n%s", diff)
	}

	in[0] = 99
	if out[0] == 99 {
		t.Error("output must not alias input")
	}
}

func TestResampleUpsampleInterpolates(t *testing.T) {
	r := New(8000, 16000, 1)

	out := r.Resample([]int16{0, 100, 200})
	want := []int16{0, 50, 100, 150}
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("interpolation mismatch (-want +got):\n%s", diff)
	}
}

func TestResampleChunkingInvariant(t *testing.T) {
	tests := []struct {
		name     string
		in, out  int
		channels int
		pieces   []int
	}{
		{"48k to 16k", 48000, 16000, 1, []int{100, 37, 480, 1, 222}},
		{"24k to 16k", 24000, 16000, 1, []int{441, 17, 300, 2}},
		{"8k to 16k", 8000, 16000, 1, []int{1, 1, 50, 99}},
		{"stereo 48k to 16k", 48000, 16000, 2, []int{96, 34, 480}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			total := 0
			for _, p := range tt.pieces {
				total += p
			}
			input := ramp(total * tt.channels)

			whole := New(tt.in, tt.out, tt.channels).Resample(input)

			r := New(tt.in, tt.out, tt.channels)
			var pieced []int16
			offset := 0
			for _, p := range tt.pieces {
				n := p * tt.channels
				pieced = append(pieced, r.Resample(input[offset:offset+n])...)
				offset += n
			}

			if diff := cmp.Diff(whole, pieced); diff != "" {
				t.Errorf("chunked output differs from whole (-whole +chunked):\n%s", diff)
			}
		})
	}
}

func TestResampleReset(t *testing.T) {
	r := New(48000, 16000, 1)
	first := r.Resample(ramp(100))

	r.Reset()
	second := r.Resample(ramp(100))

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("reset did not restore initial state (-first +second):\n%s", diff)
	}
}

func TestResampleEmpty(t *testing.T) {
	r := New(48000, 16000, 2)
	if out := r.Resample([]int16{1}); out != nil {
		t.Errorf("expected nil for a partial frame, got %v", out)
	}
}

func TestSamplesNeeded(t *testing.T) {
	r := New(48000, 16000, 2)

	if got := r.OutputSamplesNeeded(960); got != 320 {
		t.Errorf("OutputSamplesNeeded(960) = %d, want 320", got)
	}
	if got := r.InputSamplesNeeded(320); got != 960 {
		t.Errorf("InputSamplesNeeded(320) = %d, want 960", got)
	}
}
