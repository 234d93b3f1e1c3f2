// ABOUTME: Unit tests for Opus encoder
// ABOUTME: Tests Opus frame encoding at the playback rate and at 48kHz
package encode

import (
	"math"
	"strings"
	"testing"

	"github.com/Resonate-Protocol/pcmchunk-go/pkg/audio"
)

func TestNewOpus(t *testing.T) {
	tests := []struct {
		name        string
		format      audio.Format
		wantErr     bool
		errContains string
	}{
		{
			name:    "playback format",
			format:  audio.PlaybackFormat,
			wantErr: false,
		},
		{
			name:    "48kHz stereo",
			format:  audio.Format{SampleRate: 48000, Channels: 2, BitDepth: 16},
			wantErr: false,
		},
		{
			name:        "24-bit rejected",
			format:      audio.Format{SampleRate: 48000, Channels: 2, BitDepth: 24},
			wantErr:     true,
			errContains: "bit depth",
		},
		{
			name:        "unsupported rate",
			format:      audio.Format{SampleRate: 44100, Channels: 1, BitDepth: 16},
			wantErr:     true,
			errContains: "opus encoder",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoder, err := NewOpus(tt.format)
			if tt.wantErr {
				if err == nil {
					t.Fatal("NewOpus() expected error, got nil")
				}
				if !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("NewOpus() error = %v, want error containing %q", err, tt.errContains)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewOpus() unexpected error = %v", err)
			}
			defer encoder.Close()

			if want := tt.format.SampleRate / 50; encoder.FrameSize() != want {
				t.Errorf("FrameSize() = %d, want %d", encoder.FrameSize(), want)
			}
		})
	}
}

func TestOpusEncoder_Encode(t *testing.T) {
	encoder, err := NewOpus(audio.PlaybackFormat)
	if err != nil {
		t.Fatalf("NewOpus() failed: %v", err)
	}
	defer encoder.Close()

	samples := make([]int16, encoder.FrameSize())
	for i := range samples {
		samples[i] = int16(8000 * math.Sin(2*math.Pi*440*float64(i)/16000))
	}

	output, err := encoder.Encode(samples)
	if err != nil {
		t.Fatalf("Encode() failed: %v", err)
	}
	if len(output) == 0 {
		t.Error("Encode() returned empty output")
	}
	if len(output) > maxOpusPacket {
		t.Errorf("Encode() output size %d exceeds max packet size %d", len(output), maxOpusPacket)
	}
}

func TestOpusEncoder_EncodeSilence(t *testing.T) {
	encoder, err := NewOpus(audio.PlaybackFormat)
	if err != nil {
		t.Fatalf("NewOpus() failed: %v", err)
	}
	defer encoder.Close()

	output, err := encoder.Encode(make([]int16, encoder.FrameSize()))
	if err != nil {
		t.Fatalf("Encode() failed: %v", err)
	}
	if len(output) == 0 {
		t.Error("Encode() returned empty output for silence")
	}
}

func TestOpusEncoder_WrongFrameSize(t *testing.T) {
	encoder, err := NewOpus(audio.PlaybackFormat)
	if err != nil {
		t.Fatalf("NewOpus() failed: %v", err)
	}
	defer encoder.Close()

	if _, err := encoder.Encode(make([]int16, 100)); err == nil {
		t.Error("Encode() expected error for a partial frame")
	}
}
