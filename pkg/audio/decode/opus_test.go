// ABOUTME: Tests for Opus decoder
// ABOUTME: Tests decoder creation and an encode/decode round trip
package decode

import (
	"math"
	"testing"

	"github.com/Resonate-Protocol/pcmchunk-go/pkg/audio"
	"github.com/Resonate-Protocol/pcmchunk-go/pkg/audio/encode"
)

func TestNewOpus(t *testing.T) {
	tests := []struct {
		name    string
		format  audio.Format
		wantErr bool
	}{
		{"playback format", audio.PlaybackFormat, false},
		{"48kHz stereo", audio.Format{SampleRate: 48000, Channels: 2, BitDepth: 16}, false},
		{"unsupported rate", audio.Format{SampleRate: 44100, Channels: 2, BitDepth: 16}, true},
		{"24-bit", audio.Format{SampleRate: 48000, Channels: 2, BitDepth: 24}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoder, err := NewOpus(tt.format)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if decoder != nil {
					t.Fatal("expected decoder to be nil on error")
				}
				return
			}
			if err != nil {
				t.Fatalf("failed to create decoder: %v", err)
			}
			if err := decoder.Close(); err != nil {
				t.Errorf("expected Close to succeed, got error: %v", err)
			}
		})
	}
}

func TestOpusRoundTrip(t *testing.T) {
	encoder, err := encode.NewOpus(audio.PlaybackFormat)
	if err != nil {
		t.Fatalf("failed to create encoder: %v", err)
	}
	defer encoder.Close()

	decoder, err := NewOpus(audio.PlaybackFormat)
	if err != nil {
		t.Fatalf("failed to create decoder: %v", err)
	}
	defer decoder.Close()

	frame := make([]int16, encoder.FrameSize())
	for i := range frame {
		frame[i] = int16(10000 * math.Sin(2*math.Pi*300*float64(i)/16000))
	}

	packet, err := encoder.Encode(frame)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	samples, err := decoder.Decode(packet)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(samples) != len(frame) {
		t.Fatalf("expected %d samples, got %d", len(frame), len(samples))
	}
}

func TestOpusDecodeGarbage(t *testing.T) {
	decoder, err := NewOpus(audio.PlaybackFormat)
	if err != nil {
		t.Fatalf("failed to create decoder: %v", err)
	}
	defer decoder.Close()

	if _, err := decoder.Decode(nil); err == nil {
		t.Error("expected error decoding an empty packet")
	}
}
