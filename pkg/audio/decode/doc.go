// ABOUTME: Audio decoder package for chunk payloads
// ABOUTME: Provides Decoder interface and implementations for PCM and Opus
// Package decode turns encoded chunk payloads into 16-bit PCM samples.
//
// Supports: PCM (16-bit and 24-bit little-endian) and Opus.
//
// Opus payloads are decoded directly at the requested rate, so a decoder built
// for audio.PlaybackFormat yields samples ready for the chunk player.
//
// Example:
//
//	decoder, err := decode.New(decode.CodecOpus, audio.PlaybackFormat)
//	samples, err := decoder.Decode(packet)
package decode
