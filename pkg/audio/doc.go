// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Format and 16-bit PCM conversion helpers
// Package audio provides fundamental audio types and utilities for 16-bit PCM streams.
//
// This package defines core types used throughout pcmchunk:
//   - Format: Describes a PCM stream (sample rate, channels, bit depth)
//   - PlaybackFormat: The fixed 16kHz mono 16-bit format chunks are played in
//
// It also provides utilities for converting between bytes and samples:
//   - little-endian bytes ↔ int16 samples
//   - interleaved multi-channel → mono downmix
//
// Example:
//
//	samples := audio.BytesToInt16(chunk)
//	mono := audio.Downmix(stereo, 2)
//	data := audio.Int16ToBytes(mono)
package audio
