// ABOUTME: Audio encoder package for chunk payloads
// ABOUTME: Provides Encoder interface and implementations for PCM and Opus
// Package encode turns 16-bit PCM samples into wire payloads for the ingest
// endpoint.
//
// Supports: PCM (16-bit and 24-bit little-endian) and Opus. Opus payloads must
// hold exactly one frame; OpusEncoder.FrameSize reports how many samples per
// channel that is.
//
// Example:
//
//	encoder, err := encode.NewOpus(audio.PlaybackFormat)
//	packet, err := encoder.Encode(samples)
package encode
