// ABOUTME: Audio resampling package using linear interpolation
// ABOUTME: Converts 16-bit audio between sample rates chunk by chunk
// Package resample provides streaming sample rate conversion.
//
// Uses linear interpolation and keeps the last input frame between calls, so
// feeding a stream in arbitrary pieces yields the same output as one call.
//
// Example:
//
//	r := resample.New(48000, 16000, 1)
//	out := r.Resample(samples)
package resample
