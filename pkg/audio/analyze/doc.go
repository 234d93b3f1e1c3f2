// ABOUTME: Voice-activity analysis package
// ABOUTME: Provides the Analyzer interface and an FFT-based FrequencyScanner
// Package analyze derives a scalar voice-activity score from 16-bit PCM samples.
//
// The chunk player only compares scores against a threshold, so any Analyzer can
// be plugged in. The default FrequencyScanner windows the samples, runs a real FFT
// and reports the dominant spectral magnitude in decibels.
//
// Example:
//
//	scanner := analyze.NewFrequencyScanner()
//	score := scanner.Analyze(samples)
package analyze
