// ABOUTME: Audio output package for playing PCM chunks
// ABOUTME: Provides the Sink interface and oto, malgo, PortAudio and memory backends
// Package output provides audio playback sinks.
//
// Every backend accepts 16-bit little-endian PCM bytes through a blocking Write.
// Supported backends:
//   - oto (default, pure Go on most platforms)
//   - malgo (miniaudio via cgo)
//   - portaudio (build with -tags portaudio)
//   - null (in-memory, records writes; used by tests and dry runs)
//
// Example:
//
//	sink, err := output.New("oto")
//	err = sink.Open(audio.PlaybackFormat)
//	err = sink.Start()
//	_, err = sink.Write(chunk)
//	err = sink.Release()
package output
