// ABOUTME: Streaming PCM chunk player
// ABOUTME: Queues chunks, gates near-silence and plays the rest on an audio sink
// Package chunkplayer plays a stream of small PCM chunks on an audio sink.
//
// A Player owns one session at a time: a sink opened at 16kHz mono 16-bit and a
// Scheduler goroutine draining an unbounded FIFO of Chunks. With voice-activity
// gating enabled, chunks whose score is at or below VoiceThreshold are skipped,
// but their bytes still count toward the cumulative total reported to the
// Listener.
//
// Sessions end in one of two ways:
//   - FinishGracefully: everything already queued is played, then OnFinish fires once
//   - Teardown: playback stops after the chunk in flight and the sink is released
//
// Example:
//
//	player := chunkplayer.NewPlayer(chunkplayer.Config{})
//	err := player.ConfigureSession(true, chunkplayer.ListenerFuncs{
//	    Finish: func() { log.Info("done") },
//	})
//	player.SubmitChunk(pcm, len(pcm))
//	player.FinishGracefully()
package chunkplayer
