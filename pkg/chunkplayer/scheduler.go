// ABOUTME: Playback scheduler goroutine
// ABOUTME: Drains the chunk queue in order, gates near-silence and writes to the sink
package chunkplayer

import (
	"sync"
	"sync/atomic"

	"github.com/Resonate-Protocol/pcmchunk-go/pkg/audio/output"
	"github.com/charmbracelet/log"
)

// VoiceThreshold is the score a chunk must exceed to pass the gate
const VoiceThreshold = 8.0

// SchedulerConfig configures a Scheduler. Sink is required.
type SchedulerConfig struct {
	Sink     output.Sink
	Listener Listener
	Gating   bool
	Logger   *log.Logger

	// OnFatal runs on the scheduler goroutine after a sink write fails
	OnFatal func(err error)
}

// SchedulerStats tracks scheduler metrics
type SchedulerStats struct {
	Received       int64
	Processed      int64
	Accepted       int64
	Gated          int64
	BytesProcessed int64
	BytesWritten   int64
}

// Scheduler consumes queued chunks on a single goroutine
type Scheduler struct {
	queue    *chunkQueue
	sink     output.Sink
	listener Listener
	logger   *log.Logger
	onFatal  func(err error)
	gating   atomic.Bool

	received       atomic.Int64
	processed      atomic.Int64
	accepted       atomic.Int64
	gated          atomic.Int64
	bytesProcessed atomic.Int64
	bytesWritten   atomic.Int64

	startOnce sync.Once
	done      chan struct{}
	finished  atomic.Bool
}

// NewScheduler creates a scheduler. Gating and listener are installed before
// Start so the first chunk already sees them.
func NewScheduler(cfg SchedulerConfig) *Scheduler {
	s := &Scheduler{
		queue:    newChunkQueue(),
		sink:     cfg.Sink,
		listener: cfg.Listener,
		logger:   cfg.Logger,
		onFatal:  cfg.OnFatal,
		done:     make(chan struct{}),
	}
	if s.listener == nil {
		s.listener = nopListener{}
	}
	if s.logger == nil {
		s.logger = log.Default()
	}
	s.gating.Store(cfg.Gating)
	return s
}

// Start launches the scheduler goroutine. Later calls do nothing.
func (s *Scheduler) Start() {
	s.startOnce.Do(func() {
		go s.run()
	})
}

// Enqueue appends a chunk. It never blocks; nil is ignored.
func (s *Scheduler) Enqueue(c *Chunk) {
	if s.queue.push(c) {
		s.received.Add(1)
	}
}

// RequestGracefulStop plays everything queued, fires OnFinish and exits
func (s *Scheduler) RequestGracefulStop() {
	s.queue.requestDrain()
}

// RequestImmediateStop exits after the chunk in flight. Queued chunks are discarded.
func (s *Scheduler) RequestImmediateStop() {
	s.queue.requestImmediate()
}

// SetGatingEnabled toggles voice-activity gating for chunks not yet processed
func (s *Scheduler) SetGatingEnabled(enabled bool) {
	s.gating.Store(enabled)
}

// GatingEnabled reports whether gating is on
func (s *Scheduler) GatingEnabled() bool {
	return s.gating.Load()
}

// Pending returns the number of queued chunks
func (s *Scheduler) Pending() int {
	return s.queue.len()
}

// Done is closed when the scheduler goroutine exits
func (s *Scheduler) Done() <-chan struct{} {
	return s.done
}

// Finished reports whether the queue was drained gracefully
func (s *Scheduler) Finished() bool {
	return s.finished.Load()
}

// Stats returns scheduler statistics
func (s *Scheduler) Stats() SchedulerStats {
	return SchedulerStats{
		Received:       s.received.Load(),
		Processed:      s.processed.Load(),
		Accepted:       s.accepted.Load(),
		Gated:          s.gated.Load(),
		BytesProcessed: s.bytesProcessed.Load(),
		BytesWritten:   s.bytesWritten.Load(),
	}
}

func (s *Scheduler) run() {
	defer close(s.done)

	for {
		c, res := s.queue.take()
		switch res {
		case takeStopped:
			s.logger.Debug("Scheduler stopped", "pending", s.queue.len())
			return
		case takeDrained:
			s.finished.Store(true)
			s.logger.Debug("Scheduler drained", "bytes", s.bytesProcessed.Load())
			s.listener.OnFinish()
			return
		}

		if !s.process(c) {
			return
		}
	}
}

// process handles one chunk and reports whether the loop should continue
func (s *Scheduler) process(c *Chunk) bool {
	// Gated chunks still count toward the cumulative total
	total := s.bytesProcessed.Add(int64(c.Size()))
	s.processed.Add(1)

	if s.gating.Load() && c.Score() <= VoiceThreshold {
		s.gated.Add(1)
		return true
	}
	s.accepted.Add(1)

	data := c.Bytes()
	s.listener.OnPlayData(data)
	s.listener.OnPlaySize(total)

	if s.queue.stopped() {
		return false
	}
	if len(data) == 0 {
		return true
	}

	n, err := s.sink.Write(data)
	s.bytesWritten.Add(int64(n))
	if err != nil {
		// A teardown racing the write releases the sink under us
		if s.queue.stopped() {
			return false
		}
		s.fail(err)
		return false
	}
	return true
}

// fail ends the session after a sink error
func (s *Scheduler) fail(err error) {
	s.queue.requestImmediate()
	s.logger.Error("Audio sink write failed", "err", err)

	if el, ok := s.listener.(ErrorListener); ok {
		el.OnPlayError(err)
	}
	if s.onFatal != nil {
		s.onFatal(err)
	}
}
