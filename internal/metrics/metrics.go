// ABOUTME: Prometheus metrics for chunk playback sessions
// ABOUTME: Listener and analyzer decorators plus per-session accounting
package metrics

import (
	"sync"
	"time"

	"github.com/Resonate-Protocol/pcmchunk-go/pkg/audio/analyze"
	"github.com/Resonate-Protocol/pcmchunk-go/pkg/chunkplayer"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Session outcomes used as the outcome label
const (
	OutcomeFinished = "finished"
	OutcomeStopped  = "stopped"
	OutcomeFailed   = "failed"
)

// Metrics contains all Prometheus metrics for the chunk player
type Metrics struct {
	ChunksReceived prometheus.Counter
	ChunksAccepted prometheus.Counter
	ChunksGated    prometheus.Counter
	BytesProcessed prometheus.Counter
	BytesWritten   prometheus.Counter
	ChunkScore     prometheus.Histogram

	Sessions        *prometheus.CounterVec
	ActiveSessions  prometheus.Gauge
	SessionDuration prometheus.Histogram
}

// New creates metrics registered with reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		ChunksReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "pcmchunk_chunks_received_total",
			Help: "Total number of chunks queued for playback",
		}),
		ChunksAccepted: factory.NewCounter(prometheus.CounterOpts{
			Name: "pcmchunk_chunks_accepted_total",
			Help: "Total number of chunks that passed the voice gate",
		}),
		ChunksGated: factory.NewCounter(prometheus.CounterOpts{
			Name: "pcmchunk_chunks_gated_total",
			Help: "Total number of chunks skipped as near-silence",
		}),
		BytesProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "pcmchunk_bytes_processed_total",
			Help: "Total PCM bytes taken off the queue, gated or not",
		}),
		BytesWritten: factory.NewCounter(prometheus.CounterOpts{
			Name: "pcmchunk_bytes_written_total",
			Help: "Total PCM bytes written to audio sinks",
		}),
		ChunkScore: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "pcmchunk_chunk_score",
			Help:    "Voice-activity score of submitted chunks",
			Buckets: prometheus.LinearBuckets(0, 4, 16), // 0 to 60
		}),
		Sessions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pcmchunk_sessions_total",
			Help: "Total number of playback sessions by outcome",
		}, []string{"outcome"}),
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "pcmchunk_active_sessions",
			Help: "Current number of configured playback sessions",
		}),
		SessionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "pcmchunk_session_duration_seconds",
			Help:    "Wall-clock duration of playback sessions",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10), // 0.5s to ~4 minutes
		}),
	}
}

// Analyzer wraps a so every score is observed
func (m *Metrics) Analyzer(a analyze.Analyzer) analyze.Analyzer {
	return analyze.AnalyzerFunc(func(samples []int16) float64 {
		score := a.Analyze(samples)
		m.ChunkScore.Observe(score)
		return score
	})
}

// Session accounts for one playback session. Create it with StartSession,
// install Listener on the player and call End exactly once.
type Session struct {
	m       *Metrics
	started time.Time

	mu        sync.Mutex
	accepted  int64
	processed int64
	ended     bool
}

// StartSession counts a new active session
func (m *Metrics) StartSession() *Session {
	m.ActiveSessions.Inc()
	return &Session{m: m, started: time.Now()}
}

// Listener wraps next, counting accepted chunks and processed bytes as they play
func (s *Session) Listener(next chunkplayer.Listener) chunkplayer.Listener {
	return &countingListener{s: s, next: next}
}

// End records the session outcome and the counters the listener cannot see.
// Later calls are ignored.
func (s *Session) End(outcome string, stats chunkplayer.SchedulerStats) {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}
	s.ended = true
	accepted, processed := s.accepted, s.processed
	s.mu.Unlock()

	m := s.m
	m.ActiveSessions.Dec()
	m.Sessions.WithLabelValues(outcome).Inc()
	m.SessionDuration.Observe(time.Since(s.started).Seconds())

	m.ChunksReceived.Add(float64(stats.Received))
	m.ChunksGated.Add(float64(stats.Gated))
	m.BytesWritten.Add(float64(stats.BytesWritten))
	if d := stats.Accepted - accepted; d > 0 {
		m.ChunksAccepted.Add(float64(d))
	}
	if d := stats.BytesProcessed - processed; d > 0 {
		m.BytesProcessed.Add(float64(d))
	}
}

// observe records one accepted chunk at cumulative total
func (s *Session) observe(total int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ended {
		return
	}
	s.m.ChunksAccepted.Inc()
	s.accepted++
	if d := total - s.processed; d > 0 {
		s.m.BytesProcessed.Add(float64(d))
		s.processed = total
	}
}

type countingListener struct {
	s    *Session
	next chunkplayer.Listener
}

func (l *countingListener) OnFinish() {
	if l.next != nil {
		l.next.OnFinish()
	}
}

func (l *countingListener) OnPlaySize(total int64) {
	l.s.observe(total)
	if l.next != nil {
		l.next.OnPlaySize(total)
	}
}

func (l *countingListener) OnPlayData(p []byte) {
	if l.next != nil {
		l.next.OnPlayData(p)
	}
}

func (l *countingListener) OnPlayError(err error) {
	if el, ok := l.next.(chunkplayer.ErrorListener); ok {
		el.OnPlayError(err)
	}
}
