// ABOUTME: Tests for the ingest server
// ABOUTME: Drives real WebSocket sessions against httptest with memory sinks
package ingest

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Resonate-Protocol/pcmchunk-go/internal/protocol"
	"github.com/Resonate-Protocol/pcmchunk-go/pkg/audio"
	"github.com/Resonate-Protocol/pcmchunk-go/pkg/audio/analyze"
	"github.com/Resonate-Protocol/pcmchunk-go/pkg/audio/encode"
	"github.com/Resonate-Protocol/pcmchunk-go/pkg/audio/output"
	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type sinks struct {
	mu   sync.Mutex
	all  []*output.Memory
	hook func([]byte) error
}

func (s *sinks) New() (output.Sink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := output.NewMemory()
	m.WriteHook = s.hook
	s.all = append(s.all, m)
	return m, nil
}

func (s *sinks) Written() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var total int64
	for _, m := range s.all {
		total += m.BytesWritten()
	}
	return total
}

// loudness scores a chunk by its first sample
var loudness = analyze.AnalyzerFunc(func(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	return float64(samples[0])
})

func newTestServer(t *testing.T, s *sinks) (*Server, string) {
	t.Helper()

	srv := New(Config{
		NewSink:  s.New,
		Analyzer: loudness,
		Logger:   log.New(io.Discard),
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return srv, "ws" + strings.TrimPrefix(ts.URL, "http") + Path
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()

	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { ws.Close() })
	return ws
}

func sendControl(t *testing.T, ws *websocket.Conn, msgType string, payload interface{}) {
	t.Helper()

	msg, err := protocol.NewMessage(msgType, payload)
	if err != nil {
		t.Fatalf("build message: %v", err)
	}
	if err := ws.WriteJSON(msg); err != nil {
		t.Fatalf("write %s: %v", msgType, err)
	}
}

func sendAudio(t *testing.T, ws *websocket.Conn, payload []byte) {
	t.Helper()

	if err := ws.WriteMessage(websocket.BinaryMessage, protocol.EncodeAudio(payload)); err != nil {
		t.Fatalf("write audio: %v", err)
	}
}

// readUntil reads messages until one of type want arrives, returning everything seen
func readUntil(t *testing.T, ws *websocket.Conn, want string) []protocol.Message {
	t.Helper()

	ws.SetReadDeadline(time.Now().Add(3 * time.Second))
	defer ws.SetReadDeadline(time.Time{})

	var seen []protocol.Message
	for {
		var msg protocol.Message
		if err := ws.ReadJSON(&msg); err != nil {
			t.Fatalf("waiting for %s: %v", want, err)
		}
		seen = append(seen, msg)
		if msg.Type == want {
			return seen
		}
	}
}

func pcmChunk(level int16, samples int) []byte {
	s := make([]int16, samples)
	for i := range s {
		s[i] = level
	}
	return audio.Int16ToBytes(s)
}

func TestIngestSessionPCM(t *testing.T) {
	s := &sinks{}
	srv, url := newTestServer(t, s)
	ws := dial(t, url)

	sendControl(t, ws, protocol.TypeSessionStart, protocol.SessionStart{VAD: true, Codec: "pcm"})
	started := readUntil(t, ws, protocol.TypeSessionStarted)

	var ack protocol.SessionStarted
	if err := started[len(started)-1].Decode(&ack); err != nil {
		t.Fatalf("decode ack: %v", err)
	}
	if ack.SessionID == "" {
		t.Error("expected a session id")
	}

	sendAudio(t, ws, pcmChunk(100, 160)) // voiced
	sendAudio(t, ws, pcmChunk(0, 160))   // gated
	sendAudio(t, ws, pcmChunk(50, 160))  // voiced
	sendControl(t, ws, protocol.TypeSessionEnd, nil)

	msgs := readUntil(t, ws, protocol.TypePlayFinish)

	var last int64
	for _, m := range msgs {
		if m.Type != protocol.TypePlaySize {
			continue
		}
		var size protocol.PlaySize
		if err := m.Decode(&size); err != nil {
			t.Fatalf("decode size: %v", err)
		}
		if size.Bytes < last {
			t.Errorf("sizes must not decrease: %d after %d", size.Bytes, last)
		}
		last = size.Bytes
	}
	if last != 960 {
		t.Errorf("expected final size 960, got %d", last)
	}
	if got := s.Written(); got != 640 {
		t.Errorf("expected 640 bytes written, got %d", got)
	}

	m := srv.Metrics()
	if got := testutil.ToFloat64(m.Sessions.WithLabelValues("finished")); got != 1 {
		t.Errorf("expected one finished session, got %v", got)
	}
	if got := testutil.ToFloat64(m.ChunksGated); got != 1 {
		t.Errorf("expected one gated chunk, got %v", got)
	}
}

func TestIngestSessionOpus(t *testing.T) {
	s := &sinks{}
	_, url := newTestServer(t, s)
	ws := dial(t, url)

	enc, err := encode.NewOpus(audio.PlaybackFormat)
	if err != nil {
		t.Fatalf("encoder: %v", err)
	}
	defer enc.Close()

	sendControl(t, ws, protocol.TypeSessionStart, protocol.SessionStart{Codec: "opus"})
	readUntil(t, ws, protocol.TypeSessionStarted)

	frame := make([]int16, enc.FrameSize())
	for i := 0; i < 3; i++ {
		packet, err := enc.Encode(frame)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		sendAudio(t, ws, packet)
	}
	sendControl(t, ws, protocol.TypeSessionEnd, nil)
	readUntil(t, ws, protocol.TypePlayFinish)

	// Three 20ms frames at 16kHz mono
	if got := s.Written(); got != 3*640 {
		t.Errorf("expected %d bytes written, got %d", 3*640, got)
	}
}

func TestIngestRejectsUnknownCodec(t *testing.T) {
	_, url := newTestServer(t, &sinks{})
	ws := dial(t, url)

	sendControl(t, ws, protocol.TypeSessionStart, protocol.SessionStart{Codec: "aac"})
	msgs := readUntil(t, ws, protocol.TypePlayError)

	var perr protocol.PlayError
	if err := msgs[len(msgs)-1].Decode(&perr); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if !strings.Contains(perr.Message, "aac") {
		t.Errorf("expected codec in error, got %q", perr.Message)
	}
}

func TestIngestUnknownMessage(t *testing.T) {
	_, url := newTestServer(t, &sinks{})
	ws := dial(t, url)

	sendControl(t, ws, "player/dance", nil)
	readUntil(t, ws, protocol.TypePlayError)
}

func TestIngestStopDiscardsQueue(t *testing.T) {
	entered := make(chan struct{})
	unblock := make(chan struct{})
	var once sync.Once
	s := &sinks{hook: func([]byte) error {
		once.Do(func() {
			close(entered)
			<-unblock
		})
		return nil
	}}
	srv, url := newTestServer(t, s)
	ws := dial(t, url)

	sendControl(t, ws, protocol.TypeSessionStart, protocol.SessionStart{})
	readUntil(t, ws, protocol.TypeSessionStarted)

	for i := 0; i < 5; i++ {
		sendAudio(t, ws, pcmChunk(100, 160))
	}

	select {
	case <-entered:
	case <-time.After(3 * time.Second):
		t.Fatal("first write never started")
	}
	sendControl(t, ws, protocol.TypeSessionStop, nil)

	deadline := time.Now().Add(3 * time.Second)
	for testutil.ToFloat64(srv.Metrics().Sessions.WithLabelValues("stopped")) != 1 {
		if time.Now().After(deadline) {
			t.Fatal("session never recorded as stopped")
		}
		time.Sleep(time.Millisecond)
	}
	close(unblock)

	if got := s.Written(); got > 320 {
		t.Errorf("expected at most the in-flight chunk written, got %d bytes", got)
	}
}

func TestIngestDisconnectTearsDown(t *testing.T) {
	s := &sinks{}
	srv, url := newTestServer(t, s)
	ws := dial(t, url)

	sendControl(t, ws, protocol.TypeSessionStart, protocol.SessionStart{})
	readUntil(t, ws, protocol.TypeSessionStarted)
	ws.Close()

	deadline := time.Now().Add(3 * time.Second)
	for srv.Connections() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("connection never cleaned up")
		}
		time.Sleep(time.Millisecond)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.all) != 1 || s.all[0].Releases() != 1 {
		t.Error("expected the session sink to be released once")
	}
	if got := testutil.ToFloat64(srv.Metrics().ActiveSessions); got != 0 {
		t.Errorf("expected no active sessions, got %v", got)
	}
}

func TestIngestMetricsAndHealth(t *testing.T) {
	srv := New(Config{NewSink: (&sinks{}).New, Logger: log.New(io.Discard)})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	tests := []struct {
		path     string
		contains string
	}{
		{"/healthz", "ok"},
		{"/metrics", "pcmchunk_active_sessions"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := http.Get(ts.URL + tt.path)
			if err != nil {
				t.Fatalf("GET %s: %v", tt.path, err)
			}
			defer resp.Body.Close()

			body, _ := io.ReadAll(resp.Body)
			if resp.StatusCode != http.StatusOK {
				t.Errorf("expected 200, got %d", resp.StatusCode)
			}
			if !strings.Contains(string(body), tt.contains) {
				t.Errorf("expected body to contain %q", tt.contains)
			}
		})
	}
}

func TestServeShutdown(t *testing.T) {
	srv := New(Config{NewSink: (&sinks{}).New, Logger: log.New(io.Discard)})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	ws := dial(t, "ws://"+ln.Addr().String()+Path)
	sendControl(t, ws, protocol.TypeSessionStart, protocol.SessionStart{})
	readUntil(t, ws, protocol.TypeSessionStarted)

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("serve returned %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not return after cancel")
	}

	// The server closed our socket
	ws.SetReadDeadline(time.Now().Add(3 * time.Second))
	if _, _, err := ws.ReadMessage(); err == nil {
		t.Error("expected connection to be closed")
	}
}
