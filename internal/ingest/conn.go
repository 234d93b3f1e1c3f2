// ABOUTME: Producer connection handling
// ABOUTME: Routes control messages to a per-connection player and streams events back
package ingest

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/Resonate-Protocol/pcmchunk-go/internal/metrics"
	"github.com/Resonate-Protocol/pcmchunk-go/internal/protocol"
	"github.com/Resonate-Protocol/pcmchunk-go/pkg/audio"
	"github.com/Resonate-Protocol/pcmchunk-go/pkg/audio/decode"
	"github.com/Resonate-Protocol/pcmchunk-go/pkg/chunkplayer"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeDeadline = 10 * time.Second
	pingInterval  = 30 * time.Second
	sendBuffer    = 64
)

// conn is one producer connection and its playback session
type conn struct {
	id     string
	server *Server
	ws     *websocket.Conn
	player *chunkplayer.Player
	logger *log.Logger

	send      chan protocol.Message
	closed    chan struct{}
	closeOnce sync.Once

	// read loop only
	decoder decode.Decoder

	mu      sync.Mutex
	session *metrics.Session
}

func newConn(s *Server, ws *websocket.Conn) *conn {
	id := uuid.NewString()
	logger := s.config.Logger.With("conn", id[:8])

	return &conn{
		id:     id,
		server: s,
		ws:     ws,
		logger: logger,
		player: chunkplayer.NewPlayer(chunkplayer.Config{
			Format:   audio.PlaybackFormat,
			NewSink:  s.config.NewSink,
			Analyzer: s.analyzer,
			Logger:   logger,
		}),
		send:   make(chan protocol.Message, sendBuffer),
		closed: make(chan struct{}),
	}
}

// serve runs the writer and the read loop until the connection ends
func (c *conn) serve() {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.writer()
	}()

	c.readLoop()

	c.player.Teardown()
	c.endSession(metrics.OutcomeStopped)
	if c.decoder != nil {
		c.decoder.Close()
	}

	c.close()
	wg.Wait()
}

// close ends the connection; safe to call from any goroutine
func (c *conn) close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.ws.Close()
	})
}

func (c *conn) readLoop() {
	for {
		messageType, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("WebSocket error", "err", err)
			}
			return
		}

		switch messageType {
		case websocket.BinaryMessage:
			c.handleAudio(data)
		case websocket.TextMessage:
			c.handleControl(data)
		}
	}
}

func (c *conn) handleControl(data []byte) {
	var msg protocol.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		c.logger.Warn("Error unmarshaling message", "err", err)
		c.sendError("malformed message")
		return
	}

	switch msg.Type {
	case protocol.TypeSessionStart:
		var start protocol.SessionStart
		if err := msg.Decode(&start); err != nil {
			c.sendError(err.Error())
			return
		}
		c.startSession(start)

	case protocol.TypeSessionVAD:
		var vad protocol.SessionVAD
		if err := msg.Decode(&vad); err != nil {
			c.sendError(err.Error())
			return
		}
		c.player.SetGatingEnabled(vad.Enabled)
		c.logger.Debug("Gating changed", "enabled", vad.Enabled)

	case protocol.TypeSessionEnd:
		c.player.FinishGracefully()

	case protocol.TypeSessionStop:
		c.player.Teardown()
		c.endSession(metrics.OutcomeStopped)

	default:
		c.logger.Warn("Unknown message type", "type", msg.Type)
		c.sendError("unknown message type: " + msg.Type)
	}
}

func (c *conn) startSession(start protocol.SessionStart) {
	// A restart replaces the running session
	c.player.Teardown()
	c.endSession(metrics.OutcomeStopped)

	dec, err := decode.New(start.Codec, audio.PlaybackFormat)
	if err != nil {
		c.sendError(err.Error())
		return
	}
	if c.decoder != nil {
		c.decoder.Close()
	}
	c.decoder = dec

	session := c.server.metrics.StartSession()
	l := session.Listener(&sessionListener{c: c, session: session})

	if err := c.player.ConfigureSession(start.VAD, l); err != nil {
		session.End(metrics.OutcomeFailed, chunkplayer.SchedulerStats{})
		c.logger.Error("Failed to configure session", "err", err)
		c.sendError(err.Error())
		return
	}

	c.mu.Lock()
	c.session = session
	c.mu.Unlock()

	id := c.player.SessionID()
	c.logger.Info("Session started", "session", id, "vad", start.VAD, "codec", start.Codec)
	c.sendReliable(protocol.TypeSessionStarted, protocol.SessionStarted{SessionID: id})
}

func (c *conn) handleAudio(data []byte) {
	payload, err := protocol.DecodeAudio(data)
	if err != nil {
		c.logger.Warn("Dropping binary message", "err", err)
		return
	}
	if c.decoder == nil {
		c.logger.Warn("Audio received before session/start, dropping", "bytes", len(payload))
		return
	}

	samples, err := c.decoder.Decode(payload)
	if err != nil {
		c.logger.Warn("Failed to decode chunk", "err", err)
		return
	}

	pcm := audio.Int16ToBytes(samples)
	c.player.SubmitChunk(pcm, len(pcm))
}

// endSession closes out the metrics of the current session, if any
func (c *conn) endSession(outcome string) {
	c.mu.Lock()
	session := c.session
	c.session = nil
	c.mu.Unlock()

	if session != nil {
		session.End(outcome, c.player.Stats())
	}
}

// sendReliable queues a message that must not be dropped
func (c *conn) sendReliable(msgType string, payload interface{}) {
	msg, err := protocol.NewMessage(msgType, payload)
	if err != nil {
		c.logger.Error("Failed to build message", "type", msgType, "err", err)
		return
	}

	select {
	case c.send <- msg:
	case <-c.closed:
	}
}

// sendDroppable queues a message, dropping it if the writer is behind
func (c *conn) sendDroppable(msgType string, payload interface{}) {
	msg, err := protocol.NewMessage(msgType, payload)
	if err != nil {
		c.logger.Error("Failed to build message", "type", msgType, "err", err)
		return
	}

	select {
	case c.send <- msg:
	default:
		c.logger.Debug("Send buffer full, dropping", "type", msgType)
	}
}

func (c *conn) sendError(message string) {
	c.sendReliable(protocol.TypePlayError, protocol.PlayError{Message: message})
}

// writer sends queued messages and keepalive pings
func (c *conn) writer() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.closed:
			return

		case msg := <-c.send:
			data, err := json.Marshal(msg)
			if err != nil {
				c.logger.Error("Error marshaling message", "err", err)
				continue
			}
			c.ws.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Warn("Error writing message", "err", err)
				c.close()
				return
			}

		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeDeadline)); err != nil {
				c.close()
				return
			}
		}
	}
}

// sessionListener forwards player events to the producer
type sessionListener struct {
	c       *conn
	session *metrics.Session
}

func (l *sessionListener) OnFinish() {
	l.c.logger.Info("Session drained", "session", l.c.player.SessionID())
	l.session.End(metrics.OutcomeFinished, l.c.player.Stats())
	l.c.sendReliable(protocol.TypePlayFinish, nil)
}

func (l *sessionListener) OnPlaySize(total int64) {
	l.c.sendDroppable(protocol.TypePlaySize, protocol.PlaySize{Bytes: total})
}

func (l *sessionListener) OnPlayData(p []byte) {}

func (l *sessionListener) OnPlayError(err error) {
	l.session.End(metrics.OutcomeFailed, l.c.player.Stats())
	l.c.sendReliable(protocol.TypePlayError, protocol.PlayError{Message: err.Error()})
}
