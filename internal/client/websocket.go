// ABOUTME: WebSocket client for the chunk ingest server
// ABOUTME: Handles connection, session control, audio upload and event routing
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/Resonate-Protocol/pcmchunk-go/internal/protocol"
	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

// Config holds client configuration
type Config struct {
	ServerAddr string // host:port
	Path       string // default "/ingest"
	Logger     *log.Logger
}

// Client streams chunks to an ingest server
type Client struct {
	config Config
	conn   *websocket.Conn
	logger *log.Logger

	// writeMu serializes writes; gorilla allows one concurrent writer
	writeMu sync.Mutex

	mu        sync.RWMutex
	connected bool

	// Event channels
	Started  chan protocol.SessionStarted
	Sizes    chan int64
	Finished chan struct{}
	Errors   chan string

	ctx    context.Context
	cancel context.CancelFunc
}

// NewClient creates a new ingest client
func NewClient(config Config) *Client {
	if config.Path == "" {
		config.Path = "/ingest"
	}
	if config.Logger == nil {
		config.Logger = log.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		config:   config,
		logger:   config.Logger,
		Started:  make(chan protocol.SessionStarted, 1),
		Sizes:    make(chan int64, 100),
		Finished: make(chan struct{}, 1),
		Errors:   make(chan string, 10),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Connect dials the server and starts routing events
func (c *Client) Connect() error {
	u := url.URL{Scheme: "ws", Host: c.config.ServerAddr, Path: c.config.Path}
	c.logger.Info("Connecting", "url", u.String())

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	go c.readMessages()

	return nil
}

// Start opens a playback session and waits for the server to acknowledge it
func (c *Client) Start(ctx context.Context, vad bool, codec string) (string, error) {
	if err := c.sendControl(protocol.TypeSessionStart, protocol.SessionStart{VAD: vad, Codec: codec}); err != nil {
		return "", fmt.Errorf("failed to send session/start: %w", err)
	}

	select {
	case started := <-c.Started:
		return started.SessionID, nil
	case msg := <-c.Errors:
		return "", fmt.Errorf("server rejected session: %s", msg)
	case <-c.ctx.Done():
		return "", fmt.Errorf("connection closed")
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// SendChunk uploads one encoded chunk
func (c *Client) SendChunk(payload []byte) error {
	return c.write(websocket.BinaryMessage, protocol.EncodeAudio(payload))
}

// SetVAD toggles voice-activity gating for the running session
func (c *Client) SetVAD(enabled bool) error {
	return c.sendControl(protocol.TypeSessionVAD, protocol.SessionVAD{Enabled: enabled})
}

// End asks the server to play out queued chunks and finish
func (c *Client) End() error {
	return c.sendControl(protocol.TypeSessionEnd, nil)
}

// Stop asks the server to tear the session down immediately
func (c *Client) Stop() error {
	return c.sendControl(protocol.TypeSessionStop, nil)
}

func (c *Client) sendControl(msgType string, payload interface{}) error {
	msg, err := protocol.NewMessage(msgType, payload)
	if err != nil {
		return err
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return c.write(websocket.TextMessage, data)
}

func (c *Client) write(messageType int, data []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.connected {
		return fmt.Errorf("not connected")
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteMessage(messageType, data)
}

// readMessages reads and routes incoming events
func (c *Client) readMessages() {
	defer c.Close()

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.ctx.Done():
			default:
				c.logger.Debug("Read error", "err", err)
			}
			return
		}

		if messageType == websocket.TextMessage {
			c.handleJSONMessage(data)
		}
	}
}

// handleJSONMessage routes server events
func (c *Client) handleJSONMessage(data []byte) {
	var msg protocol.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		c.logger.Warn("Failed to parse JSON message", "err", err)
		return
	}

	switch msg.Type {
	case protocol.TypeSessionStarted:
		var started protocol.SessionStarted
		if err := msg.Decode(&started); err != nil {
			c.logger.Warn("Bad session/started", "err", err)
			return
		}
		select {
		case c.Started <- started:
		case <-c.ctx.Done():
		}

	case protocol.TypePlaySize:
		var size protocol.PlaySize
		if err := msg.Decode(&size); err != nil {
			return
		}
		// Progress is advisory; drop when nobody is reading
		select {
		case c.Sizes <- size.Bytes:
		default:
		}

	case protocol.TypePlayFinish:
		select {
		case c.Finished <- struct{}{}:
		case <-c.ctx.Done():
		}

	case protocol.TypePlayError:
		var perr protocol.PlayError
		msg.Decode(&perr)
		select {
		case c.Errors <- perr.Message:
		case <-c.ctx.Done():
		}

	default:
		c.logger.Debug("Unknown message type", "type", msg.Type)
	}
}

// Done is closed once the connection ends
func (c *Client) Done() <-chan struct{} {
	return c.ctx.Done()
}

// Close closes the connection
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		c.connected = false
		c.cancel()
		c.conn.Close()
		c.logger.Debug("Connection closed")
	}
}

// IsConnected returns connection status
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}
