// ABOUTME: Ingest protocol message type definitions
// ABOUTME: JSON control envelope and binary audio framing shared by server and client
package protocol

import (
	"encoding/json"
	"fmt"
)

// Message types sent by a producer
const (
	TypeSessionStart = "session/start"
	TypeSessionVAD   = "session/vad"
	TypeSessionEnd   = "session/end"
	TypeSessionStop  = "session/stop"
)

// Message types sent by the server
const (
	TypeSessionStarted = "session/started"
	TypePlaySize       = "play/size"
	TypePlayFinish     = "play/finish"
	TypePlayError      = "play/error"
)

// AudioChunkMessageType prefixes every binary audio message
const AudioChunkMessageType = 1

// Message is the top-level wrapper for all control messages
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewMessage wraps payload in an envelope. A nil payload is omitted.
func NewMessage(msgType string, payload interface{}) (Message, error) {
	msg := Message{Type: msgType}
	if payload == nil {
		return msg, nil
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("failed to marshal %s payload: %w", msgType, err)
	}
	msg.Payload = data
	return msg, nil
}

// Decode unmarshals the payload into v. An absent payload leaves v untouched.
func (m Message) Decode(v interface{}) error {
	if len(m.Payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(m.Payload, v); err != nil {
		return fmt.Errorf("invalid %s payload: %w", m.Type, err)
	}
	return nil
}

// SessionStart configures a new playback session
type SessionStart struct {
	VAD   bool   `json:"vad"`
	Codec string `json:"codec,omitempty"` // "pcm" (default) or "opus"
}

// SessionVAD toggles voice-activity gating mid-session
type SessionVAD struct {
	Enabled bool `json:"enabled"`
}

// SessionStarted acknowledges session/start
type SessionStarted struct {
	SessionID string `json:"session_id"`
}

// PlaySize reports cumulative bytes processed
type PlaySize struct {
	Bytes int64 `json:"bytes"`
}

// PlayError reports a failed session or a rejected request
type PlayError struct {
	Message string `json:"message"`
}

// EncodeAudio frames an encoded chunk as a binary message
func EncodeAudio(payload []byte) []byte {
	frame := make([]byte, 1+len(payload))
	frame[0] = AudioChunkMessageType
	copy(frame[1:], payload)
	return frame
}

// DecodeAudio strips the binary framing from an audio message
func DecodeAudio(frame []byte) ([]byte, error) {
	if len(frame) < 1 {
		return nil, fmt.Errorf("invalid binary message: empty")
	}
	if frame[0] != AudioChunkMessageType {
		return nil, fmt.Errorf("unknown binary message type: %d", frame[0])
	}
	return frame[1:], nil
}
