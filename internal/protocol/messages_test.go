// ABOUTME: Tests for ingest protocol messages
// ABOUTME: Envelope payload handling and binary audio framing
package protocol

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMessageEnvelope(t *testing.T) {
	msg, err := NewMessage(TypeSessionStart, SessionStart{VAD: true, Codec: "opus"})
	if err != nil {
		t.Fatalf("failed to build message: %v", err)
	}

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}
	want := `{"type":"session/start","payload":{"vad":true,"codec":"opus"}}`
	if string(data) != want {
		t.Errorf("expected %s, got %s", want, data)
	}

	var parsed Message
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	var start SessionStart
	if err := parsed.Decode(&start); err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}
	if !start.VAD || start.Codec != "opus" {
		t.Errorf("unexpected payload: %+v", start)
	}
}

func TestMessageWithoutPayload(t *testing.T) {
	msg, err := NewMessage(TypePlayFinish, nil)
	if err != nil {
		t.Fatalf("failed to build message: %v", err)
	}

	data, _ := json.Marshal(msg)
	if string(data) != `{"type":"play/finish"}` {
		t.Errorf("unexpected encoding: %s", data)
	}

	start := SessionStart{Codec: "pcm"}
	if err := msg.Decode(&start); err != nil {
		t.Fatalf("decode of empty payload failed: %v", err)
	}
	if start.Codec != "pcm" {
		t.Error("empty payload must leave target untouched")
	}
}

func TestMessageDecodeInvalid(t *testing.T) {
	msg := Message{Type: TypeSessionVAD, Payload: json.RawMessage(`{"enabled":"yes"}`)}

	var vad SessionVAD
	if err := msg.Decode(&vad); err == nil {
		t.Error("expected error for mistyped payload")
	}
}

func TestAudioFraming(t *testing.T) {
	payload := []byte{1, 2, 3}

	frame := EncodeAudio(payload)
	if diff := cmp.Diff([]byte{AudioChunkMessageType, 1, 2, 3}, frame); diff != "" {
		t.Errorf("frame mismatch (-want +got):\n%s", diff)
	}

	got, err := DecodeAudio(frame)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if diff := cmp.Diff(payload, got); diff != "" {
		t.Errorf("payload mismatch (-want +got):\n%s", diff)
	}

	if _, err := DecodeAudio(nil); err == nil {
		t.Error("expected error for empty frame")
	}
	if _, err := DecodeAudio([]byte{9, 1}); err == nil {
		t.Error("expected error for unknown type")
	}
}
