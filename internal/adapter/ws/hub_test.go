package ws

import (
	"encoding/json"
	"testing"
)

func TestNewMessage(t *testing.T) {
	msg := NewMessage(TypeDecision, map[string]string{"verdict": "proceed"})
	if msg.Type != TypeDecision {
		t.Fatalf("Type = %q", msg.Type)
	}

	var payload map[string]string
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		t.Fatalf("payload not valid json: %v", err)
	}
	if payload["verdict"] != "proceed" {
		t.Fatalf("payload = %v", payload)
	}
}

func TestNewMessageUnmarshalablePayload(t *testing.T) {
	msg := NewMessage(TypeActivation, make(chan int))
	if string(msg.Payload) != "{}" {
		t.Fatalf("marshal failure should yield empty payload, got %q", msg.Payload)
	}
}

func TestHubStartsEmpty(t *testing.T) {
	h := NewHub()
	if h.ConnectionCount() != 0 {
		t.Fatalf("ConnectionCount = %d, want 0", h.ConnectionCount())
	}
}
