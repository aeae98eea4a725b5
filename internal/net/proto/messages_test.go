package proto

import (
	"encoding/json"
	"testing"
)

func TestDecodeClientMessageParsesRecordEnvelope(t *testing.T) {
	raw := []byte(`{"ver":1,"type":"event","tick":42,"target":"steer","payload":"eyJkZWx0YSI6MX0=","seq":7}`)

	msg, err := DecodeClientMessage(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.Type != TypeEvent {
		t.Fatalf("expected type %q, got %q", TypeEvent, msg.Type)
	}
	if msg.Tick != 42 {
		t.Fatalf("expected tick 42, got %d", msg.Tick)
	}
	if msg.Target != "steer" {
		t.Fatalf("expected target steer, got %q", msg.Target)
	}
	if string(msg.Payload) != `{"delta":1}` {
		t.Fatalf("expected decoded payload bytes, got %q", msg.Payload)
	}
	if msg.Seq == nil || *msg.Seq != 7 {
		t.Fatalf("expected seq 7, got %v", msg.Seq)
	}
}

func TestDecodeClientMessageRejectsMalformedFrames(t *testing.T) {
	if _, err := DecodeClientMessage([]byte("{")); err == nil {
		t.Fatalf("expected an error for truncated JSON")
	}
	if _, err := DecodeClientMessage([]byte(`{"tick":1}`)); err == nil {
		t.Fatalf("expected an error for a missing type")
	}
}

func TestOutboundMessagesCarryProtocolVersion(t *testing.T) {
	ack := NewRecordAck(3, 10)
	if ack.Ver != Version || ack.Type != TypeRecordAck || ack.Seq != 3 || ack.Tick != 10 {
		t.Fatalf("unexpected ack %+v", ack)
	}

	reject := NewRecordReject(4, "invalid_type", 11)
	if reject.Ver != Version || reject.Type != TypeRecordReject || reject.Reason != "invalid_type" {
		t.Fatalf("unexpected reject %+v", reject)
	}

	hb := NewHeartbeat(100, 90)
	data, err := json.Marshal(hb)
	if err != nil {
		t.Fatalf("marshal heartbeat: %v", err)
	}
	var decoded HeartbeatMessage
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal heartbeat: %v", err)
	}
	if decoded.ServerTime != 100 || decoded.ClientTime != 90 {
		t.Fatalf("unexpected heartbeat %+v", decoded)
	}
}
