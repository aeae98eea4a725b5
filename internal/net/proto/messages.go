package proto

import (
	"encoding/json"
	"fmt"
)

const (
	// Version tracks the wire-protocol revision expected by clients.
	Version = 1
)

// Client message type identifiers.
const (
	TypeState     = "state"
	TypeEvent     = "event"
	TypeHeartbeat = "heartbeat"
)

// Outbound message type identifiers.
const (
	TypeRecordAck    = "recordAck"
	TypeRecordReject = "recordReject"
)

// ClientMessage captures an inbound websocket message. State and event
// messages carry the record envelope; payload bytes stay opaque to the
// server and transfer ownership to the rollback queue on staging.
type ClientMessage struct {
	Ver       int     `json:"ver,omitempty"`
	Type      string  `json:"type"`
	Tick      int64   `json:"tick"`
	Target    string  `json:"target,omitempty"`
	Payload   []byte  `json:"payload,omitempty"`
	Confirmed *bool   `json:"confirmed,omitempty"`
	SentAt    int64   `json:"sentAt,omitempty"`
	Seq       *uint64 `json:"seq,omitempty"`
}

// RecordAckMessage confirms a staged record.
type RecordAckMessage struct {
	Ver  int    `json:"ver"`
	Type string `json:"type"`
	Seq  uint64 `json:"seq"`
	Tick int64  `json:"tick,omitempty"`
}

// RecordRejectMessage reports why a record was not staged.
type RecordRejectMessage struct {
	Ver    int    `json:"ver"`
	Type   string `json:"type"`
	Seq    uint64 `json:"seq"`
	Reason string `json:"reason"`
	Tick   int64  `json:"tick,omitempty"`
}

// HeartbeatMessage echoes client time so sessions can estimate RTT.
type HeartbeatMessage struct {
	Ver        int    `json:"ver"`
	Type       string `json:"type"`
	ServerTime int64  `json:"serverTime"`
	ClientTime int64  `json:"clientTime"`
}

// DecodeClientMessage parses an inbound frame.
func DecodeClientMessage(data []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return ClientMessage{}, fmt.Errorf("decode client message: %w", err)
	}
	if msg.Type == "" {
		return ClientMessage{}, fmt.Errorf("decode client message: missing type")
	}
	return msg, nil
}

// NewRecordAck builds an acknowledgement for a staged record.
func NewRecordAck(seq uint64, tick int64) RecordAckMessage {
	return RecordAckMessage{Ver: Version, Type: TypeRecordAck, Seq: seq, Tick: tick}
}

// NewRecordReject builds a rejection reply.
func NewRecordReject(seq uint64, reason string, tick int64) RecordRejectMessage {
	return RecordRejectMessage{Ver: Version, Type: TypeRecordReject, Seq: seq, Reason: reason, Tick: tick}
}

// NewHeartbeat builds a heartbeat reply.
func NewHeartbeat(serverTime, clientTime int64) HeartbeatMessage {
	return HeartbeatMessage{Ver: Version, Type: TypeHeartbeat, ServerTime: serverTime, ClientTime: clientTime}
}
