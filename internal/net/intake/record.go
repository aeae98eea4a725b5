package intake

import (
	"ghost-lap/server/internal/net/proto"
	"ghost-lap/server/internal/rewind"
)

// Rejection reasons surfaced back to the client.
const (
	RejectInvalidType   = "invalid_type"
	RejectInvalidTick   = "invalid_tick"
	RejectUnknownTarget = "unknown_target"
	RejectEmptyPayload  = "empty_payload"
	RejectNotReady      = "not_ready"
)

// Context carries the session-scoped collaborators a staging pass needs.
type Context struct {
	Queue    *rewind.Queue
	Registry *rewind.Registry
}

// StageNetworkRecord validates an inbound record message and stages it into
// the rollback queue's inbox. It runs on the network goroutine, so it must
// only touch the thread-safe push operations.
func StageNetworkRecord(ctx Context, msg proto.ClientMessage) (bool, string) {
	if ctx.Queue == nil || ctx.Registry == nil {
		return false, RejectNotReady
	}
	if msg.Tick < 0 {
		return false, RejectInvalidTick
	}
	if len(msg.Payload) == 0 {
		return false, RejectEmptyPayload
	}

	switch msg.Type {
	case proto.TypeState:
		cap, ok := ctx.Registry.State(msg.Target)
		if !ok {
			return false, RejectUnknownTarget
		}
		ctx.Queue.PushNetworkState(cap, msg.Payload, msg.Tick)
	case proto.TypeEvent:
		cap, ok := ctx.Registry.Event(msg.Target)
		if !ok {
			return false, RejectUnknownTarget
		}
		ctx.Queue.PushNetworkEvent(cap, msg.Payload, msg.Tick)
	default:
		return false, RejectInvalidType
	}

	return true, ""
}
