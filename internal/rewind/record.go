package rewind

// Kind distinguishes the two flavours of history records. A record never
// changes kind after construction.
type Kind int

const (
	// KindState is a full snapshot of one simulation object.
	KindState Kind = iota
	// KindEvent is a single input or gameplay occurrence.
	KindEvent
)

func (k Kind) String() string {
	switch k {
	case KindState:
		return "state"
	case KindEvent:
		return "event"
	default:
		return "unknown"
	}
}

// Role fixes the session's network role. A server never rewinds; only
// clients reconcile against authoritative data.
type Role int

const (
	RoleServer Role = iota
	RoleClient
)

func (r Role) String() string {
	switch r {
	case RoleServer:
		return "server"
	case RoleClient:
		return "client"
	default:
		return "unknown"
	}
}

// StateCapability is the save/restore surface of a simulation object whose
// snapshots pass through the queue. The queue never interprets the payload
// bytes and does not own the capability.
type StateCapability interface {
	Save() []byte
	Restore(payload []byte)
	Undo(payload []byte)
}

// EventCapability applies and reverts a single event payload.
type EventCapability interface {
	Apply(payload []byte)
	Undo(payload []byte)
}

// Record is one timestamped unit of history: a state snapshot or an event.
// The record owns its payload bytes from the moment it is admitted; the
// capability handle stays owned by the simulation.
type Record struct {
	tick      int64
	kind      Kind
	confirmed bool
	payload   []byte
	state     StateCapability
	event     EventCapability
}

func newStateRecord(cap StateCapability, payload []byte, confirmed bool, tick int64) *Record {
	return &Record{tick: tick, kind: KindState, confirmed: confirmed, payload: payload, state: cap}
}

func newEventRecord(cap EventCapability, payload []byte, confirmed bool, tick int64) *Record {
	return &Record{tick: tick, kind: KindEvent, confirmed: confirmed, payload: payload, event: cap}
}

// Tick reports the record's logical time.
func (r *Record) Tick() int64 {
	return r.tick
}

// Kind reports whether the record is a state or an event.
func (r *Record) Kind() Kind {
	return r.kind
}

// Confirmed reports whether the record is authoritative.
func (r *Record) Confirmed() bool {
	return r.confirmed
}

// Payload exposes the owned payload bytes. Callers must not retain the
// slice past the record's lifetime.
func (r *Record) Payload() []byte {
	return r.payload
}

// undo reverts the effect this record caused when it was first applied.
func (r *Record) undo() {
	switch r.kind {
	case KindState:
		if r.state != nil {
			r.state.Undo(r.payload)
		}
	case KindEvent:
		if r.event != nil {
			r.event.Undo(r.payload)
		}
	}
}

// replay reapplies the record's effect going forward. Only events replay;
// states are reapplied by the external restore step during a rollback.
func (r *Record) replay() {
	if r.kind != KindEvent || r.event == nil {
		return
	}
	r.event.Apply(r.payload)
}

// restore pushes a state payload back into its owning simulation object.
func (r *Record) restore() bool {
	if r.kind != KindState || r.state == nil {
		return false
	}
	r.state.Restore(r.payload)
	return true
}

// release drops the payload so the bytes can be reclaimed.
func (r *Record) release() {
	r.payload = nil
}

// precedes reports whether r sorts strictly before other under the
// (tick, state-before-event) key.
func (r *Record) precedes(other *Record) bool {
	if r.tick != other.tick {
		return r.tick < other.tick
	}
	return r.kind == KindState && other.kind == KindEvent
}
