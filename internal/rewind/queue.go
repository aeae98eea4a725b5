package rewind

import (
	"context"
	"errors"

	"ghost-lap/server/internal/telemetry"
	"ghost-lap/server/logging"
	"ghost-lap/server/logging/netcode"
)

// SentinelTick is returned by UndoUntil when no confirmed base state
// exists. Callers must not restore state from it.
const SentinelTick int64 = -1

// ErrNoConfirmedState reports that an undo walk exhausted history without
// finding a confirmed state snapshot. The rollback attempt is dead; the
// caller decides between aborting the session and forcing a full resync.
var ErrNoConfirmedState = errors.New("rewind: no confirmed state in history")

const (
	metricInboxOccupancy  = "rewind_inbox_occupancy"
	metricMergeTotal      = "rewind_merge_total"
	metricMergedRecords   = "rewind_merged_records_total"
	metricStaleClampTotal = "rewind_stale_clamp_total"
	metricUndoneRecords   = "rewind_undone_records_total"
	metricReplayedEvents  = "rewind_replayed_events_total"
)

// Deps carries the shared infrastructure handles the queue reports through.
type Deps struct {
	Publisher logging.Publisher
	Metrics   telemetry.Metrics
	Logger    telemetry.Logger
}

// Queue is the rollback synchronization buffer for one simulation session.
// It records states and events in strict time order, stages asynchronously
// arriving network records, and drives the undo/replay cursor protocol.
//
// Threading: every method except the PushNetwork variants must run on the
// simulation goroutine. The network goroutine only ever reaches the inbox.
type Queue struct {
	role     Role
	timeline timeline
	inbox    inbox
	deps     Deps
}

// NewQueue constructs an empty queue for the given session role.
func NewQueue(r Role, deps Deps) *Queue {
	if deps.Publisher == nil {
		deps.Publisher = logging.NopPublisher()
	}
	return &Queue{
		role:     r,
		timeline: newTimeline(),
		inbox:    newInbox(),
		deps:     deps,
	}
}

// Role reports the fixed session role.
func (q *Queue) Role() Role {
	return q.role
}

// PushLocalState records a state snapshot produced by the local simulation.
// Simulation goroutine only.
func (q *Queue) PushLocalState(cap StateCapability, payload []byte, confirmed bool, tick int64) {
	q.timeline.insert(newStateRecord(cap, payload, confirmed, tick))
}

// PushLocalEvent records an event produced by the local simulation.
// Simulation goroutine only.
func (q *Queue) PushLocalEvent(cap EventCapability, payload []byte, confirmed bool, tick int64) {
	q.timeline.insert(newEventRecord(cap, payload, confirmed, tick))
}

// PushNetworkState stages an authoritative state snapshot from the network
// goroutine. It is merged into the ordered history on the next Merge call.
func (q *Queue) PushNetworkState(cap StateCapability, payload []byte, tick int64) {
	occupancy := q.inbox.push(newStateRecord(cap, payload, true, tick))
	q.storeInboxOccupancy(occupancy)
}

// PushNetworkEvent stages an authoritative event from the network goroutine.
func (q *Queue) PushNetworkEvent(cap EventCapability, payload []byte, tick int64) {
	occupancy := q.inbox.push(newEventRecord(cap, payload, true, tick))
	q.storeInboxOccupancy(occupancy)
}

// Merge drains every due inbox record into the ordered history and reports
// whether the caller must roll back, and to which tick. Records timestamped
// after currentTick stay staged for a later pass.
//
// A server never rolls back: a late record is clamped to currentTick and
// applied "now", trading a little accuracy for protocol simplicity. Only a
// client-role queue ever reports needsRollback. The rollback target is the
// latest overdue tick, not the earliest: the restored base state dominates
// every earlier overdue record, and replay reapplies the rest, so rewinding
// further only buys extra replay work.
func (q *Queue) Merge(currentTick int64) (needsRollback bool, rollbackTick int64) {
	rollbackTick = SentinelTick

	q.inbox.mu.Lock()
	defer q.inbox.mu.Unlock()

	if len(q.inbox.records) == 0 {
		return false, rollbackTick
	}

	q.addMetric(metricMergeTotal, 1)

	remaining := q.inbox.records[:0]
	for _, rec := range q.inbox.records {
		if rec.tick > currentTick {
			remaining = append(remaining, rec)
			continue
		}

		if q.role == RoleServer && rec.tick < currentTick {
			q.logf("[rewind] at %d received %s from %d, clamping", currentTick, rec.kind, rec.tick)
			netcode.StaleClamp(context.Background(), q.deps.Publisher, currentTick, netcode.StaleClampPayload{
				ReceivedTick: rec.tick,
				ClampedTick:  currentTick,
			})
			q.addMetric(metricStaleClampTotal, 1)
			rec.tick = currentTick
		}

		q.timeline.insert(rec)
		q.addMetric(metricMergedRecords, 1)

		if q.role == RoleClient && rec.tick < currentTick {
			needsRollback = true
			if rec.tick > rollbackTick {
				rollbackTick = rec.tick
			}
		}
	}
	// Truncate in place so future records keep their staging order.
	for i := len(remaining); i < len(q.inbox.records); i++ {
		q.inbox.records[i] = nil
	}
	q.inbox.records = remaining
	q.storeMetric(metricInboxOccupancy, uint64(len(remaining)))

	if needsRollback {
		netcode.RollbackDetected(context.Background(), q.deps.Publisher, currentTick, netcode.RollbackPayload{
			TargetTick: rollbackTick,
		})
	}
	return needsRollback, rollbackTick
}

// UndoUntil walks the cursor backward, undoing every record it passes,
// until it reaches a confirmed state recorded at or before targetTick. That
// state's tick is returned and the cursor rests on the state record so the
// caller can restore it and replay forward. Exhausting history without a
// qualifying state is an unrecoverable protocol violation: the history
// window was truncated past the last confirmed checkpoint.
func (q *Queue) UndoUntil(targetTick int64) (int64, error) {
	t := &q.timeline
	if t.len() == 0 {
		q.reportNoConfirmedState(targetTick)
		return SentinelTick, ErrNoConfirmedState
	}

	// The cursor points at the next unconsumed record; undo starts from
	// the last applied one.
	if !t.atStart() {
		t.stepBack()
	}

	for {
		rec := t.current()
		rec.undo()
		q.addMetric(metricUndoneRecords, 1)

		if rec.kind == KindState && rec.confirmed && rec.tick <= targetTick {
			return rec.tick, nil
		}
		if !t.stepBack() {
			break
		}
	}

	q.reportNoConfirmedState(targetTick)
	return SentinelTick, ErrNoConfirmedState
}

// ReplayUntil replays every event recorded at exactly tick, advancing the
// cursor past them. States at the tick are skipped: the external restore
// step already applied the matching snapshot directly. The walk stops at
// the first record with a different tick or at the end of history.
func (q *Queue) ReplayUntil(tick int64) {
	t := &q.timeline
	for t.hasPending() {
		rec := t.current()
		if rec.tick != tick {
			return
		}
		if rec.kind == KindEvent {
			rec.replay()
			q.addMetric(metricReplayedEvents, 1)
		}
		t.advance()
	}
}

// RestoreCursorState reapplies the state snapshots at the cursor's tick
// through their capabilities and advances the cursor past them, so the
// next ReplayUntil call starts at that tick's events. It reports false if
// the cursor does not rest on a state record, which after a successful
// UndoUntil would be a programming error.
func (q *Queue) RestoreCursorState() bool {
	t := &q.timeline
	rec := t.current()
	if rec == nil || rec.kind != KindState {
		return false
	}
	tick := rec.tick
	for {
		rec = t.current()
		if rec == nil || rec.tick != tick || rec.kind != KindState {
			break
		}
		rec.restore()
		t.advance()
	}
	return true
}

// CurrentTick reports the tick of the record at the cursor, or SentinelTick
// when nothing is pending.
func (q *Queue) CurrentTick() (int64, bool) {
	rec := q.timeline.current()
	if rec == nil {
		return SentinelTick, false
	}
	return rec.tick, true
}

// Advance moves the cursor past the current record without replaying it.
// Simulation goroutine only.
func (q *Queue) Advance() {
	q.timeline.advance()
}

// IsEmpty reports whether the queue holds no records at all, staged or merged.
func (q *Queue) IsEmpty() bool {
	return q.timeline.len() == 0 && q.inbox.len() == 0
}

// HasPending reports whether the cursor still has records to consume.
func (q *Queue) HasPending() bool {
	return q.timeline.hasPending()
}

// Len reports the number of records in the ordered history.
func (q *Queue) Len() int {
	return q.timeline.len()
}

// InboxLen reports the number of records still staged in the inbox.
func (q *Queue) InboxLen() int {
	return q.inbox.len()
}

// Reset destroys every owned record and returns the queue to its initial
// empty state. Callers must guarantee no producer push is in flight.
func (q *Queue) Reset() {
	q.inbox.reset()
	q.timeline.reset()
	q.storeMetric(metricInboxOccupancy, 0)
}

func (q *Queue) reportNoConfirmedState(targetTick int64) {
	q.logf("[rewind] no confirmed state for rollback to %d", targetTick)
	netcode.RollbackFailed(context.Background(), q.deps.Publisher, targetTick, netcode.RollbackPayload{
		TargetTick: targetTick,
	})
}

func (q *Queue) logf(format string, args ...any) {
	if q.deps.Logger == nil {
		return
	}
	q.deps.Logger.Printf(format, args...)
}

func (q *Queue) addMetric(key string, delta uint64) {
	if q.deps.Metrics == nil {
		return
	}
	q.deps.Metrics.Add(key, delta)
}

func (q *Queue) storeMetric(key string, value uint64) {
	if q.deps.Metrics == nil {
		return
	}
	q.deps.Metrics.Store(key, value)
}

func (q *Queue) storeInboxOccupancy(occupancy int) {
	q.storeMetric(metricInboxOccupancy, uint64(occupancy))
}
